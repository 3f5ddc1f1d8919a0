// Package cmd - quote command
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jewelquote/core/catalog"
	"jewelquote/core/quote"
	"jewelquote/db"
	"jewelquote/internal/config"
	"jewelquote/internal/logging"
)

var (
	metalType       string
	metalWeight     string
	mainStone       string
	mainCarats      string
	secondaryStones string
	secondaryCarats string
	otherStones     string
	otherCarats     string
	ratesFile       string
)

// quoteCmd represents the quote command
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a material specification",
	Long: `Compute a price quote for a metal and gemstone composition.

Rates come from the catalog database by default, or from an HCL rate
file given with --rates.

Examples:
  jewelquote quote --metal 18k_yellow_gold --weight 5 --main-stone ruby --main-carats 1.2
  jewelquote quote --metal silver_925 --weight 12 --secondary-stones pearl,sapphire --secondary-carats 2.0
  jewelquote quote --rates rates.hcl --metal 18k_yellow_gold --weight 5`,
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&metalType, "metal", "", "metal type id (required)")
	quoteCmd.Flags().StringVar(&metalWeight, "weight", "0", "metal weight in grams")
	quoteCmd.Flags().StringVar(&mainStone, "main-stone", "", "main stone type id")
	quoteCmd.Flags().StringVar(&mainCarats, "main-carats", "0", "main stone total carats")
	quoteCmd.Flags().StringVar(&secondaryStones, "secondary-stones", "", "comma-separated secondary stone type ids sharing one total weight")
	quoteCmd.Flags().StringVar(&secondaryCarats, "secondary-carats", "0", "secondary stones total carats")
	quoteCmd.Flags().StringVar(&otherStones, "other-stones", "", "comma-separated other stone type ids sharing one total weight")
	quoteCmd.Flags().StringVar(&otherCarats, "other-carats", "0", "other stones total carats")
	quoteCmd.Flags().StringVar(&ratesFile, "rates", "", "HCL rate file (default: catalog database)")
	_ = quoteCmd.MarkFlagRequired("metal")
}

func runQuote(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Get()

	cat, err := loadQuoteCatalog(ctx, cfg)
	if err != nil {
		return err
	}

	metal := quote.MetalSpec{
		MetalType:   metalType,
		WeightGrams: quote.ParseQuantity("weight", metalWeight),
	}

	var gems []quote.GemSelection
	if sel, ok := gemFlag(quote.RoleMain, mainStone, mainCarats); ok {
		gems = append(gems, sel)
	}
	if sel, ok := gemFlag(quote.RoleSecondary, secondaryStones, secondaryCarats); ok {
		gems = append(gems, sel)
	}
	if sel, ok := gemFlag(quote.RoleOther, otherStones, otherCarats); ok {
		gems = append(gems, sel)
	}

	engine := quote.NewEngine(cfg.Pricing.FallbackUSDToINR, cfg.Pricing.DefaultAdvanceFraction, logging.Logger)
	q, err := engine.Quote(metal, gems, cat)
	if err != nil {
		return fmt.Errorf("cannot price this specification: %w", err)
	}

	printQuote(q, cat)
	return nil
}

func loadQuoteCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	if ratesFile != "" {
		return catalog.LoadRateFile(ratesFile)
	}

	conn, err := db.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate catalog database: %w", err)
	}

	return db.NewStore(conn, logging.Logger).LoadCatalog(ctx)
}

func gemFlag(role quote.StoneRole, stonesCSV, carats string) (quote.GemSelection, bool) {
	if strings.TrimSpace(stonesCSV) == "" {
		return quote.GemSelection{}, false
	}
	var stones []string
	for _, part := range strings.Split(stonesCSV, ",") {
		if stone := strings.TrimSpace(part); stone != "" {
			stones = append(stones, stone)
		}
	}
	return quote.GemSelection{
		Role:        role,
		StoneTypes:  stones,
		TotalCarats: quote.ParseQuantity(string(role)+"-carats", carats),
	}, len(stones) > 0
}

func printQuote(q quote.Quote, cat *catalog.Catalog) {
	fmt.Printf("Catalog snapshot %s (%s)\n\n", cat.ID, cat.Source)
	for _, line := range q.Lines {
		fmt.Printf("  %-40s %10s x %-12s = ₹%s\n",
			line.Label, line.Quantity.String(), line.UnitPrice.StringFixed(2), line.Subtotal.StringFixed(2))
	}
	fmt.Println()
	fmt.Printf("  Subtotal before overhead:  ₹%s\n", q.SubtotalBeforeOverhead.StringFixed(2))
	fmt.Printf("  Overhead:                  ₹%s\n", q.OverheadAmount.StringFixed(2))
	fmt.Printf("  Price (INR):               ₹%s\n", q.PriceINR.String())
	fmt.Printf("  Price (USD):               $%s\n", q.PriceUSD.String())
	fmt.Printf("  Advance payment:           ₹%s\n", q.AdvancePayment.String())
	fmt.Printf("  Remaining payment:         ₹%s\n", q.RemainingPayment.String())
}
