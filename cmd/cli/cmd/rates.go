// Package cmd - rates commands
package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"jewelquote/core/catalog"
	"jewelquote/db"
	"jewelquote/internal/config"
	"jewelquote/internal/logging"
)

// ratesCmd groups rate catalog management commands
var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the rate catalog",
}

// ratesImportCmd imports an HCL rate file into the catalog database
var ratesImportCmd = &cobra.Command{
	Use:   "import <file.hcl>",
	Short: "Import an HCL rate file into the catalog database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.LoadRateFile(args[0])
		if err != nil {
			return err
		}

		conn, err := openCatalogDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		store := db.NewStore(conn, logging.Logger)
		if err := store.ImportCatalog(context.Background(), cat); err != nil {
			return err
		}

		fmt.Printf("Imported catalog %s: %d metal rates, %d stone rates\n",
			cat.ID, cat.MetalRateCount(), cat.StoneRateCount())
		return nil
	},
}

// ratesListCmd prints the current catalog snapshot
var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the current rate catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openCatalogDB()
		if err != nil {
			return err
		}
		defer conn.Close()

		cat, err := db.NewStore(conn, logging.Logger).LoadCatalog(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Catalog snapshot %s (source: %s)\n", cat.ID, cat.Source)
		fmt.Printf("  usd_to_inr:        %s\n", cat.USDToINR.String())
		fmt.Printf("  overhead_fraction: %s\n", cat.OverheadFraction.String())
		fmt.Printf("  advance_fraction:  %s\n\n", cat.AdvanceFraction.String())

		fmt.Println("Metal rates (per gram):")
		for _, metalType := range cat.MetalTypes() {
			rate, _ := cat.MetalRate(metalType)
			fmt.Printf("  %-24s ₹%s\n", metalType, rate.String())
		}

		fmt.Println("\nStone rates (per carat):")
		for _, stoneType := range cat.StoneTypes() {
			rate, _ := cat.StoneRate(stoneType)
			fmt.Printf("  %-24s ₹%s\n", stoneType, rate.String())
		}
		return nil
	},
}

func openCatalogDB() (*sql.DB, error) {
	cfg := config.Get()
	conn, err := db.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate catalog database: %w", err)
	}
	return conn, nil
}

func init() {
	ratesCmd.AddCommand(ratesImportCmd)
	ratesCmd.AddCommand(ratesListCmd)
}
