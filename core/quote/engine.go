package quote

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"jewelquote/core/catalog"
	"jewelquote/internal/errors"
)

// roleOrder fixes the breakdown line order: metal first, then stones by role.
var roleOrder = []StoneRole{RoleMain, RoleSecondary, RoleOther}

// roleLabels name the stone buckets on breakdown lines
var roleLabels = map[StoneRole]string{
	RoleMain:      "Main stone",
	RoleSecondary: "Secondary stones",
	RoleOther:     "Other stones",
}

// Engine computes price quotes. It holds only the process-wide fallback
// constants; all live rates come from the catalog snapshot passed to
// each call, so the engine shares no mutable state across calls.
type Engine struct {
	// fallbackUSDToINR is the single canonical conversion rate used
	// when no live catalog is available.
	fallbackUSDToINR decimal.Decimal

	// fallbackAdvanceFraction splits a fallback price into the two
	// payment installments.
	fallbackAdvanceFraction decimal.Decimal

	log *zap.Logger
}

// NewEngine creates an engine with the given fallback constants.
func NewEngine(fallbackUSDToINR, fallbackAdvanceFraction decimal.Decimal, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		fallbackUSDToINR:        fallbackUSDToINR,
		fallbackAdvanceFraction: fallbackAdvanceFraction,
		log:                     log,
	}
}

// Quote computes a live price quote for a material specification
// against an immutable catalog snapshot.
//
// The only error it raises is UnknownMetalType, which means "cannot
// price this product": the caller must surface it and block save or
// display rather than show a wrong price.
func (e *Engine) Quote(metal MetalSpec, gems []GemSelection, cat *catalog.Catalog) (Quote, error) {
	if cat == nil {
		return Quote{}, errors.CatalogUnavailable("no rate catalog snapshot")
	}

	metalRate, err := cat.MetalRate(metal.MetalType)
	if err != nil {
		return Quote{}, err
	}

	var lines []BreakdownLine

	weight := clampQuantity(metal.WeightGrams)
	metalSubtotal := weight.Mul(metalRate)
	if weight.IsPositive() {
		lines = append(lines, BreakdownLine{
			Label:     fmt.Sprintf("Metal (%s)", metal.MetalType),
			Quantity:  weight,
			UnitPrice: metalRate,
			Subtotal:  metalSubtotal,
		})
	}

	subtotal := metalSubtotal
	for _, role := range roleOrder {
		for _, sel := range gems {
			if sel.Role != role {
				continue
			}
			line, ok := e.bucketLine(sel, cat)
			if !ok {
				continue
			}
			subtotal = subtotal.Add(line.Subtotal)
			lines = append(lines, line)
		}
	}

	one := decimal.NewFromInt(1)
	overhead := subtotal.Mul(cat.OverheadFraction)
	priceINR := subtotal.Mul(one.Add(cat.OverheadFraction)).Round(0)
	priceUSD := priceINR.Div(cat.USDToINR).Round(0)

	// Remaining is derived by subtraction, not rounded independently,
	// so advance + remaining == priceINR holds exactly.
	advance := priceINR.Mul(cat.AdvanceFraction).Round(0)
	remaining := priceINR.Sub(advance)

	return Quote{
		Lines:                  lines,
		SubtotalBeforeOverhead: subtotal,
		OverheadAmount:         overhead,
		PriceINR:               priceINR,
		PriceUSD:               priceUSD,
		AdvancePayment:         advance,
		RemainingPayment:       remaining,
		IsLive:                 true,
		CatalogID:              cat.ID,
		CatalogHash:            cat.ContentHash,
	}, nil
}

// bucketLine prices one gem bucket. The bucket's total carats are split
// evenly across its listed stone types, each priced at its own rate.
// Stones without a catalog rate contribute zero but still take their
// even share of the total, so a partially priced bucket never bills
// more carats than were specified.
func (e *Engine) bucketLine(sel GemSelection, cat *catalog.Catalog) (BreakdownLine, bool) {
	stones := sel.stones()
	carats := clampQuantity(sel.TotalCarats)
	if len(stones) == 0 || carats.IsZero() {
		return BreakdownLine{}, false
	}

	perStone := carats.Div(decimal.NewFromInt(int64(len(stones))))
	subtotal := decimal.Zero
	priced := false
	for _, stone := range stones {
		rate, ok := cat.StoneRate(stone)
		if !ok {
			continue
		}
		priced = true
		subtotal = subtotal.Add(perStone.Mul(rate))
	}
	if !priced {
		return BreakdownLine{}, false
	}

	return BreakdownLine{
		Label:     fmt.Sprintf("%s (%s)", roleLabels[sel.Role], strings.Join(stones, ", ")),
		Quantity:  carats,
		UnitPrice: subtotal.Div(carats),
		Subtotal:  subtotal,
	}, true
}

// QuoteOrFallback computes a live quote, degrading to a quote built
// purely from the previously persisted price when the catalog is
// unavailable or the live computation fails. The fallback quote is
// tagged IsLive=false and carries no breakdown lines; a caller must
// render it as an estimate, never a blank or crashed price field.
func (e *Engine) QuoteOrFallback(metal MetalSpec, gems []GemSelection, cat *catalog.Catalog, storedPriceINR decimal.Decimal) Quote {
	if cat != nil {
		q, err := e.Quote(metal, gems, cat)
		if err == nil {
			return q
		}
		e.log.Warn("live quote failed, falling back to stored price",
			zap.String("metal_type", metal.MetalType),
			zap.Error(err))
	}

	priceINR := storedPriceINR.Round(0)
	advance := priceINR.Mul(e.fallbackAdvanceFraction).Round(0)

	return Quote{
		Lines:                  nil,
		SubtotalBeforeOverhead: decimal.Zero,
		OverheadAmount:         decimal.Zero,
		PriceINR:               priceINR,
		PriceUSD:               priceINR.Div(e.fallbackUSDToINR).Round(0),
		AdvancePayment:         advance,
		RemainingPayment:       priceINR.Sub(advance),
		IsLive:                 false,
	}
}

// clampQuantity guards the engine against negative quantities that
// slipped past boundary coercion. Weights and carats are >= 0 by
// contract; anything below that prices as zero.
func clampQuantity(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
