// Package quote computes reproducible price quotes for jewelry products.
//
// The engine is the single pricing authority: every display surface and
// persistence path calls it rather than re-deriving the formula. It is
// pure and deterministic, so identical inputs (including the catalog
// snapshot) always yield an identical quote.
package quote

import (
	"github.com/shopspring/decimal"

	"jewelquote/core/catalog"
)

// StoneRole identifies the billing bucket a gem selection belongs to
type StoneRole string

const (
	RoleMain      StoneRole = "main"
	RoleSecondary StoneRole = "secondary"
	RoleOther     StoneRole = "other"
)

// MetalSpec describes the metal composition of a product.
// A zero weight is valid: a stone-only accessory has no metal cost
// contribution. The metal type itself is mandatory and must resolve in
// the catalog.
type MetalSpec struct {
	MetalType   string          `json:"metal_type"`
	WeightGrams decimal.Decimal `json:"weight_grams"`
}

// GemSelection is one role bucket of gemstones. TotalCarats is the
// billable quantity for the whole bucket; when several stone types are
// listed they share it evenly, each priced at its own rate. Sentinel
// stone types ("none_selected" and friends) are dropped at this
// boundary, not compared downstream.
type GemSelection struct {
	Role        StoneRole       `json:"role"`
	StoneTypes  []string        `json:"stone_types"`
	TotalCarats decimal.Decimal `json:"total_carats"`
}

// stones returns the non-sentinel stone types in the bucket
func (g GemSelection) stones() []string {
	out := make([]string, 0, len(g.StoneTypes))
	for _, raw := range g.StoneTypes {
		if stone, ok := catalog.NormalizeStoneType(raw); ok {
			out = append(out, stone)
		}
	}
	return out
}

// BreakdownLine is one material contribution to the quote
type BreakdownLine struct {
	Label     string          `json:"label"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Quote is a computed price breakdown. It is a value object: never
// mutated, recomputed in full for any change in material spec or rates.
//
// Invariants:
//   - PriceINR == round(SubtotalBeforeOverhead * (1 + overhead))
//   - PriceUSD == round(PriceINR / usdToInr)
//   - AdvancePayment + RemainingPayment == PriceINR exactly
type Quote struct {
	Lines                  []BreakdownLine `json:"lines"`
	SubtotalBeforeOverhead decimal.Decimal `json:"subtotal_before_overhead"`
	OverheadAmount         decimal.Decimal `json:"overhead_amount"`
	PriceINR               decimal.Decimal `json:"price_inr"`
	PriceUSD               decimal.Decimal `json:"price_usd"`
	AdvancePayment         decimal.Decimal `json:"advance_payment"`
	RemainingPayment       decimal.Decimal `json:"remaining_payment"`

	// IsLive distinguishes a freshly computed quote from a fallback
	// built from a previously persisted price, so UI can mark the
	// latter as an estimate.
	IsLive bool `json:"is_live"`

	// Lineage: which catalog snapshot priced this quote
	CatalogID   catalog.SnapshotID `json:"catalog_id,omitempty"`
	CatalogHash string             `json:"catalog_hash,omitempty"`
}
