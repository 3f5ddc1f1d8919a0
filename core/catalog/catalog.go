// Package catalog provides immutable rate catalog snapshots with content hashing.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"jewelquote/internal/errors"
)

// SnapshotID uniquely identifies a catalog snapshot
type SnapshotID string

// Source indicates where catalog data came from
type Source int

const (
	SourceDatabase Source = iota // From the admin-maintained database
	SourceRateFile               // From an HCL rate file
	SourceManual                 // Manually specified
	SourceDefault                // Hardcoded defaults
)

// String returns the source name
func (s Source) String() string {
	switch s {
	case SourceDatabase:
		return "database"
	case SourceRateFile:
		return "rate_file"
	case SourceManual:
		return "manual"
	case SourceDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Catalog is IMMUTABLE after creation.
// It represents a point-in-time capture of metal and stone rates plus
// the conversion and payment constants a quote depends on. Every quote
// computed in one batch must use the same snapshot so that two products
// priced in one pass are mutually consistent.
type Catalog struct {
	// Identity
	ID          SnapshotID // Derived from content hash
	ContentHash string     // SHA-256 of all rates and constants
	CreatedAt   time.Time

	// Source information
	Source Source

	// Pricing constants
	USDToINR         decimal.Decimal // INR per USD, > 0
	OverheadFraction decimal.Decimal // Markup over raw material cost, in [0,1]
	AdvanceFraction  decimal.Decimal // Advance share of the final price, in [0,1]

	// The actual rates (indexed by type id)
	metalRates map[string]decimal.Decimal // price per gram
	stoneRates map[string]decimal.Decimal // price per carat
}

// stoneSentinels are the legacy "no selection" markers seen in stored
// records. They normalize to absent rather than being compared as magic
// strings throughout the codebase.
var stoneSentinels = map[string]struct{}{
	"":              {},
	"none":          {},
	"None":          {},
	"none_selected": {},
}

// NormalizeStoneType maps sentinel values to absent. The returned bool
// is false when no stone is selected.
func NormalizeStoneType(raw string) (string, bool) {
	if _, ok := stoneSentinels[raw]; ok {
		return "", false
	}
	return raw, true
}

// MetalRate resolves a metal type to its price per gram.
// Metal is mandatory and always priced: an absent rate is a data error,
// never a silent zero.
func (c *Catalog) MetalRate(metalType string) (decimal.Decimal, error) {
	rate, ok := c.metalRates[metalType]
	if !ok {
		return decimal.Zero, errors.UnknownMetal(metalType)
	}
	return rate, nil
}

// StoneRate resolves a stone type to its price per carat.
// Gemstones are optional: a sentinel or unrecognized stone type means
// "not present" and contributes zero, so the second return is false
// instead of an error.
func (c *Catalog) StoneRate(stoneType string) (decimal.Decimal, bool) {
	normalized, ok := NormalizeStoneType(stoneType)
	if !ok {
		return decimal.Zero, false
	}
	rate, ok := c.stoneRates[normalized]
	if !ok {
		return decimal.Zero, false
	}
	return rate, true
}

// MetalTypes returns all metal type ids in sorted order
func (c *Catalog) MetalTypes() []string {
	return sortedKeys(c.metalRates)
}

// StoneTypes returns all stone type ids in sorted order
func (c *Catalog) StoneTypes() []string {
	return sortedKeys(c.stoneRates)
}

// MetalRateCount returns the number of metal rates
func (c *Catalog) MetalRateCount() int { return len(c.metalRates) }

// StoneRateCount returns the number of stone rates
func (c *Catalog) StoneRateCount() int { return len(c.stoneRates) }

// Verify checks content hash integrity
func (c *Catalog) Verify() bool {
	return c.computeHash() == c.ContentHash
}

func (c *Catalog) computeHash() string {
	h := sha256.New()
	for _, id := range sortedKeys(c.metalRates) {
		fmt.Fprintf(h, "metal/%s=%s\n", id, c.metalRates[id].String())
	}
	for _, id := range sortedKeys(c.stoneRates) {
		fmt.Fprintf(h, "stone/%s=%s\n", id, c.stoneRates[id].String())
	}
	fmt.Fprintf(h, "usd_to_inr=%s\n", c.USDToINR.String())
	fmt.Fprintf(h, "overhead=%s\n", c.OverheadFraction.String())
	fmt.Fprintf(h, "advance=%s\n", c.AdvanceFraction.String())
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Builder builds a catalog snapshot
type Builder struct {
	source     Source
	usdToINR   decimal.Decimal
	overhead   decimal.Decimal
	advance    decimal.Decimal
	metalRates map[string]decimal.Decimal
	stoneRates map[string]decimal.Decimal
}

// NewBuilder creates a new builder
func NewBuilder(source Source) *Builder {
	return &Builder{
		source:     source,
		metalRates: make(map[string]decimal.Decimal),
		stoneRates: make(map[string]decimal.Decimal),
	}
}

// MetalRate sets the price per gram for a metal type
func (b *Builder) MetalRate(metalType string, pricePerGram decimal.Decimal) *Builder {
	b.metalRates[metalType] = pricePerGram
	return b
}

// StoneRate sets the price per carat for a stone type
func (b *Builder) StoneRate(stoneType string, pricePerCarat decimal.Decimal) *Builder {
	b.stoneRates[stoneType] = pricePerCarat
	return b
}

// Conversion sets the USD/INR conversion rate
func (b *Builder) Conversion(usdToINR decimal.Decimal) *Builder {
	b.usdToINR = usdToINR
	return b
}

// OverheadFraction sets the overhead markup fraction
func (b *Builder) OverheadFraction(f decimal.Decimal) *Builder {
	b.overhead = f
	return b
}

// AdvanceFraction sets the advance payment fraction
func (b *Builder) AdvanceFraction(f decimal.Decimal) *Builder {
	b.advance = f
	return b
}

// Build validates the catalog invariants and creates an immutable snapshot.
func (b *Builder) Build() (*Catalog, error) {
	for id, rate := range b.metalRates {
		if rate.IsNegative() {
			return nil, errors.Newf(errors.TypeInput, "negative rate for metal type %s", id)
		}
	}
	for id, rate := range b.stoneRates {
		if rate.IsNegative() {
			return nil, errors.Newf(errors.TypeInput, "negative rate for stone type %s", id)
		}
	}
	if !b.usdToINR.IsPositive() {
		return nil, errors.New(errors.TypeInput, "usd_to_inr must be > 0")
	}
	one := decimal.NewFromInt(1)
	if b.overhead.IsNegative() || b.overhead.GreaterThan(one) {
		return nil, errors.New(errors.TypeInput, "overhead_fraction must be in [0,1]")
	}
	if b.advance.IsNegative() || b.advance.GreaterThan(one) {
		return nil, errors.New(errors.TypeInput, "advance_fraction must be in [0,1]")
	}

	cat := &Catalog{
		CreatedAt:        time.Now().UTC(),
		Source:           b.source,
		USDToINR:         b.usdToINR,
		OverheadFraction: b.overhead,
		AdvanceFraction:  b.advance,
		metalRates:       copyRates(b.metalRates),
		stoneRates:       copyRates(b.stoneRates),
	}

	cat.ContentHash = cat.computeHash()
	cat.ID = SnapshotID(cat.ContentHash[:16])
	return cat, nil
}

func copyRates(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
