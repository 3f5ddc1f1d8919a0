package product

import (
	"strings"

	"jewelquote/core/catalog"
	"jewelquote/core/quote"
)

// FirstNonEmpty evaluates accessors in priority order and returns the
// first value reported present. It replaces the ad hoc chained if/else
// that historically reconciled multi-source record fields.
func FirstNonEmpty[T any](sources ...func() (T, bool)) (T, bool) {
	for _, source := range sources {
		if v, ok := source(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// LegacyFields carries the historical stored shapes of a product
// record. Older records scattered the same fields across up to three
// maps; newer writes populate Details only.
type LegacyFields struct {
	Details        map[string]string `json:"details,omitempty"`
	AIInputs       map[string]string `json:"aiInputs,omitempty"`
	AdditionalData map[string]string `json:"additionalData,omitempty"`
}

// field adapts a map lookup to an accessor; blank values are absent.
func field(m map[string]string, key string) func() (string, bool) {
	return func() (string, bool) {
		v, ok := m[key]
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
}

// resolve reads one logical field from the ordered candidate sources.
// Priority: Details, then AIInputs, then AdditionalData.
func (l LegacyFields) resolve(key string) (string, bool) {
	return FirstNonEmpty(
		field(l.Details, key),
		field(l.AIInputs, key),
		field(l.AdditionalData, key),
	)
}

// resolveAny reads the first present value among several historical
// key spellings, each checked across all sources in priority order.
func (l LegacyFields) resolveAny(keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := l.resolve(key); ok {
			return v, true
		}
	}
	return "", false
}

// FromLegacy populates a Record from the historical stored shapes.
// Numeric fields go through strict coercion; sentinel stone values are
// dropped at this boundary so nothing downstream compares magic strings.
func FromLegacy(sku string, legacy LegacyFields) Record {
	rec := Record{SKU: sku}

	rec.Name, _ = legacy.resolveAny("name", "title")
	rec.Category, _ = legacy.resolveAny("category", "product_type")

	metalType, _ := legacy.resolveAny("metal_type", "metal")
	weightRaw, _ := legacy.resolveAny("metal_weight_grams", "metal_weight", "weight")
	rec.Metal = quote.MetalSpec{
		MetalType:   metalType,
		WeightGrams: quote.ParseQuantity("metal_weight", weightRaw),
	}

	if sel, ok := legacy.gemSelection(quote.RoleMain, "main_stone", "main_stone_carats"); ok {
		rec.Gems = append(rec.Gems, sel)
	}
	if sel, ok := legacy.gemSelection(quote.RoleSecondary, "secondary_stones", "secondary_stone_carats"); ok {
		rec.Gems = append(rec.Gems, sel)
	}
	if sel, ok := legacy.gemSelection(quote.RoleOther, "other_stones", "other_stone_carats"); ok {
		rec.Gems = append(rec.Gems, sel)
	}

	if priceRaw, ok := legacy.resolveAny("price_inr", "base_price", "price"); ok {
		rec.CachedPriceINR = quote.ParseQuantity("price_inr", priceRaw)
		rec.HasCachedPrice = rec.CachedPriceINR.IsPositive()
	}
	if priceRaw, ok := legacy.resolveAny("price_usd"); ok {
		rec.CachedPriceUSD = quote.ParseQuantity("price_usd", priceRaw)
	}

	return rec
}

// gemSelection builds one role bucket from legacy stone and carat
// fields. Stone lists are comma separated; sentinels are dropped.
func (l LegacyFields) gemSelection(role quote.StoneRole, stoneKey, caratKey string) (quote.GemSelection, bool) {
	raw, ok := l.resolve(stoneKey)
	if !ok {
		return quote.GemSelection{}, false
	}

	var stones []string
	for _, part := range strings.Split(raw, ",") {
		if stone, ok := catalog.NormalizeStoneType(strings.TrimSpace(part)); ok {
			stones = append(stones, stone)
		}
	}
	if len(stones) == 0 {
		return quote.GemSelection{}, false
	}

	caratsRaw, _ := l.resolve(caratKey)
	return quote.GemSelection{
		Role:        role,
		StoneTypes:  stones,
		TotalCarats: quote.ParseQuantity(caratKey, caratsRaw),
	}, true
}
