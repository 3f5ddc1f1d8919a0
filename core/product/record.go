// Package product defines the stored product record and the
// reconciliation of legacy record shapes into it.
package product

import (
	"time"

	"github.com/shopspring/decimal"

	"jewelquote/core/quote"
)

// Record is a stored product: the material specification used to
// (re)compute a live price, plus the totals cached at the last save.
//
// The cached price is a fallback display value, never the source of
// truth. It may silently diverge from a freshly computed quote after a
// rate update; callers tolerate that and re-quote, they never crash.
type Record struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Category string `json:"category"`

	Metal quote.MetalSpec      `json:"metal"`
	Gems  []quote.GemSelection `json:"gems"`

	// Cached totals from the last persisted quote
	CachedPriceINR decimal.Decimal `json:"cached_price_inr"`
	CachedPriceUSD decimal.Decimal `json:"cached_price_usd"`
	HasCachedPrice bool            `json:"has_cached_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheQuote stores a quote's totals on the record. Only live quotes
// are cached: persisting a fallback would launder an estimate into a
// stored price.
func (r *Record) CacheQuote(q quote.Quote) {
	if !q.IsLive {
		return
	}
	r.CachedPriceINR = q.PriceINR
	r.CachedPriceUSD = q.PriceUSD
	r.HasCachedPrice = true
}
