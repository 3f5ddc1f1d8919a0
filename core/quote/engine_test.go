package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jewelquote/core/catalog"
	"jewelquote/internal/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// requireDecimal compares by numeric value, ignoring exponent representation.
func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(d(want)), "got %s, want %s", got.String(), want)
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.NewBuilder(catalog.SourceManual).
		MetalRate("18k_yellow_gold", d("6000")).
		MetalRate("silver_925", d("80")).
		StoneRate("ruby", d("8000")).
		StoneRate("pearl", d("3000")).
		StoneRate("sapphire", d("12000")).
		Conversion(d("83")).
		OverheadFraction(d("0.25")).
		AdvanceFraction(d("0.5")).
		Build()
	require.NoError(t, err)
	return cat
}

func testEngine() *Engine {
	return NewEngine(d("83"), d("0.5"), nil)
}

func TestQuoteWorkedExample(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()

	metal := MetalSpec{MetalType: "18k_yellow_gold", WeightGrams: d("5")}
	gems := []GemSelection{
		{Role: RoleMain, StoneTypes: []string{"ruby"}, TotalCarats: d("1.2")},
	}

	q, err := engine.Quote(metal, gems, cat)
	require.NoError(t, err)

	requireDecimal(t, "39600", q.SubtotalBeforeOverhead)
	requireDecimal(t, "9900", q.OverheadAmount)
	requireDecimal(t, "49500", q.PriceINR)
	requireDecimal(t, "596", q.PriceUSD)
	requireDecimal(t, "24750", q.AdvancePayment)
	requireDecimal(t, "24750", q.RemainingPayment)
	assert.True(t, q.IsLive)
	assert.Equal(t, cat.ID, q.CatalogID)

	require.Len(t, q.Lines, 2)
	assert.Equal(t, "Metal (18k_yellow_gold)", q.Lines[0].Label)
	requireDecimal(t, "30000", q.Lines[0].Subtotal)
	assert.Equal(t, "Main stone (ruby)", q.Lines[1].Label)
	requireDecimal(t, "9600", q.Lines[1].Subtotal)
	requireDecimal(t, "8000", q.Lines[1].UnitPrice)
}

func TestQuoteSecondaryBucketSharesTotalCarats(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()

	metal := MetalSpec{MetalType: "silver_925", WeightGrams: d("0")}
	gems := []GemSelection{
		{Role: RoleSecondary, StoneTypes: []string{"pearl", "sapphire"}, TotalCarats: d("2.0")},
	}

	q, err := engine.Quote(metal, gems, cat)
	require.NoError(t, err)

	// (2.0/2)*3000 + (2.0/2)*12000
	requireDecimal(t, "15000", q.SubtotalBeforeOverhead)
	require.Len(t, q.Lines, 1)
	assert.Equal(t, "Secondary stones (pearl, sapphire)", q.Lines[0].Label)
	requireDecimal(t, "2.0", q.Lines[0].Quantity)
	requireDecimal(t, "7500", q.Lines[0].UnitPrice)
}

func TestQuoteAllZeroWeights(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()

	metal := MetalSpec{MetalType: "18k_yellow_gold", WeightGrams: d("0")}
	gems := []GemSelection{
		{Role: RoleMain, StoneTypes: []string{"ruby"}, TotalCarats: d("0")},
	}

	q, err := engine.Quote(metal, gems, cat)
	require.NoError(t, err)

	requireDecimal(t, "0", q.SubtotalBeforeOverhead)
	requireDecimal(t, "0", q.PriceINR)
	requireDecimal(t, "0", q.PriceUSD)
	requireDecimal(t, "0", q.AdvancePayment)
	requireDecimal(t, "0", q.RemainingPayment)
	assert.Empty(t, q.Lines)
}

func TestQuoteUnknownMetalType(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()

	metal := MetalSpec{MetalType: "unobtainium", WeightGrams: d("5")}
	_, err := engine.Quote(metal, nil, cat)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeUnknownMetal))
}

func TestQuoteSentinelStoneContributesNothing(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()
	metal := MetalSpec{MetalType: "18k_yellow_gold", WeightGrams: d("5")}

	withSentinel, err := engine.Quote(metal, []GemSelection{
		{Role: RoleMain, StoneTypes: []string{"none_selected"}, TotalCarats: d("1.5")},
	}, cat)
	require.NoError(t, err)

	without, err := engine.Quote(metal, nil, cat)
	require.NoError(t, err)

	requireDecimal(t, without.PriceINR.String(), withSentinel.PriceINR)
	assert.Len(t, withSentinel.Lines, 1) // metal only
}

func TestQuoteUnknownStoneStillSplitsBucket(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()
	metal := MetalSpec{MetalType: "silver_925", WeightGrams: d("0")}

	// The unpriced stone keeps its even share of the total, so the
	// bucket never bills more carats than were specified.
	q, err := engine.Quote(metal, []GemSelection{
		{Role: RoleOther, StoneTypes: []string{"ruby", "mystery_stone"}, TotalCarats: d("2")},
	}, cat)
	require.NoError(t, err)

	requireDecimal(t, "8000", q.SubtotalBeforeOverhead)
}

func TestQuotePaymentSplitIsExact(t *testing.T) {
	cat, err := catalog.NewBuilder(catalog.SourceManual).
		MetalRate("gold", d("6000.2")).
		Conversion(d("83")).
		OverheadFraction(d("0.25")).
		AdvanceFraction(d("0.5")).
		Build()
	require.NoError(t, err)
	engine := testEngine()

	weights := []string{"5", "3.33", "0.1", "7.77", "12.345"}
	for _, w := range weights {
		q, err := engine.Quote(MetalSpec{MetalType: "gold", WeightGrams: d(w)}, nil, cat)
		require.NoError(t, err)

		sum := q.AdvancePayment.Add(q.RemainingPayment)
		require.True(t, sum.Equal(q.PriceINR),
			"weight %s: advance %s + remaining %s != priceINR %s",
			w, q.AdvancePayment, q.RemainingPayment, q.PriceINR)
		require.True(t, q.PriceUSD.Equal(q.PriceINR.Div(cat.USDToINR).Round(0)),
			"weight %s: priceUSD %s is not round(priceINR/usdToInr)", w, q.PriceUSD)
	}
}

func TestQuoteDeterministic(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()

	metal := MetalSpec{MetalType: "18k_yellow_gold", WeightGrams: d("5")}
	gems := []GemSelection{
		{Role: RoleMain, StoneTypes: []string{"ruby"}, TotalCarats: d("1.2")},
		{Role: RoleSecondary, StoneTypes: []string{"pearl", "sapphire"}, TotalCarats: d("2.0")},
	}

	first, err := engine.Quote(metal, gems, cat)
	require.NoError(t, err)
	second, err := engine.Quote(metal, gems, cat)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQuoteNegativeWeightClampsToZero(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()

	q, err := engine.Quote(MetalSpec{MetalType: "18k_yellow_gold", WeightGrams: d("-3")}, nil, cat)
	require.NoError(t, err)
	requireDecimal(t, "0", q.PriceINR)
}

func TestQuoteOrFallbackNilCatalog(t *testing.T) {
	engine := testEngine()

	q := engine.QuoteOrFallback(MetalSpec{MetalType: "18k_yellow_gold"}, nil, nil, d("175000"))

	assert.False(t, q.IsLive)
	requireDecimal(t, "175000", q.PriceINR)
	requireDecimal(t, "2108", q.PriceUSD) // round(175000/83)
	requireDecimal(t, "87500", q.AdvancePayment)
	requireDecimal(t, "87500", q.RemainingPayment)
	assert.Empty(t, q.Lines)
	assert.Empty(t, q.CatalogID)
}

func TestQuoteOrFallbackOnUnknownMetal(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()

	q := engine.QuoteOrFallback(MetalSpec{MetalType: "unobtainium", WeightGrams: d("5")}, nil, cat, d("1000"))

	assert.False(t, q.IsLive)
	requireDecimal(t, "1000", q.PriceINR)
}

func TestQuoteOrFallbackPrefersLiveQuote(t *testing.T) {
	cat := testCatalog(t)
	engine := testEngine()

	q := engine.QuoteOrFallback(MetalSpec{MetalType: "18k_yellow_gold", WeightGrams: d("5")}, nil, cat, d("99999"))

	assert.True(t, q.IsLive)
	requireDecimal(t, "37500", q.PriceINR) // round(30000*1.25), not the stale stored price
}
