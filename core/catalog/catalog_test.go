package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jewelquote/internal/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func builderFixture() *Builder {
	return NewBuilder(SourceManual).
		MetalRate("18k_yellow_gold", d("6000")).
		MetalRate("silver_925", d("80")).
		StoneRate("ruby", d("8000")).
		StoneRate("pearl", d("3000")).
		Conversion(d("83")).
		OverheadFraction(d("0.25")).
		AdvanceFraction(d("0.5"))
}

func TestBuildComputesDeterministicIdentity(t *testing.T) {
	first, err := builderFixture().Build()
	require.NoError(t, err)
	second, err := builderFixture().Build()
	require.NoError(t, err)

	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Verify())
}

func TestBuildHashChangesWithRates(t *testing.T) {
	base, err := builderFixture().Build()
	require.NoError(t, err)

	changed, err := builderFixture().MetalRate("18k_yellow_gold", d("6001")).Build()
	require.NoError(t, err)

	assert.NotEqual(t, base.ContentHash, changed.ContentHash)
}

func TestBuildValidatesInvariants(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Builder) *Builder
	}{
		{"negative metal rate", func(b *Builder) *Builder { return b.MetalRate("gold", d("-1")) }},
		{"negative stone rate", func(b *Builder) *Builder { return b.StoneRate("ruby", d("-1")) }},
		{"zero conversion", func(b *Builder) *Builder { return b.Conversion(d("0")) }},
		{"negative conversion", func(b *Builder) *Builder { return b.Conversion(d("-83")) }},
		{"overhead above one", func(b *Builder) *Builder { return b.OverheadFraction(d("1.5")) }},
		{"negative advance", func(b *Builder) *Builder { return b.AdvanceFraction(d("-0.1")) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.mutate(builderFixture()).Build()
			require.Error(t, err)
		})
	}
}

func TestMetalRateUnknownIsAnError(t *testing.T) {
	cat, err := builderFixture().Build()
	require.NoError(t, err)

	_, err = cat.MetalRate("unobtainium")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeUnknownMetal))
}

func TestStoneRateAbsentIsNotAnError(t *testing.T) {
	cat, err := builderFixture().Build()
	require.NoError(t, err)

	rate, ok := cat.StoneRate("ruby")
	assert.True(t, ok)
	assert.True(t, rate.Equal(d("8000")))

	for _, sentinel := range []string{"", "none", "None", "none_selected"} {
		rate, ok := cat.StoneRate(sentinel)
		assert.False(t, ok, "sentinel %q must resolve as absent", sentinel)
		assert.True(t, rate.IsZero())
	}

	_, ok = cat.StoneRate("legacy_mystery_stone")
	assert.False(t, ok)
}

func TestNormalizeStoneType(t *testing.T) {
	stone, ok := NormalizeStoneType("ruby")
	assert.True(t, ok)
	assert.Equal(t, "ruby", stone)

	_, ok = NormalizeStoneType("none_selected")
	assert.False(t, ok)
}

func TestTypeListingsAreSorted(t *testing.T) {
	cat, err := builderFixture().Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"18k_yellow_gold", "silver_925"}, cat.MetalTypes())
	assert.Equal(t, []string{"pearl", "ruby"}, cat.StoneTypes())
	assert.Equal(t, 2, cat.MetalRateCount())
	assert.Equal(t, 2, cat.StoneRateCount())
}
