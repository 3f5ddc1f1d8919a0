package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jewelquote/core/catalog"
	"jewelquote/core/product"
	"jewelquote/core/quote"
	"jewelquote/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// mockStore records writes and serves canned reads
type mockStore struct {
	cat    *catalog.Catalog
	catErr error

	rec    *product.Record
	recErr error

	saved      *product.Record
	metalRates map[string]decimal.Decimal
	stoneRates map[string]decimal.Decimal
	config     []decimal.Decimal
	cached     map[string]quote.Quote
}

func (m *mockStore) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if m.catErr != nil {
		return nil, m.catErr
	}
	return m.cat, nil
}

func (m *mockStore) UpsertMetalRate(ctx context.Context, metalType string, rate decimal.Decimal) error {
	if m.metalRates == nil {
		m.metalRates = map[string]decimal.Decimal{}
	}
	m.metalRates[metalType] = rate
	return nil
}

func (m *mockStore) UpsertStoneRate(ctx context.Context, stoneType string, rate decimal.Decimal) error {
	if _, ok := catalog.NormalizeStoneType(stoneType); !ok {
		return errors.Newf(errors.TypeInput, "stone type %q is reserved", stoneType)
	}
	if m.stoneRates == nil {
		m.stoneRates = map[string]decimal.Decimal{}
	}
	m.stoneRates[stoneType] = rate
	return nil
}

func (m *mockStore) SetPricingConfig(ctx context.Context, usdToINR, overhead, advance decimal.Decimal) error {
	m.config = []decimal.Decimal{usdToINR, overhead, advance}
	return nil
}

func (m *mockStore) GetProduct(ctx context.Context, sku string) (*product.Record, error) {
	if m.recErr != nil {
		return nil, m.recErr
	}
	return m.rec, nil
}

func (m *mockStore) SaveProduct(ctx context.Context, rec *product.Record) error {
	m.saved = rec
	return nil
}

func (m *mockStore) CacheQuote(ctx context.Context, sku string, q quote.Quote) error {
	if m.cached == nil {
		m.cached = map[string]quote.Quote{}
	}
	m.cached[sku] = q
	return nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.NewBuilder(catalog.SourceManual).
		MetalRate("18k_yellow_gold", dec("6000")).
		StoneRate("ruby", dec("8000")).
		Conversion(dec("83")).
		OverheadFraction(dec("0.25")).
		AdvanceFraction(dec("0.5")).
		Build()
	require.NoError(t, err)
	return cat
}

func newTestServer(store *mockStore) *Server {
	engine := quote.NewEngine(dec("83"), dec("0.5"), nil)
	return NewServer(engine, store, "test", nil)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func decodeQuote(t *testing.T, rr *httptest.ResponseRecorder) quote.Quote {
	t.Helper()
	var q quote.Quote
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&q))
	return q
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&e))
	return e
}

func TestQuoteEndpoint(t *testing.T) {
	store := &mockStore{cat: testCatalog(t)}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPost, "/quote", `{
		"metal": {"metal_type": "18k_yellow_gold", "weight_grams": "5"},
		"gems": [{"role": "main", "stone_types": ["ruby"], "total_carats": "1.2"}]
	}`)

	require.Equal(t, http.StatusOK, rr.Code)
	q := decodeQuote(t, rr)

	assert.True(t, q.IsLive)
	assert.True(t, q.PriceINR.Equal(dec("49500")), "got %s", q.PriceINR)
	assert.True(t, q.PriceUSD.Equal(dec("596")), "got %s", q.PriceUSD)
	assert.True(t, q.AdvancePayment.Equal(dec("24750")))
	assert.True(t, q.RemainingPayment.Equal(dec("24750")))
	assert.Len(t, q.Lines, 2)
}

func TestQuoteEndpointUnknownMetal(t *testing.T) {
	store := &mockStore{cat: testCatalog(t)}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPost, "/quote", `{
		"metal": {"metal_type": "unobtainium", "weight_grams": "5"}
	}`)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "UNKNOWN_METAL_TYPE", decodeError(t, rr).Error)
}

func TestQuoteEndpointValidation(t *testing.T) {
	s := newTestServer(&mockStore{cat: testCatalog(t)})

	rr := doRequest(s, http.MethodPost, "/quote", `{"metal": {"weight_grams": "5"}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(s, http.MethodPost, "/quote", `{
		"metal": {"metal_type": "18k_yellow_gold"},
		"gems": [{"role": "tertiary", "stone_types": ["ruby"], "total_carats": "1"}]
	}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(s, http.MethodPost, "/quote", `not json`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQuoteEndpointCatalogUnavailable(t *testing.T) {
	store := &mockStore{catErr: errors.CatalogUnavailable("no pricing config")}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPost, "/quote", `{
		"metal": {"metal_type": "18k_yellow_gold", "weight_grams": "5"}
	}`)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "CATALOG_UNAVAILABLE", decodeError(t, rr).Error)
}

func TestProductQuoteLive(t *testing.T) {
	store := &mockStore{
		cat: testCatalog(t),
		rec: &product.Record{
			SKU:   "JQ-1",
			Metal: quote.MetalSpec{MetalType: "18k_yellow_gold", WeightGrams: dec("5")},
		},
	}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodGet, "/products/JQ-1/quote", "")
	require.Equal(t, http.StatusOK, rr.Code)

	q := decodeQuote(t, rr)
	assert.True(t, q.IsLive)
	assert.True(t, q.PriceINR.Equal(dec("37500")), "got %s", q.PriceINR)
}

func TestProductQuoteFallsBackToStoredPrice(t *testing.T) {
	store := &mockStore{
		catErr: errors.CatalogUnavailable("no pricing config"),
		rec: &product.Record{
			SKU:            "JQ-1",
			Metal:          quote.MetalSpec{MetalType: "18k_yellow_gold", WeightGrams: dec("5")},
			CachedPriceINR: dec("175000"),
			HasCachedPrice: true,
		},
	}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodGet, "/products/JQ-1/quote", "")
	require.Equal(t, http.StatusOK, rr.Code)

	q := decodeQuote(t, rr)
	assert.False(t, q.IsLive)
	assert.True(t, q.PriceINR.Equal(dec("175000")))
	assert.True(t, q.PriceUSD.Equal(dec("2108")), "got %s", q.PriceUSD)
	assert.Empty(t, q.Lines)
}

func TestProductQuoteNotFound(t *testing.T) {
	store := &mockStore{recErr: errors.NotFound("product", "missing")}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodGet, "/products/missing/quote", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSaveProductCachesLiveQuote(t *testing.T) {
	store := &mockStore{cat: testCatalog(t)}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPut, "/products/JQ-1", `{
		"name": "Heritage Ring",
		"category": "rings",
		"metal": {"metal_type": "18k_yellow_gold", "weight_grams": "5"},
		"gems": [{"role": "main", "stone_types": ["ruby"], "total_carats": "1.2"}]
	}`)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, store.saved)
	assert.Equal(t, "JQ-1", store.saved.SKU)
	assert.Equal(t, "Heritage Ring", store.saved.Name)
	assert.True(t, store.saved.HasCachedPrice)
	assert.True(t, store.saved.CachedPriceINR.Equal(dec("49500")))
}

func TestSaveProductUnknownMetalBlocksSave(t *testing.T) {
	store := &mockStore{cat: testCatalog(t)}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPut, "/products/JQ-1", `{
		"metal": {"metal_type": "unobtainium", "weight_grams": "5"}
	}`)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Nil(t, store.saved)
}

func TestSaveProductWithoutCatalogSkipsCache(t *testing.T) {
	store := &mockStore{catErr: errors.CatalogUnavailable("no pricing config")}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPut, "/products/JQ-1", `{
		"metal": {"metal_type": "18k_yellow_gold", "weight_grams": "5"}
	}`)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, store.saved)
	assert.False(t, store.saved.HasCachedPrice)
}

func TestUpsertMetalRate(t *testing.T) {
	store := &mockStore{}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPut, "/admin/rates/metals/18k_yellow_gold", `{"rate": "6100"}`)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Contains(t, store.metalRates, "18k_yellow_gold")
	assert.True(t, store.metalRates["18k_yellow_gold"].Equal(dec("6100")))

	rr = doRequest(s, http.MethodPut, "/admin/rates/metals/18k_yellow_gold", `{"rate": "abc"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpsertStoneRateSentinelRejected(t *testing.T) {
	store := &mockStore{}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPut, "/admin/rates/stones/none_selected", `{"rate": "100"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, store.stoneRates)
}

func TestSetPricingConfig(t *testing.T) {
	store := &mockStore{}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodPut, "/admin/rates/config", `{
		"usd_to_inr": "84",
		"overhead_fraction": "0.3",
		"advance_fraction": "0.4"
	}`)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, store.config, 3)
	assert.True(t, store.config[0].Equal(dec("84")))

	rr = doRequest(s, http.MethodPut, "/admin/rates/config", `{"usd_to_inr": "nope"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRatesEndpoint(t *testing.T) {
	store := &mockStore{cat: testCatalog(t)}
	s := newTestServer(store)

	rr := doRequest(s, http.MethodGet, "/rates", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		CatalogID  string      `json:"catalog_id"`
		Source     string      `json:"source"`
		MetalRates []RateEntry `json:"metal_rates"`
		StoneRates []RateEntry `json:"stone_rates"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	assert.NotEmpty(t, resp.CatalogID)
	assert.Equal(t, "manual", resp.Source)
	require.Len(t, resp.MetalRates, 1)
	assert.Equal(t, "18k_yellow_gold", resp.MetalRates[0].Type)
	require.Len(t, resp.StoneRates, 1)
	assert.Equal(t, "ruby", resp.StoneRates[0].Type)
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(&mockStore{})

	rr := doRequest(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(s, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "test")
}
