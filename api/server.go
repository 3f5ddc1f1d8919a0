// Package api - Thin, deterministic API layer
// The API is ONLY responsible for: input ingestion, engine orchestration,
// output serialization. The API NEVER performs pricing logic.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"jewelquote/core/catalog"
	"jewelquote/core/product"
	"jewelquote/core/quote"
	"jewelquote/internal/errors"
)

// Store is the persistence surface the API depends on
type Store interface {
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)
	UpsertMetalRate(ctx context.Context, metalType string, pricePerGram decimal.Decimal) error
	UpsertStoneRate(ctx context.Context, stoneType string, pricePerCarat decimal.Decimal) error
	SetPricingConfig(ctx context.Context, usdToINR, overheadFraction, advanceFraction decimal.Decimal) error
	GetProduct(ctx context.Context, sku string) (*product.Record, error)
	SaveProduct(ctx context.Context, rec *product.Record) error
	CacheQuote(ctx context.Context, sku string, q quote.Quote) error
}

// RateEntry mirrors the store's rate listing shape
type RateEntry struct {
	Type string          `json:"type"`
	Rate decimal.Decimal `json:"rate"`
}

// Server is the API server
type Server struct {
	engine  *quote.Engine
	store   Store
	router  chi.Router
	version string
	log     *zap.Logger
}

// NewServer creates the API server
func NewServer(engine *quote.Engine, store Store, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		store:   store,
		router:  chi.NewRouter(),
		version: version,
		log:     log,
	}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)

	// Core endpoints
	s.router.Post("/quote", s.handleQuote)
	s.router.Get("/rates", s.handleRates)
	s.router.Get("/products/{sku}/quote", s.handleProductQuote)
	s.router.Put("/products/{sku}", s.handleSaveProduct)

	// Admin rate management
	s.router.Put("/admin/rates/metals/{id}", s.handleUpsertMetalRate)
	s.router.Put("/admin/rates/stones/{id}", s.handleUpsertStoneRate)
	s.router.Put("/admin/rates/config", s.handleSetConfig)
}

// handleQuote handles POST /quote
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		s.writeError(w, "VALIDATION_ERROR", msg, http.StatusBadRequest)
		return
	}

	// One snapshot per request; never re-fetched mid-computation
	cat, err := s.store.LoadCatalog(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	metal, gems := req.toSpec()
	q, err := s.engine.Quote(metal, gems, cat)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, q, http.StatusOK)
}

// handleProductQuote handles GET /products/{sku}/quote.
// A live quote is computed when the catalog allows it; otherwise the
// response is the cached price tagged is_live=false, never an error.
func (s *Server) handleProductQuote(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	rec, err := s.store.GetProduct(r.Context(), sku)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	cat, err := s.store.LoadCatalog(r.Context())
	if err != nil {
		s.log.Warn("catalog unavailable for product quote", zap.String("sku", sku), zap.Error(err))
		cat = nil
	}

	q := s.engine.QuoteOrFallback(rec.Metal, rec.Gems, cat, rec.CachedPriceINR)
	s.writeJSON(w, q, http.StatusOK)
}

// handleSaveProduct handles PUT /products/{sku}.
// An unknown metal type blocks the save: a record must never persist a
// wrong price. A merely unavailable catalog saves the record without
// cached totals.
func (s *Server) handleSaveProduct(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	var req SaveProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}

	quoteReq := QuoteRequest{Metal: req.Metal, Gems: req.Gems}
	if msg := quoteReq.validate(); msg != "" {
		s.writeError(w, "VALIDATION_ERROR", msg, http.StatusBadRequest)
		return
	}
	metal, gems := quoteReq.toSpec()

	rec := &product.Record{
		SKU:      sku,
		Name:     req.Name,
		Category: req.Category,
		Metal:    metal,
		Gems:     gems,
	}

	cat, catErr := s.store.LoadCatalog(r.Context())
	if catErr == nil {
		q, err := s.engine.Quote(metal, gems, cat)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		rec.CacheQuote(q)
	} else {
		s.log.Warn("saving product without cached quote", zap.String("sku", sku), zap.Error(catErr))
	}

	if err := s.store.SaveProduct(r.Context(), rec); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, rec, http.StatusOK)
}

// ratesResponse summarizes the current catalog snapshot
type ratesResponse struct {
	CatalogID        catalog.SnapshotID `json:"catalog_id"`
	ContentHash      string             `json:"content_hash"`
	Source           string             `json:"source"`
	USDToINR         decimal.Decimal    `json:"usd_to_inr"`
	OverheadFraction decimal.Decimal    `json:"overhead_fraction"`
	AdvanceFraction  decimal.Decimal    `json:"advance_fraction"`
	MetalRates       []RateEntry        `json:"metal_rates"`
	StoneRates       []RateEntry        `json:"stone_rates"`
}

// handleRates handles GET /rates
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	cat, err := s.store.LoadCatalog(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := ratesResponse{
		CatalogID:        cat.ID,
		ContentHash:      cat.ContentHash,
		Source:           cat.Source.String(),
		USDToINR:         cat.USDToINR,
		OverheadFraction: cat.OverheadFraction,
		AdvanceFraction:  cat.AdvanceFraction,
	}
	for _, metalType := range cat.MetalTypes() {
		rate, _ := cat.MetalRate(metalType)
		resp.MetalRates = append(resp.MetalRates, RateEntry{Type: metalType, Rate: rate})
	}
	for _, stoneType := range cat.StoneTypes() {
		rate, _ := cat.StoneRate(stoneType)
		resp.StoneRates = append(resp.StoneRates, RateEntry{Type: stoneType, Rate: rate})
	}

	s.writeJSON(w, resp, http.StatusOK)
}

// handleUpsertMetalRate handles PUT /admin/rates/metals/{id}
func (s *Server) handleUpsertMetalRate(w http.ResponseWriter, r *http.Request) {
	s.handleUpsertRate(w, r, s.store.UpsertMetalRate)
}

// handleUpsertStoneRate handles PUT /admin/rates/stones/{id}
func (s *Server) handleUpsertStoneRate(w http.ResponseWriter, r *http.Request) {
	s.handleUpsertRate(w, r, s.store.UpsertStoneRate)
}

func (s *Server) handleUpsertRate(w http.ResponseWriter, r *http.Request, upsert func(context.Context, string, decimal.Decimal) error) {
	id := chi.URLParam(r, "id")

	var req RateUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		s.writeError(w, "VALIDATION_ERROR", "rate must be numeric", http.StatusBadRequest)
		return
	}

	if err := upsert(r.Context(), id, rate); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSetConfig handles PUT /admin/rates/config
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}

	usdToINR, err := decimal.NewFromString(req.USDToINR)
	if err != nil {
		s.writeError(w, "VALIDATION_ERROR", "usd_to_inr must be numeric", http.StatusBadRequest)
		return
	}
	overhead, err := decimal.NewFromString(req.OverheadFraction)
	if err != nil {
		s.writeError(w, "VALIDATION_ERROR", "overhead_fraction must be numeric", http.StatusBadRequest)
		return
	}
	advance, err := decimal.NewFromString(req.AdvanceFraction)
	if err != nil {
		s.writeError(w, "VALIDATION_ERROR", "advance_fraction must be numeric", http.StatusBadRequest)
		return
	}

	if err := s.store.SetPricingConfig(r.Context(), usdToINR, overhead, advance); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"version": s.version}, http.StatusOK)
}

// writeDomainError maps the error taxonomy onto HTTP statuses
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	domainErr, ok := err.(*errors.Error)
	if !ok {
		s.writeError(w, string(errors.TypeInternal), err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Type {
	case errors.TypeUnknownMetal:
		// Cannot price this product; the caller must surface it, not
		// render a wrong price.
		status = http.StatusUnprocessableEntity
	case errors.TypeNotFound:
		status = http.StatusNotFound
	case errors.TypeInput, errors.TypeInvalidNumeric:
		status = http.StatusBadRequest
	case errors.TypeCatalogUnavailable:
		status = http.StatusServiceUnavailable
	}

	s.writeError(w, string(domainErr.Type), domainErr.Message, status)
}

func (s *Server) writeError(w http.ResponseWriter, code, message string, status int) {
	s.writeJSON(w, ErrorResponse{Error: code, Message: message}, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}
