package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"jewelquote/core/catalog"
	"jewelquote/core/product"
	"jewelquote/core/quote"
	"jewelquote/internal/errors"
)

// Store provides rate catalog and product persistence.
// Rates and constants are stored as decimal strings so they round-trip
// exactly; pricing math never touches a float column.
type Store struct {
	conn *sql.DB
	log  *zap.Logger
}

// NewStore creates a store
func NewStore(conn *sql.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{conn: conn, log: log}
}

// RateRow is one admin-visible rate entry
type RateRow struct {
	Type      string          `json:"type"`
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LoadCatalog builds an immutable catalog snapshot from storage.
// It returns CatalogUnavailable rather than a partial catalog when the
// pricing config row or the metal rate set is missing: callers degrade
// to the fallback path, they never price against incomplete data.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var usdToINR, overhead, advance string
	err := s.conn.QueryRowContext(ctx, `
		SELECT usd_to_inr, overhead_fraction, advance_fraction
		FROM pricing_config
		WHERE id = 1
	`).Scan(&usdToINR, &overhead, &advance)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.CatalogUnavailable("pricing config not set")
		}
		return nil, errors.Storage("query pricing config", err)
	}

	b := catalog.NewBuilder(catalog.SourceDatabase)
	if err := applyDecimal(b.Conversion, usdToINR); err != nil {
		return nil, errors.Storage("parse usd_to_inr", err)
	}
	if err := applyDecimal(b.OverheadFraction, overhead); err != nil {
		return nil, errors.Storage("parse overhead_fraction", err)
	}
	if err := applyDecimal(b.AdvanceFraction, advance); err != nil {
		return nil, errors.Storage("parse advance_fraction", err)
	}

	metals, err := s.ListMetalRates(ctx)
	if err != nil {
		return nil, err
	}
	if len(metals) == 0 {
		return nil, errors.CatalogUnavailable("no metal rates configured")
	}
	for _, row := range metals {
		b.MetalRate(row.Type, row.Rate)
	}

	stones, err := s.ListStoneRates(ctx)
	if err != nil {
		return nil, err
	}
	if len(stones) == 0 {
		s.log.Warn("catalog has no stone rates; all gem selections will price as absent")
	}
	for _, row := range stones {
		b.StoneRate(row.Type, row.Rate)
	}

	cat, err := b.Build()
	if err != nil {
		return nil, errors.Wrap(errors.TypeCatalogUnavailable, "stored rates violate catalog invariants", err)
	}
	return cat, nil
}

// parseStoredTime parses the sqlite CURRENT_TIMESTAMP text format.
// A zero time for an unparseable value is tolerable; timestamps are
// informational, never part of pricing.
func parseStoredTime(raw string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func applyDecimal(set func(decimal.Decimal) *catalog.Builder, raw string) error {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	set(d)
	return nil
}

func (s *Store) listRates(ctx context.Context, query string) ([]RateRow, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Storage("query rates", err)
	}
	defer rows.Close()

	out := make([]RateRow, 0)
	for rows.Next() {
		var row RateRow
		var rate, updatedAt string
		if err := rows.Scan(&row.Type, &rate, &updatedAt); err != nil {
			return nil, errors.Storage("scan rate", err)
		}
		row.UpdatedAt = parseStoredTime(updatedAt)
		if row.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, errors.Storage("parse stored rate", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage("iterate rates", err)
	}
	return out, nil
}

// ListMetalRates returns all metal rates sorted by type
func (s *Store) ListMetalRates(ctx context.Context) ([]RateRow, error) {
	return s.listRates(ctx, `SELECT metal_type, price_per_gram, updated_at FROM metal_rates ORDER BY metal_type`)
}

// ListStoneRates returns all stone rates sorted by type
func (s *Store) ListStoneRates(ctx context.Context) ([]RateRow, error) {
	return s.listRates(ctx, `SELECT stone_type, price_per_carat, updated_at FROM stone_rates ORDER BY stone_type`)
}

// UpsertMetalRate creates or updates the price per gram for a metal type
func (s *Store) UpsertMetalRate(ctx context.Context, metalType string, pricePerGram decimal.Decimal) error {
	if pricePerGram.IsNegative() {
		return errors.Input("price_per_gram must be >= 0")
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO metal_rates (metal_type, price_per_gram)
		VALUES (?, ?)
		ON CONFLICT(metal_type) DO UPDATE SET
			price_per_gram = excluded.price_per_gram,
			updated_at = CURRENT_TIMESTAMP
	`, metalType, pricePerGram.String())
	if err != nil {
		return errors.Storage("upsert metal rate", err)
	}
	return nil
}

// UpsertStoneRate creates or updates the price per carat for a stone type
func (s *Store) UpsertStoneRate(ctx context.Context, stoneType string, pricePerCarat decimal.Decimal) error {
	if pricePerCarat.IsNegative() {
		return errors.Input("price_per_carat must be >= 0")
	}
	normalized, ok := catalog.NormalizeStoneType(stoneType)
	if !ok {
		return errors.Input("stone type is a reserved sentinel")
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO stone_rates (stone_type, price_per_carat)
		VALUES (?, ?)
		ON CONFLICT(stone_type) DO UPDATE SET
			price_per_carat = excluded.price_per_carat,
			updated_at = CURRENT_TIMESTAMP
	`, normalized, pricePerCarat.String())
	if err != nil {
		return errors.Storage("upsert stone rate", err)
	}
	return nil
}

// SetPricingConfig writes the singleton conversion and payment constants
func (s *Store) SetPricingConfig(ctx context.Context, usdToINR, overheadFraction, advanceFraction decimal.Decimal) error {
	if !usdToINR.IsPositive() {
		return errors.Input("usd_to_inr must be > 0")
	}
	one := decimal.NewFromInt(1)
	if overheadFraction.IsNegative() || overheadFraction.GreaterThan(one) {
		return errors.Input("overhead_fraction must be in [0,1]")
	}
	if advanceFraction.IsNegative() || advanceFraction.GreaterThan(one) {
		return errors.Input("advance_fraction must be in [0,1]")
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO pricing_config (id, usd_to_inr, overhead_fraction, advance_fraction)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			usd_to_inr = excluded.usd_to_inr,
			overhead_fraction = excluded.overhead_fraction,
			advance_fraction = excluded.advance_fraction,
			updated_at = CURRENT_TIMESTAMP
	`, usdToINR.String(), overheadFraction.String(), advanceFraction.String())
	if err != nil {
		return errors.Storage("set pricing config", err)
	}
	return nil
}

// ImportCatalog replaces the stored rates and constants with a catalog
// snapshot, atomically. Used by the rate file import path.
func (s *Store) ImportCatalog(ctx context.Context, cat *catalog.Catalog) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storage("begin import transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM metal_rates`); err != nil {
		return errors.Storage("clear metal rates", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM stone_rates`); err != nil {
		return errors.Storage("clear stone rates", err)
	}

	for _, metalType := range cat.MetalTypes() {
		rate, err := cat.MetalRate(metalType)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO metal_rates (metal_type, price_per_gram) VALUES (?, ?)
		`, metalType, rate.String()); err != nil {
			return errors.Storage("insert metal rate", err)
		}
	}
	for _, stoneType := range cat.StoneTypes() {
		rate, _ := cat.StoneRate(stoneType)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stone_rates (stone_type, price_per_carat) VALUES (?, ?)
		`, stoneType, rate.String()); err != nil {
			return errors.Storage("insert stone rate", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pricing_config (id, usd_to_inr, overhead_fraction, advance_fraction)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			usd_to_inr = excluded.usd_to_inr,
			overhead_fraction = excluded.overhead_fraction,
			advance_fraction = excluded.advance_fraction,
			updated_at = CURRENT_TIMESTAMP
	`, cat.USDToINR.String(), cat.OverheadFraction.String(), cat.AdvanceFraction.String()); err != nil {
		return errors.Storage("import pricing config", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Storage("commit import transaction", err)
	}

	s.log.Info("imported rate catalog",
		zap.String("catalog_id", string(cat.ID)),
		zap.Int("metal_rates", cat.MetalRateCount()),
		zap.Int("stone_rates", cat.StoneRateCount()))
	return nil
}

// materialSpec is the persisted shape of a product's composition
type materialSpec struct {
	Metal quote.MetalSpec      `json:"metal"`
	Gems  []quote.GemSelection `json:"gems,omitempty"`
}

// SaveProduct upserts a product record
func (s *Store) SaveProduct(ctx context.Context, rec *product.Record) error {
	if rec.SKU == "" {
		return errors.Input("product sku is required")
	}

	material, err := json.Marshal(materialSpec{Metal: rec.Metal, Gems: rec.Gems})
	if err != nil {
		return errors.Internal("marshal material spec", err)
	}

	var cachedINR, cachedUSD interface{}
	if rec.HasCachedPrice {
		cachedINR = rec.CachedPriceINR.String()
		cachedUSD = rec.CachedPriceUSD.String()
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO products (sku, name, category, material_json, cached_price_inr, cached_price_usd)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			material_json = excluded.material_json,
			cached_price_inr = excluded.cached_price_inr,
			cached_price_usd = excluded.cached_price_usd,
			updated_at = CURRENT_TIMESTAMP
	`, rec.SKU, rec.Name, rec.Category, string(material), cachedINR, cachedUSD)
	if err != nil {
		return errors.Storage("upsert product", err)
	}
	return nil
}

// GetProduct loads a product record by SKU
func (s *Store) GetProduct(ctx context.Context, sku string) (*product.Record, error) {
	var rec product.Record
	var material, createdAt, updatedAt string
	var cachedINR, cachedUSD sql.NullString

	err := s.conn.QueryRowContext(ctx, `
		SELECT sku, name, category, material_json, cached_price_inr, cached_price_usd, created_at, updated_at
		FROM products
		WHERE sku = ?
	`, sku).Scan(&rec.SKU, &rec.Name, &rec.Category, &material, &cachedINR, &cachedUSD, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product", sku)
		}
		return nil, errors.Storage("query product", err)
	}

	var spec materialSpec
	if err := json.Unmarshal([]byte(material), &spec); err != nil {
		return nil, errors.Storage("unmarshal material spec", err)
	}
	rec.Metal = spec.Metal
	rec.Gems = spec.Gems
	rec.CreatedAt = parseStoredTime(createdAt)
	rec.UpdatedAt = parseStoredTime(updatedAt)

	if cachedINR.Valid {
		if rec.CachedPriceINR, err = decimal.NewFromString(cachedINR.String); err != nil {
			return nil, errors.Storage("parse cached price", err)
		}
		rec.HasCachedPrice = true
	}
	if cachedUSD.Valid {
		if rec.CachedPriceUSD, err = decimal.NewFromString(cachedUSD.String); err != nil {
			return nil, errors.Storage("parse cached price", err)
		}
	}

	return &rec, nil
}

// CacheQuote persists a live quote's totals on the product row
func (s *Store) CacheQuote(ctx context.Context, sku string, q quote.Quote) error {
	if !q.IsLive {
		return errors.Input("only live quotes may be cached")
	}

	result, err := s.conn.ExecContext(ctx, `
		UPDATE products
		SET cached_price_inr = ?, cached_price_usd = ?, updated_at = CURRENT_TIMESTAMP
		WHERE sku = ?
	`, q.PriceINR.String(), q.PriceUSD.String(), sku)
	if err != nil {
		return errors.Storage("cache quote", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Storage("cache quote", err)
	}
	if affected == 0 {
		return errors.NotFound("product", sku)
	}
	return nil
}
