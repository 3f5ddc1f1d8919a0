// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"jewelquote/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Pricing contains pricing configuration
	Pricing PricingConfig `json:"pricing"`

	// Server contains HTTP server configuration
	Server ServerConfig `json:"server"`

	// Storage contains storage configuration
	Storage StorageConfig `json:"storage"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// FallbackUSDToINR is the single canonical USD/INR conversion rate
	// used when a live catalog is unavailable. It must never be
	// duplicated per call site.
	FallbackUSDToINR decimal.Decimal `json:"fallback_usd_to_inr"`

	// DefaultOverheadFraction seeds the pricing_config row on first run
	DefaultOverheadFraction decimal.Decimal `json:"default_overhead_fraction"`

	// DefaultAdvanceFraction seeds the pricing_config row on first run
	DefaultAdvanceFraction decimal.Decimal `json:"default_advance_fraction"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`
}

// StorageConfig contains storage-related settings
type StorageConfig struct {
	// DatabasePath is the path to the catalog database
	DatabasePath string `json:"database_path"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".jewelquote", "catalog.db")

	return &Config{
		Version: "1.0",
		Pricing: PricingConfig{
			FallbackUSDToINR:        decimal.NewFromInt(83),
			DefaultOverheadFraction: decimal.NewFromFloat(0.25),
			DefaultAdvanceFraction:  decimal.NewFromFloat(0.5),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			DatabasePath: dbPath,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file, then applies environment overrides.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	config.applyEnv()
	return config, nil
}

// applyEnv overrides settings from the environment. A local .env file
// is loaded best-effort; production uses real env injection.
func (c *Config) applyEnv() {
	_ = godotenv.Load()

	if addr := os.Getenv("JEWELQUOTE_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if dbPath := os.Getenv("JEWELQUOTE_DB_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if level := os.Getenv("JEWELQUOTE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
