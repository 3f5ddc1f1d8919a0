// Package main - Entry point for the jewelquote API server
package main

import (
	"flag"
	"net/http"

	"go.uber.org/zap"

	"jewelquote/api"
	"jewelquote/core/quote"
	"jewelquote/db"
	"jewelquote/internal/config"
	"jewelquote/internal/logging"
)

const version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "", "config file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logging.Fatal("load config", zap.Error(err))
	}
	config.Set(cfg)

	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.Fatal("initialize logging", zap.Error(err))
	}
	defer logging.Sync()

	conn, err := db.Open(cfg.Storage.DatabasePath)
	if err != nil {
		logging.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		logging.Fatal("run migrations", zap.Error(err))
	}

	store := db.NewStore(conn, logging.Logger)
	engine := quote.NewEngine(cfg.Pricing.FallbackUSDToINR, cfg.Pricing.DefaultAdvanceFraction, logging.Logger)
	server := api.NewServer(engine, store, version, logging.Logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", server))

	logging.Info("jewelquote server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("version", version))

	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		logging.Fatal("server stopped", zap.Error(err))
	}
}
