package main

import (
	"log"

	"lender-exports-pipeline/internal/api"
	"lender-exports-pipeline/internal/api/handler"
	"lender-exports-pipeline/internal/config"
	"lender-exports-pipeline/internal/store"
	"lender-exports-pipeline/pkg/router"
)

// @title Lender Exports Pipeline API
// @version 1.0
// @description API for running lender deal exports, merging per-lender CSVs and downloading artifacts.
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init DB
	if err := store.InitDB(cfg.DBPath); err != nil {
		log.Fatalf("failed to open deal store: %v", err)
	}

	handler.Configure(cfg)

	// Create router
	r := router.New()

	// Register API routes
	api.RegisterRoutes(r)

	// Start server
	r.Start(cfg.Addr)
}
