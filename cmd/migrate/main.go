package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"gst-billing/internal/config"
	"gst-billing/internal/db"
	"gst-billing/internal/logger"
)

// Usage: migrate [up|down]
func main() {
	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	if err := db.Migrate(cfg.Database.URL, cfg.MigrationsPath, direction, log); err != nil {
		log.Fatal("migrate", zap.Error(err), zap.String("direction", direction))
	}
}
