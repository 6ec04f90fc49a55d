// Command trainrisk trains the heat-illness risk classifier on a synthetic
// dataset, prints a sample prediction report, and saves the model.
//
// Usage:
//
//	go run ./cmd/trainrisk
//	MODEL_PATH=models/risk.json EPOCHS=200 go run ./cmd/trainrisk
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/config"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/observability"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/training"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := training.New(cfg, logger, metrics, os.Stdout).Run(ctx); err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}
}
