// Command riskscore consumes cabin telemetry from Kafka, assesses each reading
// with the trained heat-risk model, and publishes the assessments.
//
// By default it drains the current backlog and exits once the source topic is
// idle for BATCH_IDLE_TIMEOUT. Pass -follow to keep consuming until SIGINT or
// SIGTERM. SIGHUP reloads the model from MODEL_PATH.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/Beck-Develops/smart-cabin-safety-system/internal/adapter/http"
	kafkaadapter "github.com/Beck-Develops/smart-cabin-safety-system/internal/adapter/kafka"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/cache"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/config"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/model"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/observability"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/pipeline"
)

func main() {
	follow := flag.Bool("follow", false, "keep consuming after the source topic goes idle")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// A missing model degrades to the rule-based heat index category.
	var (
		predictor domain.Predictor
		info      httpadapter.ModelInfo
		cached    *cache.CachedPredictor
	)
	classifier, err := model.LoadClassifier(cfg.ModelPath)
	if err != nil {
		logger.Warn("model unavailable, using rule-based categories", "path", cfg.ModelPath, "error", err)
	} else {
		cached = cache.NewCachedPredictor(classifier, cfg.PredictionCacheSize, metrics.PredictionCache)
		predictor = cached
		info = classifier
		logger.Info("model loaded", "path", cfg.ModelPath, "trained_at", classifier.Metadata().TrainedAt,
			"cache_size", cfg.PredictionCacheSize)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	scorer := pipeline.NewScorer(predictor)

	var opts []pipeline.Option
	if !*follow {
		opts = append(opts, pipeline.WithStopWhenIdle())
	}
	p := pipeline.New(reader, scorer, writer, logger, metrics, cfg.BatchSize, opts...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, info, scorer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cached != nil {
		go reloadOnHangup(ctx, cfg.ModelPath, classifier, cached, metrics, logger)
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the scoring pipeline; it returns on cancellation or, when draining,
	// once the topic is idle.
	if err := p.Run(ctx); err != nil {
		logger.Error("pipeline error", "error", err)
	}

	stats := p.Stats()
	logger.Info("shutting down",
		"consumed", stats.Consumed,
		"produced", stats.Produced,
		"skipped", stats.Skipped,
		"safety_triggers", stats.Triggers,
	)
	if cached != nil {
		logger.Info("prediction cache", "entries", cached.Len())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// reloadOnHangup swaps in the model file at path on every SIGHUP until ctx is
// done. Cached predictions are dropped with the old model; a failed reload
// keeps serving the current one.
func reloadOnHangup(ctx context.Context, path string, classifier *model.Classifier, cached *cache.CachedPredictor,
	metrics *observability.Metrics, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			err := cached.Reset(func() error { return classifier.Reload(path) })
			if err != nil {
				metrics.ModelReloads.WithLabelValues("failure").Inc()
				logger.Error("model reload failed, keeping current model", "path", path, "error", err)
				continue
			}
			metrics.ModelReloads.WithLabelValues("success").Inc()
			logger.Info("model reloaded", "path", path, "trained_at", classifier.Metadata().TrainedAt)
		}
	}
}
