package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all settings, populated from environment variables. The
// defaults reproduce the reference training run.
type Config struct {
	LogLevel  string
	LogFormat string

	// Training.
	ModelPath       string
	DatasetSeed     uint64
	SampleCount     int
	Epochs          int
	TrainBatchSize  int
	LearningRate    float64
	ValidationSplit float64
	PushgatewayURL  string

	// Scoring.
	KafkaBrokers        []string
	KafkaSourceTopic    string
	KafkaSinkTopic      string
	KafkaGroupID        string
	BatchSize           int
	BatchIdleTimeout    time.Duration
	HTTPAddr            string
	ShutdownTimeout     time.Duration
	PredictionCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		ModelPath:        sharedcfg.EnvOrDefault("MODEL_PATH", "prescriptive_model_nws.json"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "cabin-telemetry"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "heat-risk-assessments"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "heat-risk-scorer"),
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout:  shutdownTimeout,
		BatchSize:        batchSize,
	}

	if cfg.DatasetSeed, err = parseUint("DATASET_SEED", 42); err != nil {
		return nil, err
	}
	if cfg.SampleCount, err = parsePositiveInt("SAMPLE_COUNT", 1000); err != nil {
		return nil, err
	}
	if cfg.Epochs, err = parsePositiveInt("EPOCHS", 100); err != nil {
		return nil, err
	}
	if cfg.TrainBatchSize, err = parsePositiveInt("TRAIN_BATCH_SIZE", 32); err != nil {
		return nil, err
	}
	if cfg.LearningRate, err = parseFloat("LEARNING_RATE", 0.001); err != nil {
		return nil, err
	}
	if cfg.ValidationSplit, err = parseFloat("VALIDATION_SPLIT", 0.2); err != nil {
		return nil, err
	}
	if cfg.BatchIdleTimeout, err = parseDuration("BATCH_IDLE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PredictionCacheSize, err = parsePositiveInt("PREDICTION_CACHE_SIZE", 1000); err != nil {
		return nil, err
	}

	if cfg.LearningRate <= 0 {
		return nil, errors.New("LEARNING_RATE must be positive")
	}
	if cfg.ValidationSplit <= 0 || cfg.ValidationSplit >= 1 {
		return nil, errors.New("VALIDATION_SPLIT must be between 0 and 1")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("MODEL_PATH is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// The parsers below cover training and scoring settings the shared config
// package has no helper for.

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseUint(key string, fallback uint64) (uint64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a non-negative integer", key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}
