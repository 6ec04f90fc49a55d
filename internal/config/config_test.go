package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)

	assert.Equal(t, "prescriptive_model_nws.json", cfg.ModelPath)
	assert.Equal(t, uint64(42), cfg.DatasetSeed)
	assert.Equal(t, 1000, cfg.SampleCount)
	assert.Equal(t, 100, cfg.Epochs)
	assert.Equal(t, 32, cfg.TrainBatchSize)
	assert.InDelta(t, 0.001, cfg.LearningRate, 1e-15)
	assert.InDelta(t, 0.2, cfg.ValidationSplit, 1e-15)
	assert.Empty(t, cfg.PushgatewayURL)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "cabin-telemetry", cfg.KafkaSourceTopic)
	assert.Equal(t, "heat-risk-assessments", cfg.KafkaSinkTopic)
	assert.Equal(t, "heat-risk-scorer", cfg.KafkaGroupID)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.BatchIdleTimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 1000, cfg.PredictionCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("MODEL_PATH", "/tmp/model.json")
	t.Setenv("DATASET_SEED", "7")
	t.Setenv("SAMPLE_COUNT", "500")
	t.Setenv("EPOCHS", "10")
	t.Setenv("TRAIN_BATCH_SIZE", "64")
	t.Setenv("LEARNING_RATE", "0.01")
	t.Setenv("VALIDATION_SPLIT", "0.25")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092,")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_IDLE_TIMEOUT", "2s")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("PREDICTION_CACHE_SIZE", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/model.json", cfg.ModelPath)
	assert.Equal(t, uint64(7), cfg.DatasetSeed)
	assert.Equal(t, 500, cfg.SampleCount)
	assert.Equal(t, 10, cfg.Epochs)
	assert.Equal(t, 64, cfg.TrainBatchSize)
	assert.InDelta(t, 0.01, cfg.LearningRate, 1e-15)
	assert.InDelta(t, 0.25, cfg.ValidationSplit, 1e-15)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.BatchIdleTimeout)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 250, cfg.PredictionCacheSize)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"BATCH_IDLE_TIMEOUT", "0s"},
		{"BATCH_SIZE", "0"},
		{"BATCH_SIZE", "9999"},
		{"SAMPLE_COUNT", "-5"},
		{"EPOCHS", "many"},
		{"TRAIN_BATCH_SIZE", "0"},
		{"DATASET_SEED", "-1"},
		{"LEARNING_RATE", "0"},
		{"LEARNING_RATE", "fast"},
		{"VALIDATION_SPLIT", "1"},
		{"VALIDATION_SPLIT", "0"},
		{"LOG_FORMAT", "xml"},
		{"PREDICTION_CACHE_SIZE", "0"},
		{"KAFKA_BROKERS", " , "},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_SharedParserErrors(t *testing.T) {
	t.Setenv("BATCH_SIZE", "1001")
	_, err := Load()
	require.EqualError(t, err, "invalid BATCH_SIZE: must be 1-1000")

	t.Setenv("BATCH_SIZE", "1000")
	t.Setenv("SHUTDOWN_TIMEOUT", "0s")
	_, err = Load()
	require.EqualError(t, err, "invalid SHUTDOWN_TIMEOUT")
}
