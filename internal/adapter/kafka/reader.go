package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/config"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
)

// batchLinger bounds how long a partially filled batch waits for more messages.
const batchLinger = 500 * time.Millisecond

// fetcher is the subset of *kafkago.Reader used by Reader.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Reader consumes telemetry from a Kafka topic as part of a consumer group.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader      fetcher
	logger      *slog.Logger
	idleTimeout time.Duration
}

// NewReader creates a Kafka consumer for the configured source topic.
// Offsets are committed explicitly once a reading has been handled.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaSourceTopic,
		GroupID:     cfg.KafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, logger: logger, idleTimeout: cfg.BatchIdleTimeout}
}

// ExtractBatch fetches up to batchSize messages. It waits at most the idle
// timeout for the first message and returns an empty batch if none arrives;
// once a message is in hand it lingers briefly for the rest of the batch.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawReading, error) {
	batch := make([]domain.RawReading, 0, batchSize)
	wait := r.idleTimeout
	for len(batch) < batchSize {
		msg, err := r.fetch(ctx, wait)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			if len(batch) > 0 && ctx.Err() == nil {
				r.logger.Warn("fetch failed mid-batch, returning partial batch", "error", err, "batch_size", len(batch))
				break
			}
			return nil, fmt.Errorf("fetch message: %w", err)
		}
		batch = append(batch, r.mapMessage(msg))
		wait = batchLinger
	}
	return batch, nil
}

func (r *Reader) fetch(ctx context.Context, wait time.Duration) (kafkago.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return r.reader.FetchMessage(fetchCtx)
}

func (r *Reader) mapMessage(msg kafkago.Message) domain.RawReading {
	raw := mapMessageToRawReading(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawReading copies a Kafka message into the domain type.
func mapMessageToRawReading(msg kafkago.Message) domain.RawReading {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawReading{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
