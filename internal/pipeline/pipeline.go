package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/observability"
)

// BatchExtractor reads up to batchSize raw readings from the source. An empty
// batch with a nil error means the source had nothing to deliver.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawReading, error)
}

// Scorer converts a raw reading into a risk assessment.
type Scorer interface {
	Score(ctx context.Context, raw domain.RawReading) (domain.Assessment, error)
}

// BatchLoader writes multiple assessments to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, assessments []domain.Assessment) error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithStopWhenIdle makes Run return once the extractor delivers an empty
// batch, so a bounded backlog can be drained and the process can exit.
func WithStopWhenIdle() Option {
	return func(p *Pipeline) { p.stopWhenIdle = true }
}

// Stats counts messages handled by a Pipeline.
type Stats struct {
	Consumed int64
	Produced int64
	Skipped  int64
	Triggers int64
}

// Pipeline orchestrates the extract-score-load loop.
type Pipeline struct {
	extractor    BatchExtractor
	scorer       Scorer
	loader       BatchLoader
	logger       *slog.Logger
	metrics      *observability.Metrics
	ready        atomic.Bool
	batchSize    int
	stopWhenIdle bool

	consumed atomic.Int64
	produced atomic.Int64
	skipped  atomic.Int64
	triggers atomic.Int64
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, s Scorer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: e,
		scorer:    s,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil if the pipeline has processed at least one message,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Stats returns the message counts so far.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Consumed: p.consumed.Load(),
		Produced: p.produced.Load(),
		Skipped:  p.skipped.Load(),
		Triggers: p.triggers.Load(),
	}
}

// Run executes the batch scoring loop until the context is cancelled or, with
// WithStopWhenIdle, until the source runs dry.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "stop_when_idle", p.stopWhenIdle)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// processBatch runs one extract-score-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		if p.stopWhenIdle {
			p.logger.Info("source idle, pipeline stopping")
			return false
		}
		return ctx.Err() == nil
	}

	p.consumed.Add(int64(len(rawBatch)))
	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	loaded, ok := p.scoreAndLoad(ctx, rawBatch, backoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// scoreAndLoad scores each message in the batch, loads the successes, and
// commits offsets. A failed load is retried with backoff so no scored reading
// is committed without being written. Returns the number of loaded
// assessments and false if the pipeline should stop.
func (p *Pipeline) scoreAndLoad(ctx context.Context, rawBatch []domain.RawReading, backoff *time.Duration) (int, bool) {
	outBatch := make([]domain.Assessment, 0, len(rawBatch))
	successfulRaws := make([]domain.RawReading, 0, len(rawBatch))

	for _, raw := range rawBatch {
		out, err := p.scorer.Score(ctx, raw)
		if err != nil {
			p.logger.Warn("score failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.skipped.Add(1)
			p.metrics.ScoreErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		outBatch = append(outBatch, out)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(outBatch) == 0 {
		return 0, true
	}

	for {
		err := p.loader.LoadBatch(ctx, outBatch)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		if !p.backoffOrStop(ctx, backoff) {
			return 0, false
		}
	}

	p.produced.Add(int64(len(outBatch)))
	p.metrics.MessagesProduced.Add(float64(len(outBatch)))
	for _, a := range outBatch {
		p.metrics.Assessments.WithLabelValues(a.PredictedCategory.String()).Inc()
		if a.SafetyTrigger {
			p.triggers.Add(1)
			p.metrics.SafetyTriggers.Inc()
			p.logger.Warn("heat risk safety trigger",
				"device_id", a.DeviceID,
				"heat_index", a.HeatIndex,
				"category", a.PredictedCategory.String(),
			)
		}
	}

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(outBatch), true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawReading) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
