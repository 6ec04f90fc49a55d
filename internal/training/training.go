// Package training runs the end-to-end heat-risk model training job: dataset
// generation, fitting, a sample prediction report, and model export.
package training

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/config"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/model"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/observability"
)

// PushJob is the Pushgateway job name for training metrics.
const PushJob = "heat_risk_training"

// ReportSamples are the cabin conditions printed after training.
var ReportSamples = []domain.Sample{
	{TemperatureF: 104, Humidity: 70},
	{TemperatureF: 92, Humidity: 50},
}

// Result summarizes a completed run.
type Result struct {
	Network     *model.Network
	History     model.History
	Train       domain.Dataset
	Test        domain.Dataset
	Predictions []domain.Prediction
	ModelPath   string
}

// Trainer owns the dependencies of a training run.
type Trainer struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	out     io.Writer
}

// New creates a Trainer. The human-readable report is written to out.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, out io.Writer) *Trainer {
	return &Trainer{cfg: cfg, logger: logger, metrics: metrics, out: out}
}

// Run trains a fresh network and saves it to cfg.ModelPath.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	ds := domain.GenerateDataset(t.cfg.SampleCount, t.cfg.DatasetSeed)
	counts := ds.CategoryCounts()
	for _, c := range domain.Categories() {
		t.metrics.DatasetSamples.WithLabelValues(c.String()).Set(float64(counts[c]))
	}
	t.logger.Info("dataset generated",
		"samples", len(ds),
		"seed", t.cfg.DatasetSeed,
		"caution", counts[domain.Caution],
		"extreme_caution", counts[domain.ExtremeCaution],
		"danger", counts[domain.Danger],
		"extreme_danger", counts[domain.ExtremeDanger],
	)

	train, test := ds.Split(t.cfg.ValidationSplit, t.cfg.DatasetSeed)
	if len(train) == 0 {
		return nil, fmt.Errorf("training split is empty: %d samples with validation split %g", len(ds), t.cfg.ValidationSplit)
	}
	t.logger.Info("dataset split", "train", len(train), "test", len(test))

	net := model.NewRiskNetwork(t.cfg.DatasetSeed)

	t.printf("\n--- Training Model ---\n")
	history, err := net.Fit(ctx, train.Features(), train.Labels(), test.Features(), test.Labels(), model.FitOptions{
		Epochs:       t.cfg.Epochs,
		BatchSize:    t.cfg.TrainBatchSize,
		LearningRate: t.cfg.LearningRate,
		Seed:         t.cfg.DatasetSeed,
		OnEpoch:      t.recordEpoch,
	})
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}
	t.printf("Model trained.\n")

	final := history.Last()
	t.metrics.TrainingDuration.Set(time.Since(start).Seconds())
	t.logger.Info("training complete",
		"epochs", len(history),
		"loss", final.Loss,
		"accuracy", final.Accuracy,
		"val_loss", final.ValidationLoss,
		"val_accuracy", final.ValidationAccuracy,
		"duration", time.Since(start),
	)

	net.Metadata = t.metadata(len(ds), final)
	classifier, err := model.NewClassifier(net)
	if err != nil {
		return nil, err
	}

	t.printf("\n--- Sample Predictions ---\n")
	preds := make([]domain.Prediction, len(ReportSamples))
	for i, s := range ReportSamples {
		if i > 0 {
			t.printf("---\n")
		}
		preds[i] = classifier.Predict(s)
		t.printPrediction(i+1, s, preds[i])
	}

	if err := net.SaveFile(t.cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	t.printf("\nSaved model as %s\n", t.cfg.ModelPath)
	t.logger.Info("model saved", "path", t.cfg.ModelPath)

	t.push(ctx)

	return &Result{
		Network:     net,
		History:     history,
		Train:       train,
		Test:        test,
		Predictions: preds,
		ModelPath:   t.cfg.ModelPath,
	}, nil
}

func (t *Trainer) recordEpoch(s model.EpochStats) error {
	t.metrics.TrainingEpochs.Inc()
	t.metrics.TrainingLoss.Set(s.Loss)
	t.metrics.TrainingAccuracy.Set(s.Accuracy)
	t.metrics.ValidationLoss.Set(s.ValidationLoss)
	t.metrics.ValidationAccuracy.Set(s.ValidationAccuracy)
	t.logger.Debug("epoch complete",
		"epoch", s.Epoch,
		"loss", s.Loss,
		"accuracy", s.Accuracy,
		"val_loss", s.ValidationLoss,
		"val_accuracy", s.ValidationAccuracy,
	)
	return nil
}

func (t *Trainer) metadata(samples int, final model.EpochStats) model.Metadata {
	classes := make([]string, 0, domain.NumCategories)
	for _, c := range domain.Categories() {
		classes = append(classes, c.String())
	}
	return model.Metadata{
		FeatureScales: []float64{domain.TemperatureScale, domain.HumidityScale},
		Classes:       classes,
		Seed:          t.cfg.DatasetSeed,
		Epochs:        t.cfg.Epochs,
		BatchSize:     t.cfg.TrainBatchSize,
		LearningRate:  t.cfg.LearningRate,
		Samples:       samples,
		TrainedAt:     domain.Now().UTC(),
		Final:         final,
	}
}

// push is best effort: a missing gateway must not fail a finished training run.
func (t *Trainer) push(ctx context.Context) {
	if t.cfg.PushgatewayURL == "" {
		return
	}
	if err := t.metrics.PushTraining(ctx, t.cfg.PushgatewayURL, PushJob); err != nil {
		t.logger.Warn("metrics push failed", "error", err, "url", t.cfg.PushgatewayURL)
		return
	}
	t.logger.Info("training metrics pushed", "url", t.cfg.PushgatewayURL)
}

func (t *Trainer) printPrediction(n int, s domain.Sample, p domain.Prediction) {
	t.printf("Sample %d (%gF, %g%%): HI is ~%.1fF\n", n, s.TemperatureF, s.Humidity,
		domain.HeatIndex(s.TemperatureF, s.Humidity))
	t.printf("Prediction Probabilities: %s\n", FormatProbabilities(p.Probabilities[:]))
	t.printf("Predicted Category: %s\n", p.Category.Label())
}

func (t *Trainer) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...) //nolint:errcheck // report output is best effort
}

// FormatProbabilities renders probabilities rounded to two decimals, e.g.
// "[0.00 0.01 0.97 0.02]".
func FormatProbabilities(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
