package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "heat_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for training
// and scoring.
type Metrics struct {
	// Training metrics.
	DatasetSamples     *prometheus.GaugeVec // labels: category
	TrainingEpochs     prometheus.Counter
	TrainingLoss       prometheus.Gauge
	TrainingAccuracy   prometheus.Gauge
	ValidationLoss     prometheus.Gauge
	ValidationAccuracy prometheus.Gauge
	TrainingDuration   prometheus.Gauge

	// Scoring pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	ScoreErrors             prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	Assessments             *prometheus.CounterVec // labels: category
	SafetyTriggers          prometheus.Counter
	PredictionCache         *prometheus.CounterVec // labels: result={hit,miss}
	ModelReloads            *prometheus.CounterVec // labels: result={success,failure}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetSamples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_samples",
			Help:      "Generated training samples by risk category.",
		}, []string{"category"}),
		TrainingEpochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_epochs_total",
			Help:      "Total training epochs completed.",
		}),
		TrainingLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_loss",
			Help:      "Categorical cross-entropy of the most recent epoch.",
		}),
		TrainingAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_accuracy",
			Help:      "Training accuracy of the most recent epoch.",
		}),
		ValidationLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_loss",
			Help:      "Validation cross-entropy of the most recent epoch.",
		}),
		ValidationAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_accuracy",
			Help:      "Validation accuracy of the most recent epoch.",
		}),
		TrainingDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of the last training run.",
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total telemetry messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total assessments written to the sink topic.",
		}),
		ScoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_errors_total",
			Help:      "Total telemetry messages that could not be scored.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the scoring pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-score-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Assessments produced by predicted risk category.",
		}, []string{"category"}),
		SafetyTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_triggers_total",
			Help:      "Assessments whose predicted category requires intervention.",
		}),
		PredictionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
		ModelReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_reloads_total",
			Help:      "Model file reloads requested via SIGHUP, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return append(m.trainingCollectors(),
		m.MessagesConsumed,
		m.MessagesProduced,
		m.ScoreErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Assessments,
		m.SafetyTriggers,
		m.PredictionCache,
		m.ModelReloads,
	)
}

func (m *Metrics) trainingCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DatasetSamples,
		m.TrainingEpochs,
		m.TrainingLoss,
		m.TrainingAccuracy,
		m.ValidationLoss,
		m.ValidationAccuracy,
		m.TrainingDuration,
	}
}

// PushTraining sends the training metrics to a Prometheus Pushgateway under
// job, replacing any metrics previously pushed for it.
func (m *Metrics) PushTraining(ctx context.Context, url, job string) error {
	p := push.New(url, job)
	for _, c := range m.trainingCollectors() {
		p = p.Collector(c)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push training metrics: %w", err)
	}
	return nil
}
