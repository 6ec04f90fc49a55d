package cache

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/model"
	"github.com/Beck-Develops/smart-cabin-safety-system/internal/observability"
)

// --- mock for cache tests ---

type countingPredictor struct {
	calls int
}

func (m *countingPredictor) Predict(s domain.Sample) domain.Prediction {
	m.calls++
	c := domain.Label(s).Category
	return domain.Prediction{Probabilities: domain.OneHot(c), Category: c}
}

func sample(t float64) domain.Sample {
	return domain.Sample{TemperatureF: t, Humidity: 50}
}

func prediction(c domain.RiskCategory) domain.Prediction {
	return domain.Prediction{Probabilities: domain.OneHot(c), Category: c}
}

// --- CachedPredictor tests ---

func TestCachedPredictor_CacheHit(t *testing.T) {
	inner := &countingPredictor{}
	metrics := observability.NewMetricsForTesting()
	c := NewCachedPredictor(inner, 10, metrics.PredictionCache)

	first := c.Predict(sample(104))
	second := c.Predict(sample(104))

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PredictionCache.WithLabelValues("hit")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PredictionCache.WithLabelValues("miss")), 1e-9)
}

func TestCachedPredictor_DifferentSamplesMiss(t *testing.T) {
	inner := &countingPredictor{}
	c := NewCachedPredictor(inner, 10, nil)

	c.Predict(sample(92))
	c.Predict(sample(92.1))
	c.Predict(domain.Sample{TemperatureF: 92, Humidity: 51})

	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 3, c.Len())
}

func TestCachedPredictor_Reset(t *testing.T) {
	inner := &countingPredictor{}
	c := NewCachedPredictor(inner, 10, nil)

	c.Predict(sample(92))
	replaced := false
	require.NoError(t, c.Reset(func() error {
		replaced = true
		return nil
	}))
	assert.True(t, replaced)
	assert.Zero(t, c.Len())

	c.Predict(sample(92))
	assert.Equal(t, 2, inner.calls)
}

func TestCachedPredictor_ResetFailureKeepsCache(t *testing.T) {
	inner := &countingPredictor{}
	c := NewCachedPredictor(inner, 10, nil)

	c.Predict(sample(92))
	err := c.Reset(func() error { return errors.New("model file missing") })
	require.Error(t, err)
	assert.Equal(t, 1, c.Len())

	c.Predict(sample(92))
	assert.Equal(t, 1, inner.calls)
}

func TestCachedPredictor_ResetServesReplacedModel(t *testing.T) {
	classifier, err := model.NewClassifier(model.NewRiskNetwork(1))
	require.NoError(t, err)
	c := NewCachedPredictor(classifier, 10, nil)
	s := domain.Sample{TemperatureF: 98, Humidity: 60}

	before := c.Predict(s)
	next := model.NewRiskNetwork(2)
	require.NoError(t, c.Reset(func() error { return classifier.Swap(next) }))

	want, err := model.NewClassifier(next)
	require.NoError(t, err)
	after := c.Predict(s)
	assert.Equal(t, want.Predict(s), after)
	assert.NotEqual(t, before.Probabilities, after.Probabilities)
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put(sample(1), prediction(domain.Caution))
	c.put(sample(2), prediction(domain.Danger))

	result, ok := c.get(sample(1))
	assert.True(t, ok)
	assert.Equal(t, domain.Caution, result.Category)

	_, ok = c.get(sample(99))
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put(sample(1), prediction(domain.Caution))
	c.put(sample(2), prediction(domain.ExtremeCaution))
	c.put(sample(3), prediction(domain.Danger)) // evicts 1

	_, ok := c.get(sample(1))
	assert.False(t, ok, "oldest entry should have been evicted")

	result, ok := c.get(sample(2))
	assert.True(t, ok)
	assert.Equal(t, domain.ExtremeCaution, result.Category)

	result, ok = c.get(sample(3))
	assert.True(t, ok)
	assert.Equal(t, domain.Danger, result.Category)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put(sample(1), prediction(domain.Caution))
	c.put(sample(2), prediction(domain.Caution))

	c.get(sample(1))

	// 2 is now least recently used.
	c.put(sample(3), prediction(domain.Caution))

	_, ok := c.get(sample(1))
	assert.True(t, ok, "recently accessed entry should survive")

	_, ok = c.get(sample(2))
	assert.False(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put(sample(1), prediction(domain.Caution))
	c.put(sample(1), prediction(domain.ExtremeDanger))

	result, ok := c.get(sample(1))
	assert.True(t, ok)
	assert.Equal(t, domain.ExtremeDanger, result.Category)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_MinimumCapacity(t *testing.T) {
	c := newLRUCache(0)
	c.put(sample(1), prediction(domain.Caution))
	c.put(sample(2), prediction(domain.Danger))

	_, ok := c.get(sample(2))
	assert.True(t, ok)
	assert.Equal(t, 1, c.len())
}
