package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneHot_RoundTrip(t *testing.T) {
	for _, c := range Categories() {
		v := OneHot(c)

		sum := 0.0
		for _, x := range v {
			sum += x
		}
		assert.Equal(t, 1.0, sum)
		assert.Equal(t, 1.0, v[c])

		decoded, err := DecodeOneHot(v[:])
		require.NoError(t, err)
		assert.Equal(t, c, decoded)
	}
}

func TestDecodeOneHot_Invalid(t *testing.T) {
	tests := []struct {
		name string
		v    []float64
	}{
		{"wrong length", []float64{1, 0, 0}},
		{"no hot column", []float64{0, 0, 0, 0}},
		{"two hot columns", []float64{1, 0, 1, 0}},
		{"fractional", []float64{0.5, 0.5, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOneHot(tt.v)
			require.ErrorIs(t, err, ErrInvalidOneHot)
		})
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	samples := []Sample{
		{TemperatureF: 104, Humidity: 70},
		{TemperatureF: 92, Humidity: 50},
		{TemperatureF: 70.123456, Humidity: 94.99},
		{TemperatureF: -12, Humidity: 0},
	}

	for _, s := range samples {
		x := Normalize(s)
		back := Denormalize(x)
		assert.InDelta(t, s.TemperatureF, back.TemperatureF, 1e-12)
		assert.InDelta(t, s.Humidity, back.Humidity, 1e-12)
	}

	x := Normalize(Sample{TemperatureF: 120, Humidity: 100})
	assert.Equal(t, [NumFeatures]float64{1, 1}, x)
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, ExtremeDanger, ArgMax([]float64{0.01, 0.02, 0.07, 0.9}))
	assert.Equal(t, ExtremeCaution, ArgMax([]float64{0.2, 0.5, 0.2, 0.1}))
	// Ties resolve to the lower index.
	assert.Equal(t, Caution, ArgMax([]float64{0.25, 0.25, 0.25, 0.25}))
}
