package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDeviceID = "car_001"

type fixedPredictor struct {
	pred  Prediction
	calls int
}

func (f *fixedPredictor) Predict(_ Sample) Prediction {
	f.calls++
	return f.pred
}

func TestParseReading(t *testing.T) {
	msgTime := time.Date(2025, time.July, 14, 15, 0, 0, 0, time.UTC)

	t.Run("ISO timestamp", func(t *testing.T) {
		raw := RawReading{
			Value:     []byte(`{"device_id":"car_001","temp_c":40,"humidity":70,"timestamp":"2025-07-14T15:04:05Z"}`),
			Timestamp: msgTime,
		}
		r, err := ParseReading(raw)
		require.NoError(t, err)
		assert.Equal(t, testDeviceID, r.DeviceID)
		assert.InDelta(t, 40.0, *r.TemperatureC, 1e-12)
		assert.InDelta(t, 70.0, *r.Humidity, 1e-12)
		assert.Equal(t, time.Date(2025, time.July, 14, 15, 4, 5, 0, time.UTC), r.Time)
	})

	t.Run("epoch millis timestamp", func(t *testing.T) {
		raw := RawReading{
			Value:     []byte(`{"device_id":"car_001","temp_c":30.5,"humidity":55,"timestamp":1752505445000}`),
			Timestamp: msgTime,
		}
		r, err := ParseReading(raw)
		require.NoError(t, err)
		assert.Equal(t, time.UnixMilli(1752505445000).UTC(), r.Time)
	})

	t.Run("uptime millis falls back to message time", func(t *testing.T) {
		raw := RawReading{
			Value:     []byte(`{"device_id":"car_001","temp_c":30.5,"humidity":55,"timestamp":123456}`),
			Timestamp: msgTime,
		}
		r, err := ParseReading(raw)
		require.NoError(t, err)
		assert.Equal(t, msgTime, r.Time)
	})

	t.Run("unparseable timestamp falls back to message time", func(t *testing.T) {
		raw := RawReading{
			Value:     []byte(`{"device_id":"car_001","temp_c":30.5,"humidity":55,"timestamp":"yesterday"}`),
			Timestamp: msgTime,
		}
		r, err := ParseReading(raw)
		require.NoError(t, err)
		assert.Equal(t, msgTime, r.Time)
	})

	t.Run("device ID from key", func(t *testing.T) {
		raw := RawReading{
			Key:       []byte("car_002"),
			Value:     []byte(`{"temp_c":25,"humidity":40}`),
			Timestamp: msgTime,
		}
		r, err := ParseReading(raw)
		require.NoError(t, err)
		assert.Equal(t, "car_002", r.DeviceID)
		assert.Equal(t, msgTime, r.Time)
	})

	t.Run("missing humidity", func(t *testing.T) {
		raw := RawReading{Value: []byte(`{"device_id":"car_001","temp_c":25}`)}
		_, err := ParseReading(raw)
		require.ErrorIs(t, err, ErrIncompleteReading)
	})

	t.Run("implausible values", func(t *testing.T) {
		for _, body := range []string{
			`{"device_id":"car_001","temp_c":25,"humidity":140}`,
			`{"device_id":"car_001","temp_c":25,"humidity":-1}`,
			`{"device_id":"car_001","temp_c":300,"humidity":50}`,
		} {
			_, err := ParseReading(RawReading{Value: []byte(body)})
			require.ErrorIs(t, err, ErrImplausibleReading, body)
		}
	})

	t.Run("no device ID and no key", func(t *testing.T) {
		for _, raw := range []RawReading{
			{Value: []byte(`{"temp_c":30,"humidity":50}`)},
			{Key: []byte("  "), Value: []byte(`{"device_id":" ","temp_c":30,"humidity":50}`)},
		} {
			_, err := ParseReading(raw)
			require.ErrorIs(t, err, ErrMissingDevice, string(raw.Value))
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		raw := RawReading{Value: []byte("{invalid json")}
		_, err := ParseReading(raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse reading")
	})
}

func TestAssess(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.July, 14, 16, 0, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() { SetClock(nil) })

	tempC, humidity := 40.0, 70.0
	reading := Reading{DeviceID: testDeviceID, TemperatureC: &tempC, Humidity: &humidity}

	t.Run("rule based without predictor", func(t *testing.T) {
		a := Assess(reading, nil)
		assert.Equal(t, testDeviceID, a.DeviceID)
		assert.InDelta(t, 104.0, a.TemperatureF, 1e-9)
		assert.InDelta(t, 161.404, a.HeatIndex, 0.01)
		assert.Equal(t, ExtremeDanger, a.RuleCategory)
		assert.Equal(t, ExtremeDanger, a.PredictedCategory)
		assert.Equal(t, OneHot(ExtremeDanger), a.Probabilities)
		assert.True(t, a.SafetyTrigger)
		assert.Equal(t, fakeClock.Now(), a.ProcessedAt)
	})

	t.Run("predictor decides trigger", func(t *testing.T) {
		p := &fixedPredictor{pred: Prediction{
			Probabilities: [NumCategories]float64{0.1, 0.7, 0.15, 0.05},
			Category:      ExtremeCaution,
		}}
		a := Assess(reading, p)
		assert.Equal(t, 1, p.calls)
		assert.Equal(t, ExtremeDanger, a.RuleCategory)
		assert.Equal(t, ExtremeCaution, a.PredictedCategory)
		assert.False(t, a.SafetyTrigger)
	})
}
