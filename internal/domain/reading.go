package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// epochMillisThreshold is 2000-01-01T00:00:00Z in epoch milliseconds. Numeric
// timestamps below it are device uptime counters, not wall-clock times.
const epochMillisThreshold = 946684800000

var (
	// ErrIncompleteReading is returned when a reading lacks temperature or humidity.
	ErrIncompleteReading = errors.New("reading is missing temperature or humidity")

	// ErrImplausibleReading is returned for values no cabin sensor can report.
	ErrImplausibleReading = errors.New("reading is outside sensor range")

	// ErrMissingDevice is returned when neither the payload nor the message key
	// names the device.
	ErrMissingDevice = errors.New("reading has no device_id")
)

// Sensor limits; anything outside is a faulty probe or a corrupt payload.
const (
	minSensorTemperatureC = -40.0
	maxSensorTemperatureC = 85.0
)

// RawReading is an unprocessed telemetry message from the source topic.
type RawReading struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Reading is one cabin telemetry sample as published by the device.
type Reading struct {
	DeviceID     string          `json:"device_id"`
	TemperatureC *float64        `json:"temp_c"`
	Humidity     *float64        `json:"humidity"`
	RawTimestamp json.RawMessage `json:"timestamp,omitempty"`

	// Time is resolved from RawTimestamp, falling back to the message time.
	Time time.Time `json:"-"`
}

// Prediction is a classifier's probability distribution over risk categories.
type Prediction struct {
	Probabilities [NumCategories]float64 `json:"probabilities"`
	Category      RiskCategory           `json:"category"`
}

// Predictor scores a sample. Implementations must be safe for sequential reuse.
type Predictor interface {
	Predict(s Sample) Prediction
}

// Assessment is the risk evaluation of a single reading.
type Assessment struct {
	DeviceID          string                 `json:"device_id"`
	ReadingTime       time.Time              `json:"reading_time"`
	TemperatureC      float64                `json:"temp_c"`
	TemperatureF      float64                `json:"temp_f"`
	Humidity          float64                `json:"humidity"`
	HeatIndex         float64                `json:"heat_index"`
	RuleCategory      RiskCategory           `json:"rule_category"`
	PredictedCategory RiskCategory           `json:"predicted_category"`
	Probabilities     [NumCategories]float64 `json:"probabilities"`
	SafetyTrigger     bool                   `json:"safety_trigger"`
	ProcessedAt       time.Time              `json:"processed_at"`
}

// ParseReading decodes a RawReading's JSON value. The device ID falls back to
// the message key, and the reading time to the message timestamp.
func ParseReading(raw RawReading) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return Reading{}, fmt.Errorf("parse reading: %w", err)
	}
	if r.TemperatureC == nil || r.Humidity == nil {
		return Reading{}, ErrIncompleteReading
	}
	if *r.Humidity < 0 || *r.Humidity > 100 {
		return Reading{}, fmt.Errorf("%w: humidity %g%%", ErrImplausibleReading, *r.Humidity)
	}
	if *r.TemperatureC < minSensorTemperatureC || *r.TemperatureC > maxSensorTemperatureC {
		return Reading{}, fmt.Errorf("%w: temperature %gC", ErrImplausibleReading, *r.TemperatureC)
	}
	if strings.TrimSpace(r.DeviceID) == "" {
		r.DeviceID = strings.TrimSpace(string(raw.Key))
	}
	if r.DeviceID == "" {
		return Reading{}, ErrMissingDevice
	}
	r.Time = parseReadingTime(r.RawTimestamp, raw.Timestamp)
	return r, nil
}

// parseReadingTime accepts an RFC 3339 string or epoch milliseconds.
func parseReadingTime(raw json.RawMessage, fallback time.Time) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback.UTC()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return fallback.UTC()
		}
		return t.UTC()
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil && ms >= epochMillisThreshold {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return fallback.UTC()
}

// Assess computes the heat index and risk categories for a reading. A nil
// predictor falls back to the rule-based category.
func Assess(r Reading, p Predictor) Assessment {
	tempC := *r.TemperatureC
	humidity := *r.Humidity
	s := Sample{TemperatureF: CelsiusToFahrenheit(tempC), Humidity: humidity}
	labeled := Label(s)

	pred := Prediction{Probabilities: OneHot(labeled.Category), Category: labeled.Category}
	if p != nil {
		pred = p.Predict(s)
	}

	return Assessment{
		DeviceID:          r.DeviceID,
		ReadingTime:       r.Time,
		TemperatureC:      tempC,
		TemperatureF:      s.TemperatureF,
		Humidity:          humidity,
		HeatIndex:         labeled.HeatIndex,
		RuleCategory:      labeled.Category,
		PredictedCategory: pred.Category,
		Probabilities:     pred.Probabilities,
		SafetyTrigger:     pred.Category >= Danger,
		ProcessedAt:       clock.Now(),
	}
}
