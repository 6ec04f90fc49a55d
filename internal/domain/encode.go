package domain

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Fixed feature divisors. They are stored with the model so scoring uses the
// same scaling as training.
const (
	TemperatureScale = 120.0
	HumidityScale    = 100.0
)

// NumFeatures is the width of a normalized feature row.
const NumFeatures = 2

// ErrInvalidOneHot is returned when a vector is not a one-hot encoding.
var ErrInvalidOneHot = errors.New("invalid one-hot vector")

// Normalize scales a sample into the classifier's input space.
func Normalize(s Sample) [NumFeatures]float64 {
	return [NumFeatures]float64{s.TemperatureF / TemperatureScale, s.Humidity / HumidityScale}
}

// Denormalize inverts Normalize.
func Denormalize(x [NumFeatures]float64) Sample {
	return Sample{TemperatureF: x[0] * TemperatureScale, Humidity: x[1] * HumidityScale}
}

// OneHot encodes c as a vector with a single 1 at index c.
func OneHot(c RiskCategory) [NumCategories]float64 {
	var v [NumCategories]float64
	if c.Valid() {
		v[c] = 1
	}
	return v
}

// DecodeOneHot returns the category whose column holds the single 1.
func DecodeOneHot(v []float64) (RiskCategory, error) {
	if len(v) != NumCategories {
		return Caution, fmt.Errorf("%w: length %d, want %d", ErrInvalidOneHot, len(v), NumCategories)
	}
	hot := -1
	for i, x := range v {
		switch x {
		case 0:
		case 1:
			if hot >= 0 {
				return Caution, fmt.Errorf("%w: more than one hot column", ErrInvalidOneHot)
			}
			hot = i
		default:
			return Caution, fmt.Errorf("%w: column %d holds %g", ErrInvalidOneHot, i, x)
		}
	}
	if hot < 0 {
		return Caution, fmt.Errorf("%w: no hot column", ErrInvalidOneHot)
	}
	return RiskCategory(hot), nil
}

// ArgMax picks the category with the highest probability. Ties resolve to the
// lower index. p must have NumCategories entries.
func ArgMax(p []float64) RiskCategory {
	return RiskCategory(floats.MaxIdx(p))
}
