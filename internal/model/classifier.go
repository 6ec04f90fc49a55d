package model

import (
	"fmt"
	"sync"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/domain"
)

// Classifier adapts a trained Network to domain.Predictor.
type Classifier struct {
	mu  sync.RWMutex
	net *Network
}

// NewClassifier checks that net takes normalized samples and emits one
// probability per risk category.
func NewClassifier(net *Network) (*Classifier, error) {
	if net == nil || len(net.Layers) == 0 {
		return nil, fmt.Errorf("%w: empty network", ErrShape)
	}
	if net.Inputs() != domain.NumFeatures || net.Outputs() != domain.NumCategories {
		return nil, fmt.Errorf("%w: network is %d -> %d, want %d -> %d",
			ErrShape, net.Inputs(), net.Outputs(), domain.NumFeatures, domain.NumCategories)
	}
	if s := net.Metadata.FeatureScales; len(s) > 0 {
		if len(s) != domain.NumFeatures || s[0] != domain.TemperatureScale || s[1] != domain.HumidityScale {
			return nil, fmt.Errorf("%w: model feature scales %v do not match %v",
				ErrFormat, s, []float64{domain.TemperatureScale, domain.HumidityScale})
		}
	}
	return &Classifier{net: net}, nil
}

// LoadClassifier reads a saved model from path.
func LoadClassifier(path string) (*Classifier, error) {
	net, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewClassifier(net)
}

// Predict returns the class probabilities for s and their arg-max category.
func (c *Classifier) Predict(s domain.Sample) domain.Prediction {
	x := domain.Normalize(s)
	c.mu.RLock()
	p, err := c.net.Predict([][]float64{x[:]})
	c.mu.RUnlock()
	if err != nil {
		// Shapes are checked in NewClassifier.
		panic(err)
	}
	var out domain.Prediction
	copy(out.Probabilities[:], p[0])
	out.Category = domain.ArgMax(p[0])
	return out
}

// Metadata returns the training metadata of the wrapped network.
func (c *Classifier) Metadata() Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.net.Metadata
}

// Swap replaces the wrapped network after the same checks as NewClassifier.
func (c *Classifier) Swap(net *Network) error {
	checked, err := NewClassifier(net)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.net = checked.net
	c.mu.Unlock()
	return nil
}

// Reload reads the model at path and swaps it in. The current network is kept
// if the file is missing or invalid.
func (c *Classifier) Reload(path string) error {
	net, err := LoadFile(path)
	if err != nil {
		return err
	}
	return c.Swap(net)
}
