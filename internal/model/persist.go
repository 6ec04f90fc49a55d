package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"
)

// FormatVersion is written to every saved model and checked on load.
const FormatVersion = 1

// ErrFormat is returned when a saved model cannot be reconstructed.
var ErrFormat = errors.New("invalid model file")

// Metadata records how a network was trained and how its inputs are scaled.
type Metadata struct {
	FeatureScales []float64  `json:"feature_scales,omitempty"`
	Classes       []string   `json:"classes,omitempty"`
	Seed          uint64     `json:"seed"`
	Epochs        int        `json:"epochs,omitempty"`
	BatchSize     int        `json:"batch_size,omitempty"`
	LearningRate  float64    `json:"learning_rate,omitempty"`
	Samples       int        `json:"samples,omitempty"`
	TrainedAt     time.Time  `json:"trained_at,omitzero"`
	Final         EpochStats `json:"final,omitzero"`
}

type layerFile struct {
	Activation Activation  `json:"activation"`
	Inputs     int         `json:"inputs"`
	Units      int         `json:"units"`
	Weights    [][]float64 `json:"weights"` // Inputs rows of Units columns
	Biases     []float64   `json:"biases"`
}

type networkFile struct {
	Version  int         `json:"version"`
	Layers   []layerFile `json:"layers"`
	Metadata Metadata    `json:"metadata"`
}

// Save writes the network and its metadata as JSON.
func (n *Network) Save(w io.Writer) error {
	f := networkFile{Version: FormatVersion, Metadata: n.Metadata}
	for _, l := range n.Layers {
		in, units := l.W.Dims()
		f.Layers = append(f.Layers, layerFile{
			Activation: l.Activation,
			Inputs:     in,
			Units:      units,
			Weights:    rowsOf(l.W),
			Biases:     append([]float64(nil), l.B...),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// SaveFile writes the network to path, replacing any existing file only once
// the new contents are fully written.
func (n *Network) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := n.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

// Load reads a network written by Save.
func Load(r io.Reader) (*Network, error) {
	var f networkFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrFormat, f.Version, FormatVersion)
	}
	if len(f.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrFormat)
	}

	n := &Network{Metadata: f.Metadata}
	prevUnits := f.Layers[0].Inputs
	for i, lf := range f.Layers {
		if lf.Inputs != prevUnits || lf.Inputs <= 0 || lf.Units <= 0 {
			return nil, fmt.Errorf("%w: layer %d is %dx%d after %d units", ErrFormat, i, lf.Inputs, lf.Units, prevUnits)
		}
		if len(lf.Biases) != lf.Units {
			return nil, fmt.Errorf("%w: layer %d has %d biases, want %d", ErrFormat, i, len(lf.Biases), lf.Units)
		}
		if len(lf.Weights) != lf.Inputs {
			return nil, fmt.Errorf("%w: layer %d has %d weight rows, want %d", ErrFormat, i, len(lf.Weights), lf.Inputs)
		}
		w, err := toMatrix(lf.Weights, lf.Units, fmt.Sprintf("layer %d weight", i))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		last := i == len(f.Layers)-1
		if (last && lf.Activation != Softmax) || (!last && lf.Activation != ReLU) {
			return nil, fmt.Errorf("%w: layer %d has activation %q", ErrFormat, i, lf.Activation)
		}
		n.Layers = append(n.Layers, &Dense{Activation: lf.Activation, W: w, B: lf.Biases})
		prevUnits = lf.Units
	}
	return n, nil
}

// LoadFile reads a network from path.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Equal reports whether two networks have identical layers.
func (n *Network) Equal(o *Network) bool {
	if len(n.Layers) != len(o.Layers) {
		return false
	}
	for i, l := range n.Layers {
		ol := o.Layers[i]
		if l.Activation != ol.Activation || !mat.Equal(l.W, ol.W) || len(l.B) != len(ol.B) {
			return false
		}
		for j := range l.B {
			if l.B[j] != ol.B[j] {
				return false
			}
		}
	}
	return true
}
