// Package model implements the dense feedforward classifier used to predict
// heat-illness risk, on top of gonum matrices.
package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Activation names a layer's output nonlinearity.
type Activation string

const (
	ReLU    Activation = "relu"
	Softmax Activation = "softmax"
)

var (
	// ErrShape is returned when input or label rows do not match the network.
	ErrShape = errors.New("shape mismatch")

	// ErrEmpty is returned when training data has no rows.
	ErrEmpty = errors.New("no samples")
)

// initStream separates weight-init randomness from the dataset streams.
const initStream uint64 = 0x676c6f726f747531 // "glorotu1"

// LayerSpec describes one dense layer.
type LayerSpec struct {
	Units      int
	Activation Activation
}

// RiskLayers is the 16 -> 8 -> 4 architecture of the risk classifier.
var RiskLayers = []LayerSpec{
	{Units: 16, Activation: ReLU},
	{Units: 8, Activation: ReLU},
	{Units: 4, Activation: Softmax},
}

// Dense is a fully connected layer: out = act(in·W + b).
type Dense struct {
	Activation Activation
	W          *mat.Dense // inputs x units
	B          []float64  // units
}

// Network is a stack of dense layers. Hidden layers use ReLU and the last
// layer uses softmax, which pairs with categorical cross-entropy.
type Network struct {
	Layers   []*Dense
	Metadata Metadata
}

// New builds a network with Glorot-uniform weights and zero biases.
func New(inputs int, specs []LayerSpec, seed uint64) (*Network, error) {
	if inputs <= 0 || len(specs) == 0 {
		return nil, fmt.Errorf("%w: %d inputs, %d layers", ErrShape, inputs, len(specs))
	}
	for i, s := range specs {
		if s.Units <= 0 {
			return nil, fmt.Errorf("%w: layer %d has %d units", ErrShape, i, s.Units)
		}
		last := i == len(specs)-1
		switch {
		case last && s.Activation != Softmax:
			return nil, fmt.Errorf("output layer activation %q: want %q", s.Activation, Softmax)
		case !last && s.Activation != ReLU:
			return nil, fmt.Errorf("hidden layer %d activation %q: want %q", i, s.Activation, ReLU)
		}
	}

	src := rand.New(rand.NewPCG(seed, initStream))
	n := &Network{Layers: make([]*Dense, len(specs))}
	fanIn := inputs
	for i, s := range specs {
		limit := math.Sqrt(6.0 / float64(fanIn+s.Units))
		u := distuv.Uniform{Min: -limit, Max: limit, Src: src}
		w := make([]float64, fanIn*s.Units)
		for j := range w {
			w[j] = u.Rand()
		}
		n.Layers[i] = &Dense{
			Activation: s.Activation,
			W:          mat.NewDense(fanIn, s.Units, w),
			B:          make([]float64, s.Units),
		}
		fanIn = s.Units
	}
	return n, nil
}

// NewRiskNetwork builds the 2 -> 16 -> 8 -> 4 risk classifier.
func NewRiskNetwork(seed uint64) *Network {
	n, err := New(2, RiskLayers, seed)
	if err != nil {
		panic(err) // RiskLayers is a valid constant architecture
	}
	return n
}

// Inputs returns the width of the input layer.
func (n *Network) Inputs() int {
	r, _ := n.Layers[0].W.Dims()
	return r
}

// Outputs returns the number of output classes.
func (n *Network) Outputs() int {
	_, c := n.Layers[len(n.Layers)-1].W.Dims()
	return c
}

// Predict returns one probability row per input row.
func (n *Network) Predict(x [][]float64) ([][]float64, error) {
	xm, err := n.inputMatrix(x)
	if err != nil {
		return nil, err
	}
	return rowsOf(n.forward(xm).output()), nil
}

// Evaluate returns the mean categorical cross-entropy and accuracy of the
// network on (x, y).
func (n *Network) Evaluate(x, y [][]float64) (loss, accuracy float64, err error) {
	xm, ym, err := n.trainingMatrices(x, y)
	if err != nil {
		return 0, 0, err
	}
	p := n.forward(xm).output()
	return crossEntropy(p, ym), accuracyOf(p, ym), nil
}

// pass holds the activations of one forward pass, kept for backpropagation.
// inputs[i] feeds layer i; z[i] is layer i's pre-activation.
type pass struct {
	inputs []*mat.Dense
	z      []*mat.Dense
	out    *mat.Dense
}

func (p *pass) output() *mat.Dense { return p.out }

func (n *Network) forward(x *mat.Dense) *pass {
	p := &pass{
		inputs: make([]*mat.Dense, len(n.Layers)),
		z:      make([]*mat.Dense, len(n.Layers)),
	}
	a := x
	for i, l := range n.Layers {
		p.inputs[i] = a
		z := l.preActivation(a)
		p.z[i] = z
		a = activate(l.Activation, z)
	}
	p.out = a
	return p
}

func (l *Dense) preActivation(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	_, units := l.W.Dims()
	z := mat.NewDense(rows, units, nil)
	z.Mul(x, l.W)
	for i := 0; i < rows; i++ {
		floats.Add(z.RawRowView(i), l.B)
	}
	return z
}

func activate(act Activation, z *mat.Dense) *mat.Dense {
	rows, cols := z.Dims()
	a := mat.NewDense(rows, cols, nil)
	switch act {
	case ReLU:
		a.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z)
	case Softmax:
		a.Copy(z)
		for i := 0; i < rows; i++ {
			softmaxInPlace(a.RawRowView(i))
		}
	default:
		a.Copy(z)
	}
	return a
}

// softmaxInPlace normalizes row into a probability distribution. Subtracting
// the max keeps exp from overflowing.
func softmaxInPlace(row []float64) {
	m := floats.Max(row)
	for j, v := range row {
		row[j] = math.Exp(v - m)
	}
	floats.Scale(1/floats.Sum(row), row)
}

// gradients holds dLoss/dW and dLoss/db for every layer.
type gradients struct {
	w []*mat.Dense
	b [][]float64
}

// backward computes gradients of the mean cross-entropy for a forward pass
// against one-hot labels y. Softmax and cross-entropy combine into P - Y.
func (n *Network) backward(p *pass, y *mat.Dense) gradients {
	rows, _ := y.Dims()
	g := gradients{
		w: make([]*mat.Dense, len(n.Layers)),
		b: make([][]float64, len(n.Layers)),
	}

	_, outCols := p.out.Dims()
	delta := mat.NewDense(rows, outCols, nil)
	delta.Sub(p.out, y)
	delta.Scale(1/float64(rows), delta)

	for i := len(n.Layers) - 1; i >= 0; i-- {
		l := n.Layers[i]
		in, units := l.W.Dims()

		gw := mat.NewDense(in, units, nil)
		gw.Mul(p.inputs[i].T(), delta)
		g.w[i] = gw

		gb := make([]float64, units)
		for r := 0; r < rows; r++ {
			floats.Add(gb, delta.RawRowView(r))
		}
		g.b[i] = gb

		if i == 0 {
			break
		}
		prev := mat.NewDense(rows, in, nil)
		prev.Mul(delta, l.W.T())
		z := p.z[i-1]
		prev.Apply(func(r, c int, v float64) float64 {
			if z.At(r, c) > 0 {
				return v
			}
			return 0
		}, prev)
		delta = prev
	}
	return g
}

// probClip bounds probabilities away from 0 and 1 before taking logs.
const probClip = 1e-7

func crossEntropy(p, y *mat.Dense) float64 {
	rows, cols := p.Dims()
	if rows == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if t := y.At(i, j); t != 0 {
				pr := math.Min(math.Max(p.At(i, j), probClip), 1-probClip)
				total -= t * math.Log(pr)
			}
		}
	}
	return total / float64(rows)
}

func accuracyOf(p, y *mat.Dense) float64 {
	rows, _ := p.Dims()
	if rows == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < rows; i++ {
		if floats.MaxIdx(p.RawRowView(i)) == floats.MaxIdx(y.RawRowView(i)) {
			correct++
		}
	}
	return float64(correct) / float64(rows)
}

func (n *Network) inputMatrix(x [][]float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, ErrEmpty
	}
	return toMatrix(x, n.Inputs(), "input")
}

func (n *Network) trainingMatrices(x, y [][]float64) (*mat.Dense, *mat.Dense, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("%w: %d input rows, %d label rows", ErrShape, len(x), len(y))
	}
	xm, err := n.inputMatrix(x)
	if err != nil {
		return nil, nil, err
	}
	ym, err := toMatrix(y, n.Outputs(), "label")
	if err != nil {
		return nil, nil, err
	}
	return xm, ym, nil
}

func toMatrix(rows [][]float64, width int, what string) (*mat.Dense, error) {
	data := make([]float64, 0, len(rows)*width)
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("%w: %s row %d has %d columns, want %d", ErrShape, what, i, len(r), width)
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), width, data), nil
}

func rowsOf(m *mat.Dense) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		copy(out[i], m.RawRowView(i))
	}
	return out
}
