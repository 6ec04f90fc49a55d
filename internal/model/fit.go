package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// fitStream separates per-epoch shuffling from weight init for the same seed.
const fitStream uint64 = 0x7368756666316531 // "shuff1e1"

// Adam defaults match the common Keras configuration.
const (
	DefaultLearningRate = 0.001
	adamBeta1           = 0.9
	adamBeta2           = 0.999
	adamEpsilon         = 1e-7
)

// FitOptions configures Fit.
type FitOptions struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         uint64

	// OnEpoch, if set, is called after each epoch. Returning an error stops
	// training and Fit returns that error.
	OnEpoch func(EpochStats) error
}

// EpochStats summarizes one training epoch. Validation fields are zero when
// no validation data was supplied.
type EpochStats struct {
	Epoch              int     `json:"epoch"`
	Loss               float64 `json:"loss"`
	Accuracy           float64 `json:"accuracy"`
	ValidationLoss     float64 `json:"val_loss"`
	ValidationAccuracy float64 `json:"val_accuracy"`
}

// History is the per-epoch record of a Fit call.
type History []EpochStats

// Last returns the final epoch, or the zero value for an empty history.
func (h History) Last() EpochStats {
	if len(h) == 0 {
		return EpochStats{}
	}
	return h[len(h)-1]
}

// adam holds first and second moment estimates for every parameter.
type adam struct {
	lr   float64
	step int
	mW   []*mat.Dense
	vW   []*mat.Dense
	mB   [][]float64
	vB   [][]float64
}

func newAdam(n *Network, lr float64) *adam {
	a := &adam{lr: lr}
	for _, l := range n.Layers {
		r, c := l.W.Dims()
		a.mW = append(a.mW, mat.NewDense(r, c, nil))
		a.vW = append(a.vW, mat.NewDense(r, c, nil))
		a.mB = append(a.mB, make([]float64, c))
		a.vB = append(a.vB, make([]float64, c))
	}
	return a
}

// apply performs one update. The bias correction is folded into the step
// size, so epsilon is added to the uncorrected second moment.
func (a *adam) apply(n *Network, g gradients) {
	a.step++
	t := float64(a.step)
	lrT := a.lr * math.Sqrt(1-math.Pow(adamBeta2, t)) / (1 - math.Pow(adamBeta1, t))

	update := func(p, m, v []float64, grad []float64) {
		for i, gi := range grad {
			m[i] = adamBeta1*m[i] + (1-adamBeta1)*gi
			v[i] = adamBeta2*v[i] + (1-adamBeta2)*gi*gi
			p[i] -= lrT * m[i] / (math.Sqrt(v[i]) + adamEpsilon)
		}
	}
	for i, l := range n.Layers {
		update(l.W.RawMatrix().Data, a.mW[i].RawMatrix().Data, a.vW[i].RawMatrix().Data, g.w[i].RawMatrix().Data)
		update(l.B, a.mB[i], a.vB[i], g.b[i])
	}
}

// Fit trains the network with mini-batch Adam on categorical cross-entropy.
// Training rows are reshuffled every epoch. Validation data, if any, is only
// evaluated for monitoring and never updates weights.
func (n *Network) Fit(ctx context.Context, x, y, valX, valY [][]float64, opts FitOptions) (History, error) {
	if opts.Epochs <= 0 {
		return nil, fmt.Errorf("epochs must be positive, got %d", opts.Epochs)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultLearningRate
	}

	xm, ym, err := n.trainingMatrices(x, y)
	if err != nil {
		return nil, err
	}
	var vxm, vym *mat.Dense
	if len(valX) > 0 || len(valY) > 0 {
		if vxm, vym, err = n.trainingMatrices(valX, valY); err != nil {
			return nil, fmt.Errorf("validation: %w", err)
		}
	}

	rows := len(x)
	rng := rand.New(rand.NewPCG(opts.Seed, fitStream))
	opt := newAdam(n, opts.LearningRate)
	history := make(History, 0, opts.Epochs)

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		perm := rng.Perm(rows)
		var lossSum, correct float64
		for start := 0; start < rows; start += opts.BatchSize {
			end := min(start+opts.BatchSize, rows)
			bx, by := gatherRows(xm, perm[start:end]), gatherRows(ym, perm[start:end])

			p := n.forward(bx)
			size := float64(end - start)
			lossSum += crossEntropy(p.out, by) * size
			correct += accuracyOf(p.out, by) * size
			opt.apply(n, n.backward(p, by))
		}

		stats := EpochStats{
			Epoch:    epoch,
			Loss:     lossSum / float64(rows),
			Accuracy: correct / float64(rows),
		}
		if vxm != nil {
			vp := n.forward(vxm).out
			stats.ValidationLoss = crossEntropy(vp, vym)
			stats.ValidationAccuracy = accuracyOf(vp, vym)
		}
		history = append(history, stats)

		if opts.OnEpoch != nil {
			if err := opts.OnEpoch(stats); err != nil {
				return history, err
			}
		}
	}
	return history, nil
}

func gatherRows(m *mat.Dense, idx []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		out.SetRow(i, m.RawRowView(r))
	}
	return out
}
