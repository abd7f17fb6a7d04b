// Package optim implements first-order optimizers over nn parameters.
//
// Optimizers consume the gradient map produced by autodiff.Backward and
// update parameter storage in place. Parameters without a gradient (frozen,
// or not reached by the loss) are left untouched.
package optim

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/tensor"
)

// ErrUnknownOptimizer is returned by New for an unrecognised name.
var ErrUnknownOptimizer = errors.New("unknown optimizer")

// Optimizer updates parameters from gradients.
type Optimizer interface {
	// Step applies one update. grads maps parameter storage to its gradient.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// LR returns the current learning rate.
	LR() float32

	// SetLR changes the learning rate.
	SetLR(lr float32)
}

// Config selects and parameterises an optimizer by name.
type Config struct {
	Name     string  // "adam" or "sgd"
	LR       float32 // 0 picks the optimizer default
	Momentum float32 // SGD only
}

// New builds the optimizer named by cfg.Name over params.
func New[B tensor.Backend](params []*nn.Parameter[B], cfg Config) (Optimizer, error) {
	switch cfg.Name {
	case "", "adam":
		return NewAdam(params, AdamConfig{LR: cfg.LR}), nil
	case "sgd":
		return NewSGD(params, SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}), nil
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Name, ErrUnknownOptimizer)
	}
}

// gradientFor returns the gradient of a trainable parameter, or nil.
func gradientFor[B tensor.Backend](p *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	if p == nil || !p.Trainable() {
		return nil
	}
	g, ok := grads[p.Tensor().Raw()]
	if !ok {
		return nil
	}
	if !g.Shape().Equal(p.Tensor().Shape()) {
		panic(fmt.Sprintf("optim: gradient shape %v for %s %v", g.Shape(), p.Name(), p.Tensor().Shape()))
	}
	return g.AsFloat32()
}

// axpy computes y += alpha * x.
func axpy(alpha float32, x, y []float32) {
	blas32.Axpy(alpha, vec(x), vec(y))
}

// scal computes x *= alpha.
func scal(alpha float32, x []float32) {
	blas32.Scal(alpha, vec(x))
}

func vec(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}

// slots holds one buffer per parameter, keyed by the parameter's storage so
// that parameters sharing a name never share state. Names are only used for
// the exported state dict.
type slots map[*tensor.RawTensor][]float32

func (s slots) get(key *tensor.RawTensor, n int) []float32 {
	buf, ok := s[key]
	if !ok {
		buf = make([]float32, n)
		s[key] = buf
	}
	return buf
}

// exportSlots writes the buffer of each param in s as "<name>/<suffix>".
func exportSlots[B tensor.Backend](s slots, params []*nn.Parameter[B], suffix string, out map[string]*tensor.RawTensor) {
	for _, p := range params {
		buf, ok := s[p.Tensor().Raw()]
		if !ok {
			continue
		}
		raw, err := tensor.WrapFloat32(append([]float32(nil), buf...), tensor.Shape{len(buf)})
		if err != nil {
			panic(err)
		}
		out[nn.Key(p.Name(), suffix)] = raw
	}
}

// loadSlots restores buffers written by exportSlots. Missing entries are skipped.
func loadSlots[B tensor.Backend](s slots, params []*nn.Parameter[B], suffix string, state map[string]*tensor.RawTensor) error {
	for _, p := range params {
		raw, ok := state[nn.Key(p.Name(), suffix)]
		if !ok {
			continue
		}
		if raw.NumElements() != p.NumElements() || raw.DType() != tensor.Float32 {
			return fmt.Errorf("optim: %s/%s has %d elements, want %d: %w", p.Name(), suffix, raw.NumElements(), p.NumElements(), nn.ErrStateShape)
		}
		s[p.Tensor().Raw()] = append([]float32(nil), raw.AsFloat32()...)
	}
	return nil
}
