package nn

import (
	"github.com/born-ml/vision/internal/tensor"
)

// Parameter is a named learnable tensor.
//
// A trainable parameter requires gradients, so autodiff records every
// operation that reads it. Freezing a parameter stops that recording, which
// is how a frozen backbone stays out of the backward pass entirely.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter wraps t as a trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	t.SetRequiresGrad(true)
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the full parameter path, e.g. "conv1/conv/kernel".
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the parameter value.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.tensor }

// Trainable reports whether the parameter receives gradients.
func (p *Parameter[B]) Trainable() bool { return p.tensor.RequiresGrad() }

// SetTrainable freezes or unfreezes the parameter.
func (p *Parameter[B]) SetTrainable(v bool) { p.tensor.SetRequiresGrad(v) }

// NumElements returns the parameter size.
func (p *Parameter[B]) NumElements() int { return p.tensor.NumElements() }

// SetTrainable freezes or unfreezes every parameter in params.
func SetTrainable[B tensor.Backend](params []*Parameter[B], v bool) {
	for _, p := range params {
		p.SetTrainable(v)
	}
}

// TrainableOnly filters params down to the trainable ones.
func TrainableOnly[B tensor.Backend](params []*Parameter[B]) []*Parameter[B] {
	out := make([]*Parameter[B], 0, len(params))
	for _, p := range params {
		if p.Trainable() {
			out = append(out, p)
		}
	}
	return out
}

// CountElements sums the sizes of params.
func CountElements[B tensor.Backend](params []*Parameter[B]) int {
	n := 0
	for _, p := range params {
		n += p.NumElements()
	}
	return n
}
