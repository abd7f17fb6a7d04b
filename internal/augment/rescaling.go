package augment

import (
	"github.com/born-ml/vision/internal/tensor"
)

// Rescaling computes x*scale + offset. It runs in training and inference.
type Rescaling struct {
	scale, offset float32
}

// NewRescaling creates a rescaling layer.
func NewRescaling(scale, offset float32) *Rescaling {
	return &Rescaling{scale: scale, offset: offset}
}

// Name returns "rescaling".
func (r *Rescaling) Name() string { return "rescaling" }

// Scale returns the multiplier.
func (r *Rescaling) Scale() float32 { return r.scale }

// Offset returns the additive offset.
func (r *Rescaling) Offset() float32 { return r.offset }

// OutputShape returns in.
func (r *Rescaling) OutputShape(in tensor.Shape) tensor.Shape { return in }

// Apply rescales x regardless of mode.
func (r *Rescaling) Apply(x *tensor.RawTensor, _ bool) *tensor.RawTensor {
	requireNCHW("rescaling", x)
	out := x.Clone()
	data := out.AsFloat32()
	for i, v := range data {
		data[i] = v*r.scale + r.offset
	}
	return out
}
