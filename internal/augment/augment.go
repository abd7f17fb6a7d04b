// Package augment implements the image preprocessing stage that sits in front
// of a backbone: random flips, rotations and zooms while training, and a fixed
// rescaling that always runs.
//
// Layers operate on NCHW float32 batches and never track gradients; their
// output is a fresh tensor, the input is never modified. Random layers draw
// one set of parameters per image.
package augment

import (
	"errors"
	"fmt"

	"github.com/born-ml/vision/internal/tensor"
)

// ErrInvalidOption is returned for out-of-range layer options.
var ErrInvalidOption = errors.New("invalid augmentation option")

// Layer is one preprocessing step.
type Layer interface {
	// Name returns the layer name, e.g. "random_flip".
	Name() string

	// Apply transforms an NCHW batch. Random layers are the identity when
	// training is false.
	Apply(x *tensor.RawTensor, training bool) *tensor.RawTensor

	// OutputShape returns the NCHW shape produced for in.
	OutputShape(in tensor.Shape) tensor.Shape
}

// FillMode selects how points outside the image are sampled.
type FillMode string

// Fill modes.
const (
	FillReflect  FillMode = "reflect"  // d c b a | a b c d | d c b a
	FillConstant FillMode = "constant" // k k k k | a b c d | k k k k
	FillNearest  FillMode = "nearest"  // a a a a | a b c d | d d d d
	FillWrap     FillMode = "wrap"     // a b c d | a b c d | a b c d
)

// Interpolation selects the resampling kernel.
type Interpolation string

// Interpolation kernels.
const (
	Bilinear Interpolation = "bilinear"
	Nearest  Interpolation = "nearest"
)

func (m FillMode) validate() error {
	switch m {
	case FillReflect, FillConstant, FillNearest, FillWrap:
		return nil
	}
	return fmt.Errorf("fill mode %q: %w", m, ErrInvalidOption)
}

func (i Interpolation) validate() error {
	switch i {
	case Bilinear, Nearest:
		return nil
	}
	return fmt.Errorf("interpolation %q: %w", i, ErrInvalidOption)
}

func requireNCHW(op string, x *tensor.RawTensor) (n, c, h, w int) {
	s := x.Shape()
	if len(s) != 4 || x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: expected float32 [N, C, H, W], got %v %v", op, x.DType(), s))
	}
	return s[0], s[1], s[2], s[3]
}
