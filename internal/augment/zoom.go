package augment

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/vision/internal/tensor"
)

// RandomZoom magnifies each image about its center by a factor drawn
// uniformly from [1-factor, 1+factor], the same on both axes.
type RandomZoom struct {
	factor float64
	sampler
	rng *rand.Rand
}

// NewRandomZoom creates a zoom layer.
func NewRandomZoom(factor float64, fill FillMode, interp Interpolation, rng *rand.Rand) *RandomZoom {
	if factor < 0 || factor >= 1 {
		panic(fmt.Sprintf("random_zoom: factor %v out of [0, 1)", factor))
	}
	return &RandomZoom{factor: factor, sampler: sampler{fill: fill, interp: interp}, rng: rng}
}

// Name returns "random_zoom".
func (z *RandomZoom) Name() string { return "random_zoom" }

// Factor returns the zoom bound.
func (z *RandomZoom) Factor() float64 { return z.factor }

// OutputShape returns in.
func (z *RandomZoom) OutputShape(in tensor.Shape) tensor.Shape { return in }

// Apply zooms images while training.
func (z *RandomZoom) Apply(x *tensor.RawTensor, training bool) *tensor.RawTensor {
	n, _, h, w := requireNCHW("random_zoom", x)
	if !training || z.factor == 0 {
		return x
	}
	forward := make([]*mat.Dense, n)
	for i := range forward {
		s := 1 + (z.rng.Float64()*2-1)*z.factor
		forward[i] = scaling(s, s, h, w)
	}
	return z.warp(x, forward)
}
