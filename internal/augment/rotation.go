package augment

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/vision/internal/tensor"
)

// RandomRotation rotates each image about its center by an angle drawn
// uniformly from [-factor·2π, factor·2π].
type RandomRotation struct {
	factor float64
	sampler
	rng *rand.Rand
}

// NewRandomRotation creates a rotation layer. factor is a fraction of a full turn.
func NewRandomRotation(factor float64, fill FillMode, interp Interpolation, rng *rand.Rand) *RandomRotation {
	if factor < 0 || factor >= 1 {
		panic(fmt.Sprintf("random_rotation: factor %v out of [0, 1)", factor))
	}
	return &RandomRotation{factor: factor, sampler: sampler{fill: fill, interp: interp}, rng: rng}
}

// Name returns "random_rotation".
func (r *RandomRotation) Name() string { return "random_rotation" }

// Factor returns the rotation bound as a fraction of a full turn.
func (r *RandomRotation) Factor() float64 { return r.factor }

// OutputShape returns in.
func (r *RandomRotation) OutputShape(in tensor.Shape) tensor.Shape { return in }

// Apply rotates images while training.
func (r *RandomRotation) Apply(x *tensor.RawTensor, training bool) *tensor.RawTensor {
	n, _, h, w := requireNCHW("random_rotation", x)
	if !training || r.factor == 0 {
		return x
	}
	bound := r.factor * 2 * math.Pi
	forward := make([]*mat.Dense, n)
	for i := range forward {
		forward[i] = rotation((r.rng.Float64()*2-1)*bound, h, w)
	}
	return r.warp(x, forward)
}
