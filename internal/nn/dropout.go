package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/tensor"
)

// Dropout zeroes a random fraction of activations while training and scales
// the survivors by 1/(1-rate). In inference mode it is the identity.
type Dropout[B tensor.Backend] struct {
	rate     float32
	rng      *rand.Rand
	training bool
}

// NewDropout creates a dropout layer. rate must be in [0, 1).
func NewDropout[B tensor.Backend](rate float32, src rand.Source) *Dropout[B] {
	if rate < 0 || rate >= 1 {
		panic(fmt.Sprintf("dropout: rate %v out of [0, 1)", rate))
	}
	if src == nil {
		src = rand.NewSource(rand.Uint64())
	}
	return &Dropout[B]{rate: rate, rng: rand.New(src)}
}

// Forward applies the mask when training.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.rate == 0 {
		return input
	}
	mask := tensor.Zeros[float32](input.Shape(), input.Backend())
	keep := 1 / (1 - d.rate)
	data := mask.Data()
	for i := range data {
		if d.rng.Float32() >= d.rate {
			data[i] = keep
		}
	}
	return input.Mul(mask)
}

// Train toggles the mask.
func (d *Dropout[B]) Train(training bool) { d.training = training }

// Rate returns the drop probability.
func (d *Dropout[B]) Rate() float32 { return d.rate }

// Parameters returns nil.
func (d *Dropout[B]) Parameters() []*Parameter[B] { return nil }
