package nn

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/tensor"
)

// GlorotUniform draws from U(-l, l) with l = sqrt(6 / (fanIn + fanOut)).
// This matches the Keras default kernel initializer.
func GlorotUniform[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, src rand.Source, backend B) *tensor.Tensor[float32, B] {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	return tensor.Uniform(shape, -limit, limit, src, backend)
}

// Zeros returns a zero tensor, the bias and beta initializer.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// Ones returns a tensor of ones, the gamma and moving variance initializer.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Ones[float32](shape, backend)
}
