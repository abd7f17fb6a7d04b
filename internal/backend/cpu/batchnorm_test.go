package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/vision/internal/tensor"
)

func TestBatchNorm2D_Inference(t *testing.T) {
	b := New()
	x := raw(t, []float32{1, 3, 2, 4}, 1, 2, 1, 2)
	gamma := raw(t, []float32{2, 1}, 2)
	beta := raw(t, []float32{0, 1}, 2)
	mean := raw(t, []float32{2, 3}, 2)
	variance := raw(t, []float32{1, 4}, 2)

	out := b.BatchNorm2D(x, gamma, beta, mean, variance, 0).AsFloat32()
	assert.InDeltaSlice(t, []float32{-2, 2, 0.5, 1.5}, out, 1e-6)
}

func TestBatchNorm2DTraining_Statistics(t *testing.T) {
	b := New()
	x := raw(t, []float32{1, 3, 10, 10, 5, 7, 20, 20}, 2, 2, 1, 2)
	gamma := raw(t, []float32{1, 1}, 2)
	beta := raw(t, []float32{0, 0}, 2)

	out, mean, variance := b.BatchNorm2DTraining(x, gamma, beta, 0)
	assert.InDeltaSlice(t, []float32{4, 15}, mean.AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{5, 25}, variance.AsFloat32(), 1e-5)

	var s float32
	for _, v := range out.AsFloat32() {
		s += v
	}
	assert.InDelta(t, 0, s, 1e-5)
}

func TestBatchNorm2DBackward_MatchesFiniteDifference(t *testing.T) {
	b := New()
	x := raw(t, ramp(3*2*2*2, 0.7), 3, 2, 2, 2)
	gamma := raw(t, []float32{1.5, -0.5}, 2)
	beta := raw(t, []float32{0.1, 0.2}, 2)
	w := raw(t, ramp(3*2*2*2, 0.3), 3, 2, 2, 2)
	const eps = 1e-3

	t.Run("batch statistics", func(t *testing.T) {
		loss := func(*tensor.RawTensor) float32 {
			out, _, _ := b.BatchNorm2DTraining(x, gamma, beta, eps)
			return b.Sum(b.Mul(out, w)).AsFloat32()[0]
		}
		_, mean, variance := b.BatchNorm2DTraining(x, gamma, beta, eps)
		dx, dgamma, dbeta := b.BatchNorm2DBackward(x, gamma, mean, variance, w, eps, true)

		assert.InDeltaSlice(t, numericGrad(t, x, loss), dx.AsFloat32(), 2e-2)
		assert.InDeltaSlice(t, numericGrad(t, gamma, loss), dgamma.AsFloat32(), 2e-2)
		assert.InDeltaSlice(t, numericGrad(t, beta, loss), dbeta.AsFloat32(), 2e-2)
	})

	t.Run("running statistics", func(t *testing.T) {
		mean := raw(t, []float32{0.3, -0.2}, 2)
		variance := raw(t, []float32{1.2, 0.8}, 2)
		loss := func(*tensor.RawTensor) float32 {
			return b.Sum(b.Mul(b.BatchNorm2D(x, gamma, beta, mean, variance, eps), w)).AsFloat32()[0]
		}
		dx, _, _ := b.BatchNorm2DBackward(x, gamma, mean, variance, w, eps, false)
		assert.InDeltaSlice(t, numericGrad(t, x, loss), dx.AsFloat32(), 1e-2)
	})
}
