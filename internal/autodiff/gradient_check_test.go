package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/vision/internal/autodiff"
	"github.com/born-ml/vision/internal/tensor"
)

// numericGrad perturbs every element of x and measures the change of f.
func numericGrad(x *tensor.Tensor[float32, Backend], f func() float32) []float32 {
	const h = 1e-2
	data := x.Data()
	out := make([]float32, len(data))
	for i := range data {
		orig := data[i]
		data[i] = orig + h
		up := f()
		data[i] = orig - h
		down := f()
		data[i] = orig
		out[i] = (up - down) / (2 * h)
	}
	return out
}

func ramp(n int, scale, shift float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32((i*5)%11)*scale + shift
	}
	return out
}

// TestGradientCheck_ConvBlock checks a conv -> batchnorm -> relu -> pool chain end to end.
func TestGradientCheck_ConvBlock(t *testing.T) {
	b := newBackend()
	x := param(t, b, ramp(2*2*6*6, 0.1, -0.4), 2, 2, 6, 6)
	k := param(t, b, ramp(3*2*3*3, 0.05, -0.2), 3, 2, 3, 3)
	// A large shift keeps every activation away from the ReLU kink.
	gamma := param(t, b, []float32{0.6, 0.4, 0.5}, 3)
	beta := param(t, b, []float32{3, 3.5, 4}, 3)
	w := constant(t, b, ramp(2*3, 0.3, -1), 2, 3)

	forward := func() *tensor.Tensor[float32, Backend] {
		y := x.Conv2D(k, 1, 1)
		out, _, _ := b.BatchNorm2DTraining(y.Raw(), gamma.Raw(), beta.Raw(), 1e-3)
		z := tensor.New[float32](out, b).ReLU().AvgPool2D(2, 2).GlobalAvgPool2D()
		return z.Mul(w).Sum()
	}

	b.Tape().Clear()
	grads := autodiff.Backward(forward(), b)

	b.Tape().StopRecording()
	scalar := func() float32 { return forward().Item() }

	for name, p := range map[string]*tensor.Tensor[float32, Backend]{"kernel": k, "gamma": gamma, "beta": beta} {
		assert.InDeltaSlicef(t, numericGrad(p, scalar), grads[p.Raw()].AsFloat32(), 3e-2, "%s", name)
	}
}

func TestGradientCheck_MaxPoolAndTranspose(t *testing.T) {
	b := newBackend()
	x := param(t, b, ramp(1*2*4*4, 0.37, 0.1), 1, 2, 4, 4)
	w := constant(t, b, ramp(1*2*2*2, 0.5, -1), 1, 2, 2, 2)

	forward := func() *tensor.Tensor[float32, Backend] {
		y := x.Transpose(0, 2, 3, 1).Transpose(0, 3, 1, 2).MaxPool2D(3, 2, 1)
		return y.Mul(w).Sum()
	}

	grads := autodiff.Backward(forward(), b)
	b.Tape().StopRecording()
	assert.InDeltaSlice(t, numericGrad(x, func() float32 { return forward().Item() }), grads[x.Raw()].AsFloat32(), 1e-2)
}
