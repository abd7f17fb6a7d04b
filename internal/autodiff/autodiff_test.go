package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vision/internal/autodiff"
	"github.com/born-ml/vision/internal/backend/cpu"
	"github.com/born-ml/vision/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() Backend {
	b := autodiff.New(cpu.New())
	b.Tape().StartRecording()
	return b
}

func param(t *testing.T, b Backend, data []float32, shape ...int) *tensor.Tensor[float32, Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), b)
	require.NoError(t, err)
	return x.SetRequiresGrad(true)
}

func constant(t *testing.T, b Backend, data []float32, shape ...int) *tensor.Tensor[float32, Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), b)
	require.NoError(t, err)
	return x
}

func TestAutodiffBackend_Name(t *testing.T) {
	b := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", b.Name())
	assert.Equal(t, tensor.CPU, b.Device())
}

func TestTape_RecordingToggle(t *testing.T) {
	b := autodiff.New(cpu.New())
	tape := b.Tape()
	assert.False(t, tape.IsRecording())

	w := param(t, b, []float32{1, 2}, 2)
	w.Add(w)
	assert.Equal(t, 0, tape.NumOps(), "idle tape records nothing")

	tape.StartRecording()
	w.Add(w)
	assert.Equal(t, 1, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording())
}

func TestTape_SkipsUntrackedInputs(t *testing.T) {
	b := newBackend()
	x := constant(t, b, []float32{1, 2, 3}, 3)

	y := x.MulScalar(2).ReLU()
	assert.Equal(t, 0, b.Tape().NumOps())
	assert.False(t, y.RequiresGrad())

	w := param(t, b, []float32{1, 1, 1}, 3)
	z := y.Mul(w)
	assert.Equal(t, 1, b.Tape().NumOps())
	assert.True(t, z.RequiresGrad())
}

func TestBackward_Square(t *testing.T) {
	b := newBackend()
	x := param(t, b, []float32{3, -2}, 2)

	grads := autodiff.Backward(x.Mul(x).Sum(), b)
	assert.InDeltaSlice(t, []float32{6, -4}, grads[x.Raw()].AsFloat32(), 1e-6)
}

func TestBackward_AccumulatesSharedInputs(t *testing.T) {
	b := newBackend()
	x := param(t, b, []float32{2}, 1)

	// y = x*3 + x*x  ->  dy/dx = 3 + 2x
	y := x.MulScalar(3).Add(x.Mul(x)).Sum()
	grads := autodiff.Backward(y, b)
	assert.InDelta(t, 7.0, grads[x.Raw()].AsFloat32()[0], 1e-6)
}

func TestBackward_LinearLayerWithBroadcastBias(t *testing.T) {
	b := newBackend()
	x := constant(t, b, []float32{1, 2, 3, 4}, 2, 2)
	w := param(t, b, []float32{1, 0, 0, 1, 1, 1}, 3, 2)
	bias := param(t, b, []float32{0, 0, 0}, 3)

	out := x.MatMul(w.T()).Add(bias.Reshape(1, 3)).Sum()
	grads := autodiff.Backward(out, b)

	assert.Equal(t, []float32{2, 2, 2}, grads[bias.Raw()].AsFloat32())
	assert.Equal(t, []float32{4, 6, 4, 6, 4, 6}, grads[w.Raw()].AsFloat32())
	_, hasX := grads[x.Raw()]
	assert.False(t, hasX, "constants get no gradient")
}

func TestBackward_SoftmaxCrossEntropy(t *testing.T) {
	b := newBackend()
	logits := param(t, b, []float32{1, 2, 0.5, 0, 0, 3}, 2, 3)
	targets := constant(t, b, []float32{0, 1, 0, 0, 0, 1}, 2, 3)

	probs := logits.Softmax(-1)
	loss := tensor.New[float32](b.CategoricalCrossEntropy(probs.Raw(), targets.Raw()), b)
	grads := autodiff.Backward(loss, b)

	// d/dlogits of mean CCE over softmax is (p - y) / N.
	p := probs.Data()
	y := targets.Data()
	want := make([]float32, len(p))
	for i := range p {
		want[i] = (p[i] - y[i]) / 2
	}
	assert.InDeltaSlice(t, want, grads[logits.Raw()].AsFloat32(), 1e-5)
}

func TestBackward_CatRoutesGradients(t *testing.T) {
	b := newBackend()
	a := param(t, b, []float32{1, 2}, 1, 2, 1, 1)
	c := param(t, b, []float32{3}, 1, 1, 1, 1)
	w := constant(t, b, []float32{10, 20, 30}, 1, 3, 1, 1)

	out := tensor.Cat([]*tensor.Tensor[float32, Backend]{a, c}, 1).Mul(w).Sum()
	grads := autodiff.Backward(out, b)
	assert.Equal(t, []float32{10, 20}, grads[a.Raw()].AsFloat32())
	assert.Equal(t, []float32{30}, grads[c.Raw()].AsFloat32())
}

func TestBackward_RequiresRecordedOutput(t *testing.T) {
	b := newBackend()
	x := constant(t, b, []float32{1}, 1)
	assert.Panics(t, func() { autodiff.Backward(x.Sum(), b) })
}
