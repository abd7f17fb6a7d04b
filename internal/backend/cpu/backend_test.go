package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.WrapFloat32(append([]float32(nil), data...), tensor.Shape(shape))
	require.NoError(t, err)
	return r
}

func ramp(n int, scale float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i%7)*scale - float32(i%3)*0.5
	}
	return out
}

func TestCPUBackend_Name(t *testing.T) {
	b := New()
	assert.Equal(t, "CPU", b.Name())
	assert.Equal(t, tensor.CPU, b.Device())
}

func TestAdd_Broadcast(t *testing.T) {
	b := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	bias := raw(t, []float32{10, 20, 30}, 1, 3)

	out := b.Add(x, bias)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, out.AsFloat32())

	col := raw(t, []float32{100, 200}, 2, 1)
	assert.Equal(t, []float32{101, 102, 103, 204, 205, 206}, b.Add(x, col).AsFloat32())
}

func TestBinary_Incompatible(t *testing.T) {
	b := New()
	assert.Panics(t, func() {
		b.Mul(raw(t, ramp(6, 1), 2, 3), raw(t, ramp(4, 1), 2, 2))
	})
}

func TestScalarOps(t *testing.T) {
	b := New()
	x := raw(t, []float32{0, 127.5, 255}, 3)
	out := b.AddScalar(b.MulScalar(x, 1/127.5), -1)
	assert.InDeltaSlice(t, []float32{-1, 0, 1}, out.AsFloat32(), 1e-6)
}

func TestReLU(t *testing.T) {
	b := New()
	x := raw(t, []float32{-2, 0, 3}, 3)
	assert.Equal(t, []float32{0, 0, 3}, b.ReLU(x).AsFloat32())
	g := raw(t, []float32{5, 5, 5}, 3)
	assert.Equal(t, []float32{0, 0, 5}, b.ReLUBackward(x, g).AsFloat32())
}

func TestMatMul(t *testing.T) {
	b := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	c := raw(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)
	out := b.MatMul(a, c)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.AsFloat32())

	assert.Panics(t, func() { b.MatMul(a, a) })
}

func TestTranspose(t *testing.T) {
	b := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	out := b.Transpose(x)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.AsFloat32())

	// NHWC -> NCHW
	img := raw(t, ramp(2*2*3, 1), 1, 2, 2, 3)
	nchw := b.Transpose(img, 0, 3, 1, 2)
	assert.Equal(t, tensor.Shape{1, 3, 2, 2}, nchw.Shape())
	back := b.Transpose(nchw, 0, 2, 3, 1)
	assert.Equal(t, img.AsFloat32(), back.AsFloat32())

	assert.Panics(t, func() { b.Transpose(img, 0, 0, 1, 2) })
}

func TestCatSplit(t *testing.T) {
	b := New()
	x := raw(t, ramp(2*2*2*2, 1), 2, 2, 2, 2)
	y := raw(t, ramp(2*3*2*2, 2), 2, 3, 2, 2)

	cat := b.Cat([]*tensor.RawTensor{x, y}, 1)
	assert.Equal(t, tensor.Shape{2, 5, 2, 2}, cat.Shape())
	assert.Equal(t, x.AsFloat32()[:8], cat.AsFloat32()[:8])
	assert.Equal(t, y.AsFloat32()[:12], cat.AsFloat32()[8:20])

	parts := b.Split(cat, []int{2, 3}, 1)
	require.Len(t, parts, 2)
	assert.Equal(t, x.AsFloat32(), parts[0].AsFloat32())
	assert.Equal(t, y.AsFloat32(), parts[1].AsFloat32())
}

func TestSumTo(t *testing.T) {
	b := New()
	g := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.Equal(t, []float32{5, 7, 9}, b.SumTo(g, tensor.Shape{1, 3}).AsFloat32())
	assert.Equal(t, []float32{5, 7, 9}, b.SumTo(g, tensor.Shape{3}).AsFloat32())
	assert.Equal(t, []float32{6, 15}, b.SumTo(g, tensor.Shape{2, 1}).AsFloat32())
	assert.Equal(t, []float32{21}, b.SumTo(g, tensor.Shape{}).AsFloat32())
}

func TestSoftmax(t *testing.T) {
	b := New()
	x := raw(t, []float32{1, 2, 3, 1000, 1000, 1000}, 2, 3)
	out := b.Softmax(x, -1).AsFloat32()
	assert.InDelta(t, 1.0, out[0]+out[1]+out[2], 1e-6)
	assert.InDeltaSlice(t, []float32{1.0 / 3, 1.0 / 3, 1.0 / 3}, out[3:], 1e-6)
	assert.Greater(t, out[2], out[1])
}

func TestArgmax(t *testing.T) {
	b := New()
	x := raw(t, []float32{0.1, 0.7, 0.2, 0.5, 0.1, 0.4}, 2, 3)
	assert.Equal(t, []int32{1, 0}, b.Argmax(x, 1).AsInt32())
}

func TestCategoricalCrossEntropy(t *testing.T) {
	b := New()
	p := raw(t, []float32{0.5, 0.5, 0.9, 0.1}, 2, 2)
	y := raw(t, []float32{1, 0, 0, 1}, 2, 2)
	loss := b.CategoricalCrossEntropy(p, y).AsFloat32()[0]
	want := -(math.Log(0.5) + math.Log(0.1)) / 2
	assert.InDelta(t, want, loss, 1e-5)

	one := raw(t, []float32{1}, 1)
	g := b.CrossEntropyBackward(p, y, b.Reshape(one, tensor.Shape{})).AsFloat32()
	assert.InDeltaSlice(t, []float32{-1, 0, 0, -5}, g, 1e-5)
}

func TestSoftmaxBackward_MatchesFiniteDifference(t *testing.T) {
	b := New()
	x := raw(t, []float32{0.2, -0.4, 1.1}, 1, 3)
	w := raw(t, []float32{0.3, -1.2, 2.0}, 1, 3)
	loss := func(in *tensor.RawTensor) float32 {
		return b.Sum(b.Mul(b.Softmax(in, 1), w)).AsFloat32()[0]
	}
	analytic := b.SoftmaxBackward(b.Softmax(x, 1), w, 1).AsFloat32()
	assert.InDeltaSlice(t, numericGrad(t, x, loss), analytic, 2e-3)
}

func TestBackend_SequentialAndParallelAgree(t *testing.T) {
	seq := New(WithParallel(parallel.Config{Enabled: false}))
	par := New(WithParallel(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}))
	x := raw(t, ramp(3*4*6*6, 0.25), 3, 4, 6, 6)
	k := raw(t, ramp(5*4*3*3, 0.1), 5, 4, 3, 3)

	assert.InDeltaSlice(t, seq.Conv2D(x, k, 1, 1).AsFloat32(), par.Conv2D(x, k, 1, 1).AsFloat32(), 1e-4)
	assert.Equal(t, seq.MaxPool2D(x, 3, 2, 1).AsFloat32(), par.MaxPool2D(x, 3, 2, 1).AsFloat32())
}

// numericGrad estimates dloss/dx by central differences.
func numericGrad(t *testing.T, x *tensor.RawTensor, loss func(*tensor.RawTensor) float32) []float32 {
	t.Helper()
	const h = 1e-2
	data := x.AsFloat32()
	grad := make([]float32, len(data))
	for i := range data {
		orig := data[i]
		data[i] = orig + h
		up := loss(x)
		data[i] = orig - h
		down := loss(x)
		data[i] = orig
		grad[i] = (up - down) / (2 * h)
	}
	return grad
}
