package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/vision/internal/tensor"
)

func TestMaxPool2D(t *testing.T) {
	b := New()
	x := raw(t, []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, 1, 1, 4, 4)

	out := b.MaxPool2D(x, 2, 2, 0)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, out.AsFloat32())
}

func TestMaxPool2D_PaddingNeverWins(t *testing.T) {
	b := New()
	x := raw(t, []float32{-5, -4, -3, -2}, 1, 1, 2, 2)
	out := b.MaxPool2D(x, 3, 2, 1)
	assert.Equal(t, tensor.Shape{1, 1, 1, 1}, out.Shape())
	assert.Equal(t, []float32{-2}, out.AsFloat32())
}

func TestMaxPool2DBackward(t *testing.T) {
	b := New()
	x := raw(t, []float32{
		1, 9, 3, 4,
		5, 6, 7, 2,
	}, 1, 1, 2, 4)
	g := raw(t, []float32{10, 20}, 1, 1, 1, 2)
	dx := b.MaxPool2DBackward(x, g, 2, 2, 0).AsFloat32()
	assert.Equal(t, []float32{0, 10, 0, 0, 0, 0, 20, 0}, dx)
}

func TestAvgPool2D(t *testing.T) {
	b := New()
	x := raw(t, []float32{
		1, 3, 5, 7,
		1, 3, 5, 7,
	}, 1, 1, 2, 4)
	out := b.AvgPool2D(x, 2, 2)
	assert.Equal(t, []float32{2, 6}, out.AsFloat32())

	g := raw(t, []float32{4, 8}, 1, 1, 1, 2)
	dx := b.AvgPool2DBackward(x, g, 2, 2).AsFloat32()
	assert.Equal(t, []float32{1, 1, 2, 2, 1, 1, 2, 2}, dx)
}

func TestAvgPool2D_OddInputDropsTail(t *testing.T) {
	b := New()
	x := raw(t, ramp(1*2*5*5, 1), 1, 2, 5, 5)
	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, b.AvgPool2D(x, 2, 2).Shape())
}

func TestGlobalAvgPool2D(t *testing.T) {
	b := New()
	x := raw(t, []float32{1, 2, 3, 4, 10, 10, 10, 10}, 1, 2, 2, 2)
	out := b.GlobalAvgPool2D(x)
	assert.Equal(t, tensor.Shape{1, 2}, out.Shape())
	assert.Equal(t, []float32{2.5, 10}, out.AsFloat32())

	g := raw(t, []float32{4, 8}, 1, 2)
	assert.Equal(t, []float32{1, 1, 1, 1, 2, 2, 2, 2}, b.GlobalAvgPool2DBackward(x, g).AsFloat32())
}
