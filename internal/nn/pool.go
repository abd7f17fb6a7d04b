package nn

import (
	"fmt"

	"github.com/born-ml/vision/internal/tensor"
)

// MaxPool2D takes the maximum over square windows. Padding never wins a window.
type MaxPool2D[B tensor.Backend] struct {
	kernelSize, stride, padding int
}

// NewMaxPool2D creates a max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride, padding int) *MaxPool2D[B] {
	if kernelSize <= 0 || stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel %d, stride %d, padding %d", kernelSize, stride, padding))
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride, padding: padding}
}

// Forward pools input [N, C, H, W].
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.MaxPool2D(m.kernelSize, m.stride, m.padding)
}

// Parameters returns nil.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] { return nil }

// OutputShape returns the spatial size produced for an h×w input.
func (m *MaxPool2D[B]) OutputShape(h, w int) (int, int) {
	k, s, p := m.kernelSize, m.stride, m.padding
	return (h+2*p-k)/s + 1, (w+2*p-k)/s + 1
}

// AvgPool2D averages square windows without padding.
type AvgPool2D[B tensor.Backend] struct {
	kernelSize, stride int
}

// NewAvgPool2D creates an average pooling layer.
func NewAvgPool2D[B tensor.Backend](kernelSize, stride int) *AvgPool2D[B] {
	if kernelSize <= 0 || stride <= 0 {
		panic(fmt.Sprintf("avgpool2d: invalid kernel %d, stride %d", kernelSize, stride))
	}
	return &AvgPool2D[B]{kernelSize: kernelSize, stride: stride}
}

// Forward pools input [N, C, H, W].
func (a *AvgPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.AvgPool2D(a.kernelSize, a.stride)
}

// Parameters returns nil.
func (a *AvgPool2D[B]) Parameters() []*Parameter[B] { return nil }

// OutputShape returns the spatial size produced for an h×w input.
func (a *AvgPool2D[B]) OutputShape(h, w int) (int, int) {
	return (h-a.kernelSize)/a.stride + 1, (w-a.kernelSize)/a.stride + 1
}

// GlobalAvgPool2D reduces [N, C, H, W] to [N, C].
type GlobalAvgPool2D[B tensor.Backend] struct{}

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend]() *GlobalAvgPool2D[B] { return &GlobalAvgPool2D[B]{} }

// Forward averages every feature map.
func (g *GlobalAvgPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.GlobalAvgPool2D()
}

// Parameters returns nil.
func (g *GlobalAvgPool2D[B]) Parameters() []*Parameter[B] { return nil }
