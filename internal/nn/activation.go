package nn

import "github.com/born-ml/vision/internal/tensor"

// ReLU applies max(x, 0).
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a ReLU layer.
func NewReLU[B tensor.Backend]() *ReLU[B] { return &ReLU[B]{} }

// Forward applies the activation.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.ReLU()
}

// Parameters returns nil.
func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }

// Softmax turns scores into a probability distribution along the last dimension.
type Softmax[B tensor.Backend] struct{}

// NewSoftmax creates a softmax layer.
func NewSoftmax[B tensor.Backend]() *Softmax[B] { return &Softmax[B]{} }

// Forward normalizes the last dimension.
func (s *Softmax[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Softmax(-1)
}

// Parameters returns nil.
func (s *Softmax[B]) Parameters() []*Parameter[B] { return nil }
