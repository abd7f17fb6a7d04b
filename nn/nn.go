// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/tensor"
)

// Module is implemented by every layer.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a named tensor that an optimizer may update.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Sequential chains modules.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential returns a named chain of modules.
func NewSequential[B tensor.Backend](name string, modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(name, modules...)
}

// Conv2DConfig configures a convolution.
type Conv2DConfig = nn.Conv2DConfig

// Conv2D is a 2D convolution over NCHW input.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D returns a Glorot-initialized convolution.
func NewConv2D[B tensor.Backend](name string, cfg Conv2DConfig, src rand.Source, backend B) *Conv2D[B] {
	return nn.NewConv2D(name, cfg, src, backend)
}

// BatchNorm2D normalizes NCHW input per channel.
type BatchNorm2D[B tensor.Backend] = nn.BatchNorm2D[B]

// NewBatchNorm2D returns a batch norm layer over channels.
func NewBatchNorm2D[B tensor.Backend](name string, channels int, eps, momentum float32, backend B) *BatchNorm2D[B] {
	return nn.NewBatchNorm2D(name, channels, eps, momentum, backend)
}

// Linear is a fully connected layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear returns a Glorot-initialized fully connected layer.
func NewLinear[B tensor.Backend](name string, inFeatures, outFeatures int, src rand.Source, backend B) *Linear[B] {
	return nn.NewLinear(name, inFeatures, outFeatures, src, backend)
}

// Dropout zeroes a fraction of activations while training.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout returns a dropout layer.
func NewDropout[B tensor.Backend](rate float32, src rand.Source) *Dropout[B] {
	return nn.NewDropout[B](rate, src)
}

// MaxPool2D is 2D max pooling.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D returns a max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride, padding int) *MaxPool2D[B] {
	return nn.NewMaxPool2D[B](kernelSize, stride, padding)
}

// AvgPool2D is 2D average pooling without padding.
type AvgPool2D[B tensor.Backend] = nn.AvgPool2D[B]

// NewAvgPool2D returns an average pooling layer.
func NewAvgPool2D[B tensor.Backend](kernelSize, stride int) *AvgPool2D[B] {
	return nn.NewAvgPool2D[B](kernelSize, stride)
}

// GlobalAvgPool2D averages each channel to a single value.
type GlobalAvgPool2D[B tensor.Backend] = nn.GlobalAvgPool2D[B]

// NewGlobalAvgPool2D returns a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend]() *GlobalAvgPool2D[B] {
	return nn.NewGlobalAvgPool2D[B]()
}

// ReLU is max(0, x).
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU returns a ReLU.
func NewReLU[B tensor.Backend]() *ReLU[B] { return nn.NewReLU[B]() }

// Softmax normalizes the last dimension.
type Softmax[B tensor.Backend] = nn.Softmax[B]

// NewSoftmax returns a Softmax.
func NewSoftmax[B tensor.Backend]() *Softmax[B] { return nn.NewSoftmax[B]() }

// SetTrainable freezes or unfreezes params.
func SetTrainable[B tensor.Backend](params []*Parameter[B], v bool) {
	nn.SetTrainable(params, v)
}

// CategoricalCrossEntropy returns the mean cross entropy between softmax
// probabilities and one-hot targets.
func CategoricalCrossEntropy[B tensor.Backend](probs, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return nn.CategoricalCrossEntropy(probs, targets)
}

// OneHot encodes labels as a [len(labels), numClasses] tensor.
func OneHot[B tensor.Backend](labels []int, numClasses int, backend B) (*tensor.Tensor[float32, B], error) {
	return nn.OneHot(labels, numClasses, backend)
}

// Accuracy returns the fraction of rows whose argmax equals the label.
func Accuracy[B tensor.Backend](probs *tensor.Tensor[float32, B], labels []int) float64 {
	return nn.Accuracy(probs, labels)
}
