// Package nn implements the layers the vision models are assembled from.
//
// The building blocks are:
//   - Module: anything with a Forward pass and parameters
//   - Parameter: a named tensor that can be frozen or trained
//   - Layers: Conv2D, BatchNorm2D, ReLU, MaxPool2D, AvgPool2D,
//     GlobalAvgPool2D, Dropout, Linear, Softmax
//   - Sequential: a named chain of modules
//
// Images flow through layers as NCHW float32 tensors. Layer state is exported
// under Keras-style names ("conv1/conv/kernel") and in Keras tensor layouts so
// that weights converted from Keras checkpoints load without renaming.
package nn

import (
	"github.com/born-ml/vision/internal/tensor"
)

// Module is the interface every layer implements.
//
// Modules compose:
//
//	block := nn.NewSequential[Backend]("head",
//	    nn.NewGlobalAvgPool2D[Backend](),
//	    nn.NewDropout[Backend](0.2, src),
//	    nn.NewLinear("predictions", 1024, 10, src, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward maps an input batch to an output batch.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the learnable tensors of the module, frozen or not.
	Parameters() []*Parameter[B]
}

// Trainer is implemented by modules that behave differently while training,
// such as Dropout and BatchNorm2D.
type Trainer interface {
	Train(training bool)
}

// Stateful is implemented by modules with exportable state.
// Keys are full Keras-style paths; values are in Keras layout.
type Stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(state map[string]*tensor.RawTensor) error
}

// SetTraining switches m to training or inference mode if it cares.
func SetTraining[B tensor.Backend](m Module[B], training bool) {
	if t, ok := m.(Trainer); ok {
		t.Train(training)
	}
}

// StateDictOf returns m's state, or nil if m has none.
func StateDictOf[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	if s, ok := m.(Stateful); ok {
		return s.StateDict()
	}
	return nil
}

// LoadStateDictInto loads state into m if it has any.
func LoadStateDictInto[B tensor.Backend](m Module[B], state map[string]*tensor.RawTensor) error {
	if s, ok := m.(Stateful); ok {
		return s.LoadStateDict(state)
	}
	return nil
}
