// Package ops holds the differentiable operations recorded on a gradient tape.
//
// Each operation keeps the tensors its backward pass needs and delegates the
// gradient arithmetic to the backend it is handed.
package ops

import "github.com/born-ml/vision/internal/tensor"

// Operation is one recorded node of the computation graph.
type Operation interface {
	// Backward returns one gradient per input, in Inputs order. A nil entry means no gradient.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the tensors the operation read.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor the operation produced.
	Output() *tensor.RawTensor
}

// node carries the bookkeeping every operation shares.
type node struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func (n node) Inputs() []*tensor.RawTensor { return n.inputs }
func (n node) Output() *tensor.RawTensor   { return n.output }

func newNode(output *tensor.RawTensor, inputs ...*tensor.RawTensor) node {
	return node{inputs: inputs, output: output}
}
