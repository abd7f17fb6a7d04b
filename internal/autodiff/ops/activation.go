package ops

import "github.com/born-ml/vision/internal/tensor"

// ReLUOp is max(x, 0).
type ReLUOp struct{ node }

// NewReLUOp records relu(x) = out.
func NewReLUOp(x, out *tensor.RawTensor) *ReLUOp { return &ReLUOp{newNode(out, x)} }

// Backward passes the gradient where x was positive.
func (op *ReLUOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.ReLUBackward(op.inputs[0], g)}
}

// SoftmaxOp normalizes along one dimension.
type SoftmaxOp struct {
	node
	dim int
}

// NewSoftmaxOp records softmax(x, dim) = out.
func NewSoftmaxOp(x, out *tensor.RawTensor, dim int) *SoftmaxOp {
	return &SoftmaxOp{node: newNode(out, x), dim: dim}
}

// Backward uses the saved output: s * (g - sum(g*s)).
func (op *SoftmaxOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.SoftmaxBackward(op.output, g, op.dim)}
}
