package ops

import "github.com/born-ml/vision/internal/tensor"

// MatMulOp is A @ B for 2D operands.
type MatMulOp struct{ node }

// NewMatMulOp records a @ b = out.
func NewMatMulOp(a, b, out *tensor.RawTensor) *MatMulOp { return &MatMulOp{newNode(out, a, b)} }

// Backward returns g @ Bᵀ and Aᵀ @ g.
func (op *MatMulOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.MatMul(g, backend.Transpose(b)),
		backend.MatMul(backend.Transpose(a), g),
	}
}
