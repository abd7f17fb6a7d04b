package ops

import "github.com/born-ml/vision/internal/tensor"

// ReshapeOp changes dimensions without moving data.
type ReshapeOp struct{ node }

// NewReshapeOp records reshape(x) = out.
func NewReshapeOp(x, out *tensor.RawTensor) *ReshapeOp { return &ReshapeOp{newNode(out, x)} }

// Backward reshapes the gradient back.
func (op *ReshapeOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(g, op.inputs[0].Shape())}
}

// TransposeOp permutes dimensions.
type TransposeOp struct {
	node
	axes []int
}

// NewTransposeOp records transpose(x, axes) = out. Empty axes swaps the last two.
func NewTransposeOp(x, out *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{node: newNode(out, x), axes: append([]int(nil), axes...)}
}

// Backward applies the inverse permutation.
func (op *TransposeOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if len(op.axes) == 0 {
		return []*tensor.RawTensor{backend.Transpose(g)}
	}
	inv := make([]int, len(op.axes))
	for i, a := range op.axes {
		inv[a] = i
	}
	return []*tensor.RawTensor{backend.Transpose(g, inv...)}
}

// CatOp concatenates along one dimension.
type CatOp struct {
	node
	dim int
}

// NewCatOp records cat(xs, dim) = out.
func NewCatOp(xs []*tensor.RawTensor, out *tensor.RawTensor, dim int) *CatOp {
	return &CatOp{node: newNode(out, xs...), dim: dim}
}

// Backward splits the gradient into the input widths.
func (op *CatOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	dim := op.dim
	if dim < 0 {
		dim += len(g.Shape())
	}
	sizes := make([]int, len(op.inputs))
	for i, x := range op.inputs {
		sizes[i] = x.Shape()[dim]
	}
	return backend.Split(g, sizes, dim)
}
