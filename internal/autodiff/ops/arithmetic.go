package ops

import "github.com/born-ml/vision/internal/tensor"

// AddOp is a + b with broadcasting.
type AddOp struct{ node }

// NewAddOp records a + b = out.
func NewAddOp(a, b, out *tensor.RawTensor) *AddOp { return &AddOp{newNode(out, a, b)} }

// Backward sums the gradient back over broadcast dimensions.
func (op *AddOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.SumTo(g, a.Shape()),
		backend.SumTo(g, b.Shape()),
	}
}

// SubOp is a - b with broadcasting.
type SubOp struct{ node }

// NewSubOp records a - b = out.
func NewSubOp(a, b, out *tensor.RawTensor) *SubOp { return &SubOp{newNode(out, a, b)} }

// Backward returns g and -g reduced to the input shapes.
func (op *SubOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.SumTo(g, a.Shape()),
		backend.SumTo(backend.MulScalar(g, -1), b.Shape()),
	}
}

// MulOp is the element-wise product.
type MulOp struct{ node }

// NewMulOp records a * b = out.
func NewMulOp(a, b, out *tensor.RawTensor) *MulOp { return &MulOp{newNode(out, a, b)} }

// Backward returns g*b and g*a.
func (op *MulOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.SumTo(backend.Mul(g, b), a.Shape()),
		backend.SumTo(backend.Mul(g, a), b.Shape()),
	}
}

// DivOp is the element-wise quotient.
type DivOp struct{ node }

// NewDivOp records a / b = out.
func NewDivOp(a, b, out *tensor.RawTensor) *DivOp { return &DivOp{newNode(out, a, b)} }

// Backward returns g/b and -g*a/b².
func (op *DivOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	da := backend.Div(g, b)
	db := backend.MulScalar(backend.Div(backend.Mul(g, op.output), b), -1)
	return []*tensor.RawTensor{
		backend.SumTo(da, a.Shape()),
		backend.SumTo(db, b.Shape()),
	}
}

// ScaleOp is x*scale + shift with constant scalars.
type ScaleOp struct {
	node
	scale float32
}

// NewScaleOp records x*scale (+ a constant) = out.
func NewScaleOp(x, out *tensor.RawTensor, scale float32) *ScaleOp {
	return &ScaleOp{node: newNode(out, x), scale: scale}
}

// Backward returns g*scale.
func (op *ScaleOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if op.scale == 1 {
		return []*tensor.RawTensor{g}
	}
	return []*tensor.RawTensor{backend.MulScalar(g, op.scale)}
}
