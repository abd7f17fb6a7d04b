package ops

import "github.com/born-ml/vision/internal/tensor"

// SumOp reduces every element to a scalar.
type SumOp struct{ node }

// NewSumOp records sum(x) = out.
func NewSumOp(x, out *tensor.RawTensor) *SumOp { return &SumOp{newNode(out, x)} }

// Backward broadcasts the scalar gradient to x's shape.
func (op *SumOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	ones, err := tensor.NewRaw(x.Shape(), tensor.Float32, backend.Device())
	if err != nil {
		panic("sum backward: " + err.Error())
	}
	ones.Fill(1)
	return []*tensor.RawTensor{backend.Mul(ones, g)}
}

// CrossEntropyOp is the batch-mean categorical cross-entropy of probabilities against targets.
type CrossEntropyOp struct{ node }

// NewCrossEntropyOp records cce(probs, targets) = out.
func NewCrossEntropyOp(probs, targets, out *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{newNode(out, probs, targets)}
}

// Backward differentiates with respect to the probabilities only.
func (op *CrossEntropyOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.CrossEntropyBackward(op.inputs[0], op.inputs[1], g), nil}
}
