package ops

import "github.com/born-ml/vision/internal/tensor"

// MaxPool2DOp is windowed max pooling.
type MaxPool2DOp struct {
	node
	kernelSize, stride, padding int
}

// NewMaxPool2DOp records maxpool2d(input) = out.
func NewMaxPool2DOp(input, out *tensor.RawTensor, kernelSize, stride, padding int) *MaxPool2DOp {
	return &MaxPool2DOp{node: newNode(out, input), kernelSize: kernelSize, stride: stride, padding: padding}
}

// Backward routes gradients to the window maxima.
func (op *MaxPool2DOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MaxPool2DBackward(op.inputs[0], g, op.kernelSize, op.stride, op.padding)}
}

// AvgPool2DOp is windowed average pooling.
type AvgPool2DOp struct {
	node
	kernelSize, stride int
}

// NewAvgPool2DOp records avgpool2d(input) = out.
func NewAvgPool2DOp(input, out *tensor.RawTensor, kernelSize, stride int) *AvgPool2DOp {
	return &AvgPool2DOp{node: newNode(out, input), kernelSize: kernelSize, stride: stride}
}

// Backward spreads gradients evenly over each window.
func (op *AvgPool2DOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.AvgPool2DBackward(op.inputs[0], g, op.kernelSize, op.stride)}
}

// GlobalAvgPool2DOp averages each feature map to one value.
type GlobalAvgPool2DOp struct{ node }

// NewGlobalAvgPool2DOp records gap(input) = out.
func NewGlobalAvgPool2DOp(input, out *tensor.RawTensor) *GlobalAvgPool2DOp {
	return &GlobalAvgPool2DOp{newNode(out, input)}
}

// Backward broadcasts gradients over the spatial plane.
func (op *GlobalAvgPool2DOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.GlobalAvgPool2DBackward(op.inputs[0], g)}
}
