package ops

import "github.com/born-ml/vision/internal/tensor"

// Conv2DOp is a 2D convolution of an NCHW input with an OIHW kernel.
type Conv2DOp struct {
	node
	stride, padding int
}

// NewConv2DOp records conv2d(input, kernel) = out.
func NewConv2DOp(input, kernel, out *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{node: newNode(out, input, kernel), stride: stride, padding: padding}
}

// Backward returns the input and kernel gradients. The input gradient is skipped
// when the input does not need one, which spares the col2im pass on raw images.
func (op *Conv2DOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input, kernel := op.inputs[0], op.inputs[1]
	grads := make([]*tensor.RawTensor, 2)
	if input.RequiresGrad() {
		grads[0] = backend.Conv2DInputBackward(input, kernel, g, op.stride, op.padding)
	}
	if kernel.RequiresGrad() {
		grads[1] = backend.Conv2DKernelBackward(input, kernel, g, op.stride, op.padding)
	}
	return grads
}
