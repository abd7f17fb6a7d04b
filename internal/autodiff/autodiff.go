// Package autodiff adds reverse-mode differentiation to any tensor.Backend.
//
// AutodiffBackend decorates an inner backend. Every operation runs on the inner
// backend; when the tape is recording and at least one input requires a gradient,
// the operation is recorded and its output is marked as requiring one too. Tensors
// that never touch a gradient-requiring input, such as activations of a frozen
// network, are never recorded.
//
//	b := autodiff.New(cpu.New())
//	b.Tape().StartRecording()
//	w := tensor.Ones[float32](tensor.Shape{2}, b).SetRequiresGrad(true)
//	y := w.Mul(w).Sum()
//	grads := autodiff.Backward(y, b) // grads[w.Raw()] == 2w
package autodiff

import (
	"github.com/born-ml/vision/internal/autodiff/ops"
	"github.com/born-ml/vision/internal/tensor"
)

// AutodiffBackend wraps B and records differentiable operations on a GradientTape.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New wraps backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{inner: backend, tape: NewGradientTape()}
}

// Tape returns the tape operations are recorded on.
func (b *AutodiffBackend[B]) Tape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B { return b.inner }

// Name returns "Autodiff(<inner>)".
func (b *AutodiffBackend[B]) Name() string { return "Autodiff(" + b.inner.Name() + ")" }

// Device returns the inner device.
func (b *AutodiffBackend[B]) Device() tensor.Device { return b.inner.Device() }

// tracked reports whether an op over inputs should be recorded.
func (b *AutodiffBackend[B]) tracked(inputs ...*tensor.RawTensor) bool {
	if !b.tape.IsRecording() {
		return false
	}
	for _, in := range inputs {
		if in.RequiresGrad() {
			return true
		}
	}
	return false
}

func (b *AutodiffBackend[B]) record(op ops.Operation) *tensor.RawTensor {
	out := op.Output()
	out.SetRequiresGrad(true)
	b.tape.Record(op)
	return out
}

// Add records a + b.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	if b.tracked(x, y) {
		b.record(ops.NewAddOp(x, y, out))
	}
	return out
}

// Sub records a - b.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	if b.tracked(x, y) {
		b.record(ops.NewSubOp(x, y, out))
	}
	return out
}

// Mul records a * b.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	if b.tracked(x, y) {
		b.record(ops.NewMulOp(x, y, out))
	}
	return out
}

// Div records a / b.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Div(x, y)
	if b.tracked(x, y) {
		b.record(ops.NewDivOp(x, y, out))
	}
	return out
}

// MulScalar records x * s.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.MulScalar(x, s)
	if b.tracked(x) {
		b.record(ops.NewScaleOp(x, out, s))
	}
	return out
}

// AddScalar records x + s.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.AddScalar(x, s)
	if b.tracked(x) {
		b.record(ops.NewScaleOp(x, out, 1))
	}
	return out
}

// MatMul records a @ b.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	if b.tracked(x, y) {
		b.record(ops.NewMatMulOp(x, y, out))
	}
	return out
}

// Reshape records a reshape.
func (b *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(x, shape)
	if b.tracked(x) {
		b.record(ops.NewReshapeOp(x, out))
	}
	return out
}

// Transpose records a permutation.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	out := b.inner.Transpose(x, axes...)
	if b.tracked(x) {
		b.record(ops.NewTransposeOp(x, out, axes))
	}
	return out
}

// Cat records a concatenation.
func (b *AutodiffBackend[B]) Cat(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	out := b.inner.Cat(xs, dim)
	if b.tracked(xs...) {
		b.record(ops.NewCatOp(xs, out, dim))
	}
	return out
}

// Split is not differentiable and is forwarded as is.
func (b *AutodiffBackend[B]) Split(x *tensor.RawTensor, sizes []int, dim int) []*tensor.RawTensor {
	return b.inner.Split(x, sizes, dim)
}

// SumTo is not differentiable and is forwarded as is.
func (b *AutodiffBackend[B]) SumTo(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.inner.SumTo(x, shape)
}

// ReLU records max(x, 0).
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	if b.tracked(x) {
		b.record(ops.NewReLUOp(x, out))
	}
	return out
}

// Softmax records a softmax along dim.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	out := b.inner.Softmax(x, dim)
	if b.tracked(x) {
		b.record(ops.NewSoftmaxOp(x, out, dim))
	}
	return out
}

// Sum records a full reduction.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sum(x)
	if b.tracked(x) {
		b.record(ops.NewSumOp(x, out))
	}
	return out
}

// Argmax is not differentiable.
func (b *AutodiffBackend[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.Argmax(x, dim)
}

// CategoricalCrossEntropy records the loss of probs against targets.
func (b *AutodiffBackend[B]) CategoricalCrossEntropy(probs, targets *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.CategoricalCrossEntropy(probs, targets)
	if b.tracked(probs) {
		b.record(ops.NewCrossEntropyOp(probs, targets, out))
	}
	return out
}

// Conv2D records a convolution.
func (b *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	out := b.inner.Conv2D(input, kernel, stride, padding)
	if b.tracked(input, kernel) {
		b.record(ops.NewConv2DOp(input, kernel, out, stride, padding))
	}
	return out
}

// MaxPool2D records max pooling.
func (b *AutodiffBackend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	out := b.inner.MaxPool2D(input, kernelSize, stride, padding)
	if b.tracked(input) {
		b.record(ops.NewMaxPool2DOp(input, out, kernelSize, stride, padding))
	}
	return out
}

// AvgPool2D records average pooling.
func (b *AutodiffBackend[B]) AvgPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	out := b.inner.AvgPool2D(input, kernelSize, stride)
	if b.tracked(input) {
		b.record(ops.NewAvgPool2DOp(input, out, kernelSize, stride))
	}
	return out
}

// GlobalAvgPool2D records global average pooling.
func (b *AutodiffBackend[B]) GlobalAvgPool2D(input *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.GlobalAvgPool2D(input)
	if b.tracked(input) {
		b.record(ops.NewGlobalAvgPool2DOp(input, out))
	}
	return out
}

// BatchNorm2D records normalization with fixed statistics.
func (b *AutodiffBackend[B]) BatchNorm2D(x, gamma, beta, mean, variance *tensor.RawTensor, eps float32) *tensor.RawTensor {
	out := b.inner.BatchNorm2D(x, gamma, beta, mean, variance, eps)
	if b.tracked(x, gamma, beta) {
		b.record(ops.NewBatchNorm2DOp(x, gamma, beta, mean, variance, out, eps, false))
	}
	return out
}

// BatchNorm2DTraining records normalization with batch statistics.
// The returned statistics are not tracked.
func (b *AutodiffBackend[B]) BatchNorm2DTraining(x, gamma, beta *tensor.RawTensor, eps float32) (out, mean, variance *tensor.RawTensor) {
	out, mean, variance = b.inner.BatchNorm2DTraining(x, gamma, beta, eps)
	if b.tracked(x, gamma, beta) {
		b.record(ops.NewBatchNorm2DOp(x, gamma, beta, mean, variance, out, eps, true))
	}
	return out, mean, variance
}

// The gradient kernels below are forwarded untracked.

// ReLUBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) ReLUBackward(x, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.ReLUBackward(x, grad)
}

// SoftmaxBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) SoftmaxBackward(output, grad *tensor.RawTensor, dim int) *tensor.RawTensor {
	return b.inner.SoftmaxBackward(output, grad, dim)
}

// CrossEntropyBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) CrossEntropyBackward(probs, targets, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.CrossEntropyBackward(probs, targets, grad)
}

// Conv2DInputBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// Conv2DKernelBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, grad, stride, padding)
}

// MaxPool2DBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) MaxPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, grad, kernelSize, stride, padding)
}

// AvgPool2DBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) AvgPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	return b.inner.AvgPool2DBackward(input, grad, kernelSize, stride)
}

// GlobalAvgPool2DBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) GlobalAvgPool2DBackward(input, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.GlobalAvgPool2DBackward(input, grad)
}

// BatchNorm2DBackward forwards to the inner backend.
func (b *AutodiffBackend[B]) BatchNorm2DBackward(x, gamma, mean, variance, grad *tensor.RawTensor, eps float32, batchStats bool) (dx, dgamma, dbeta *tensor.RawTensor) {
	return b.inner.BatchNorm2DBackward(x, gamma, mean, variance, grad, eps, batchStats)
}
