package tensor

// Backend executes tensor operations on a device.
//
// Image tensors use NCHW layout. Kernels are [C_out, C_in, K_h, K_w].
// Operations never modify their inputs.
type Backend interface {
	// Element-wise arithmetic with NumPy broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor
	MulScalar(x *RawTensor, s float32) *RawTensor
	AddScalar(x *RawTensor, s float32) *RawTensor

	// Linear algebra and layout.
	MatMul(a, b *RawTensor) *RawTensor
	Reshape(x *RawTensor, shape Shape) *RawTensor
	Transpose(x *RawTensor, axes ...int) *RawTensor
	Cat(xs []*RawTensor, dim int) *RawTensor
	Split(x *RawTensor, sizes []int, dim int) []*RawTensor
	SumTo(x *RawTensor, shape Shape) *RawTensor

	// Activations and reductions.
	ReLU(x *RawTensor) *RawTensor
	Softmax(x *RawTensor, dim int) *RawTensor
	Sum(x *RawTensor) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor
	CategoricalCrossEntropy(probs, targets *RawTensor) *RawTensor

	// Spatial operations.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride, padding int) *RawTensor
	AvgPool2D(input *RawTensor, kernelSize, stride int) *RawTensor
	GlobalAvgPool2D(input *RawTensor) *RawTensor

	// BatchNorm2D normalizes with the given per-channel statistics.
	BatchNorm2D(x, gamma, beta, mean, variance *RawTensor, eps float32) *RawTensor
	// BatchNorm2DTraining normalizes with batch statistics and returns them.
	BatchNorm2DTraining(x, gamma, beta *RawTensor, eps float32) (out, mean, variance *RawTensor)

	// Gradient kernels used by autodiff.
	ReLUBackward(x, grad *RawTensor) *RawTensor
	SoftmaxBackward(output, grad *RawTensor, dim int) *RawTensor
	CrossEntropyBackward(probs, targets, grad *RawTensor) *RawTensor
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	MaxPool2DBackward(input, grad *RawTensor, kernelSize, stride, padding int) *RawTensor
	AvgPool2DBackward(input, grad *RawTensor, kernelSize, stride int) *RawTensor
	GlobalAvgPool2DBackward(input, grad *RawTensor) *RawTensor
	// BatchNorm2DBackward returns gradients for x, gamma and beta.
	// When batchStats is true, mean and variance are treated as functions of x.
	BatchNorm2DBackward(x, gamma, mean, variance, grad *RawTensor, eps float32, batchStats bool) (dx, dgamma, dbeta *RawTensor)

	Name() string
	Device() Device
}
