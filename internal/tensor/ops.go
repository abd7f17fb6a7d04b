package tensor

func (t *Tensor[T, B]) wrap(raw *RawTensor) *Tensor[T, B] {
	return New[T](raw, t.backend)
}

// Add returns t + other with broadcasting.
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.Add(t.raw, other.raw))
}

// Sub returns t - other with broadcasting.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.Sub(t.raw, other.raw))
}

// Mul returns the element-wise product with broadcasting.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.Mul(t.raw, other.raw))
}

// Div returns the element-wise quotient with broadcasting.
func (t *Tensor[T, B]) Div(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.Div(t.raw, other.raw))
}

// MulScalar scales every element.
func (t *Tensor[T, B]) MulScalar(s float32) *Tensor[T, B] {
	return t.wrap(t.backend.MulScalar(t.raw, s))
}

// AddScalar shifts every element.
func (t *Tensor[T, B]) AddScalar(s float32) *Tensor[T, B] {
	return t.wrap(t.backend.AddScalar(t.raw, s))
}

// MatMul multiplies [M, K] by [K, N].
func (t *Tensor[T, B]) MatMul(other *Tensor[T, B]) *Tensor[T, B] {
	return t.wrap(t.backend.MatMul(t.raw, other.raw))
}

// Reshape returns t with new dimensions. One dimension may be -1.
func (t *Tensor[T, B]) Reshape(dims ...int) *Tensor[T, B] {
	return t.wrap(t.backend.Reshape(t.raw, inferShape(dims, t.NumElements())))
}

// Transpose permutes dimensions. With no axes it swaps the last two.
func (t *Tensor[T, B]) Transpose(axes ...int) *Tensor[T, B] {
	return t.wrap(t.backend.Transpose(t.raw, axes...))
}

// T is Transpose with no arguments.
func (t *Tensor[T, B]) T() *Tensor[T, B] {
	return t.Transpose()
}

// ReLU applies max(x, 0).
func (t *Tensor[T, B]) ReLU() *Tensor[T, B] {
	return t.wrap(t.backend.ReLU(t.raw))
}

// Softmax normalizes along dim. Negative dims count from the end.
func (t *Tensor[T, B]) Softmax(dim int) *Tensor[T, B] {
	return t.wrap(t.backend.Softmax(t.raw, dim))
}

// Sum reduces every element to a scalar.
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	return t.wrap(t.backend.Sum(t.raw))
}

// Argmax returns int32 indices of the maximum along dim.
func (t *Tensor[T, B]) Argmax(dim int) *Tensor[int32, B] {
	return New[int32](t.backend.Argmax(t.raw, dim), t.backend)
}

// Conv2D convolves an NCHW input with a [C_out, C_in, K, K] kernel.
func (t *Tensor[T, B]) Conv2D(kernel *Tensor[T, B], stride, padding int) *Tensor[T, B] {
	return t.wrap(t.backend.Conv2D(t.raw, kernel.raw, stride, padding))
}

// MaxPool2D pools NCHW input. Padding cells never win.
func (t *Tensor[T, B]) MaxPool2D(kernelSize, stride, padding int) *Tensor[T, B] {
	return t.wrap(t.backend.MaxPool2D(t.raw, kernelSize, stride, padding))
}

// AvgPool2D averages non-overlapping or strided windows without padding.
func (t *Tensor[T, B]) AvgPool2D(kernelSize, stride int) *Tensor[T, B] {
	return t.wrap(t.backend.AvgPool2D(t.raw, kernelSize, stride))
}

// GlobalAvgPool2D reduces [N, C, H, W] to [N, C].
func (t *Tensor[T, B]) GlobalAvgPool2D() *Tensor[T, B] {
	return t.wrap(t.backend.GlobalAvgPool2D(t.raw))
}

// Cat concatenates tensors along dim.
func Cat[T DType, B Backend](ts []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(ts) == 0 {
		panic("tensor: Cat of nothing")
	}
	raws := make([]*RawTensor, len(ts))
	for i, t := range ts {
		raws[i] = t.raw
	}
	return ts[0].wrap(ts[0].backend.Cat(raws, dim))
}

func inferShape(dims []int, n int) Shape {
	shape := make(Shape, len(dims))
	infer := -1
	known := 1
	for i, d := range dims {
		if d == -1 {
			if infer >= 0 {
				panic("tensor: more than one -1 in reshape")
			}
			infer = i
			continue
		}
		shape[i] = d
		known *= d
	}
	if infer >= 0 {
		if known == 0 || n%known != 0 {
			panic("tensor: cannot infer reshape dimension")
		}
		shape[infer] = n / known
	}
	return shape
}
