package cpu

import (
	"fmt"

	"github.com/born-ml/vision/internal/tensor"
)

// Add returns a + b with broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub returns a - b with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul returns a * b with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div returns a / b with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, func(x, y float32) float32 { return x / y })
}

// MulScalar returns x * s.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return v * s })
}

// AddScalar returns x + s.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return v + s })
}

// ReLU returns max(x, 0).
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary(x, func(v float32) float32 { return max(v, 0) })
}

// ReLUBackward passes grad where x > 0.
func (cpu *CPUBackend) ReLUBackward(x, grad *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("relu backward", x, grad, func(v, g float32) float32 {
		if v > 0 {
			return g
		}
		return 0
	})
}

func (cpu *CPUBackend) unary(x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	out := cpu.alloc(x.Shape())
	src, dst := x.AsFloat32(), out.AsFloat32()
	for i, v := range src {
		dst[i] = f(v)
	}
	return out
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	out := cpu.alloc(outShape)
	ad, bd, od := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()

	if a.Shape().Equal(b.Shape()) {
		for i := range od {
			od[i] = f(ad[i], bd[i])
		}
		return out
	}

	sa := broadcastStrides(a.Shape(), outShape)
	sb := broadcastStrides(b.Shape(), outShape)
	walkBroadcast(outShape, sa, sb, func(i, ia, ib int) {
		od[i] = f(ad[ia], bd[ib])
	})
	return out
}

// broadcastStrides returns strides of in aligned to out, zero along broadcast dimensions.
func broadcastStrides(in, out tensor.Shape) []int {
	s := make([]int, len(out))
	strides := in.Strides()
	off := len(out) - len(in)
	for i, d := range in {
		if d != 1 {
			s[off+i] = strides[i]
		}
	}
	return s
}

// walkBroadcast visits every flat index of shape together with the matching offsets of two operands.
func walkBroadcast(shape tensor.Shape, sa, sb []int, visit func(i, ia, ib int)) {
	n := shape.NumElements()
	idx := make([]int, len(shape))
	ia, ib := 0, 0
	for i := range n {
		visit(i, ia, ib)
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			ia += sa[d]
			ib += sb[d]
			if idx[d] < shape[d] {
				break
			}
			ia -= sa[d] * shape[d]
			ib -= sb[d] * shape[d]
			idx[d] = 0
		}
	}
}
