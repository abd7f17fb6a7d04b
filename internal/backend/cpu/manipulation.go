package cpu

import (
	"fmt"

	"github.com/born-ml/vision/internal/tensor"
)

// Reshape returns a view of x with the same element count.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	v, err := x.View(shape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return v
}

// Transpose permutes axes. With no axes the last two dimensions are swapped.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	in := x.Shape()
	rank := len(in)
	if len(axes) == 0 {
		if rank < 2 {
			panic(fmt.Sprintf("transpose: need rank >= 2, got %v", in))
		}
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = i
		}
		axes[rank-1], axes[rank-2] = axes[rank-2], axes[rank-1]
	}
	if len(axes) != rank {
		panic(fmt.Sprintf("transpose: %d axes for rank %d", len(axes), rank))
	}

	inStrides := in.Strides()
	outShape := make(tensor.Shape, rank)
	srcStrides := make([]int, rank)
	seen := make([]bool, rank)
	for i, a := range axes {
		if a < 0 || a >= rank || seen[a] {
			panic(fmt.Sprintf("transpose: invalid permutation %v", axes))
		}
		seen[a] = true
		outShape[i] = in[a]
		srcStrides[i] = inStrides[a]
	}

	out := cpu.alloc(outShape)
	src, dst := x.AsFloat32(), out.AsFloat32()
	walkBroadcast(outShape, srcStrides, make([]int, rank), func(i, is, _ int) {
		dst[i] = src[is]
	})
	return out
}

// Cat concatenates tensors that agree on every dimension except dim.
func (cpu *CPUBackend) Cat(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(xs) == 0 {
		panic("cat: no tensors")
	}
	first := xs[0].Shape()
	dim = normDim("cat", dim, len(first))

	outShape := first.Clone()
	outShape[dim] = 0
	for _, x := range xs {
		s := x.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("cat: rank mismatch %v vs %v", first, s))
		}
		for d := range s {
			if d != dim && s[d] != first[d] {
				panic(fmt.Sprintf("cat: shape mismatch %v vs %v on dim %d", first, s, d))
			}
		}
		outShape[dim] += s[dim]
	}

	outer := first[:dim].NumElements()
	inner := first[dim+1:].NumElements()
	out := cpu.alloc(outShape)
	dst := out.AsFloat32()
	rowLen := outShape[dim] * inner

	col := 0
	for _, x := range xs {
		src := x.AsFloat32()
		block := x.Shape()[dim] * inner
		for o := range outer {
			copy(dst[o*rowLen+col:o*rowLen+col+block], src[o*block:(o+1)*block])
		}
		col += block
	}
	return out
}

// Split cuts x along dim into pieces of the given sizes.
func (cpu *CPUBackend) Split(x *tensor.RawTensor, sizes []int, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	dim = normDim("split", dim, len(shape))
	total := 0
	for _, s := range sizes {
		total += s
	}
	if total != shape[dim] {
		panic(fmt.Sprintf("split: sizes %v do not cover dim %d of %v", sizes, dim, shape))
	}

	outer := shape[:dim].NumElements()
	inner := shape[dim+1:].NumElements()
	rowLen := shape[dim] * inner
	src := x.AsFloat32()

	parts := make([]*tensor.RawTensor, len(sizes))
	col := 0
	for i, size := range sizes {
		ps := shape.Clone()
		ps[dim] = size
		part := cpu.alloc(ps)
		dst := part.AsFloat32()
		block := size * inner
		for o := range outer {
			copy(dst[o*block:(o+1)*block], src[o*rowLen+col:o*rowLen+col+block])
		}
		col += block
		parts[i] = part
	}
	return parts
}

// SumTo sums x over the dimensions that were broadcast to reach x's shape from shape.
func (cpu *CPUBackend) SumTo(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if x.Shape().Equal(shape) {
		return x.Clone()
	}
	if _, _, err := tensor.BroadcastShapes(shape, x.Shape()); err != nil {
		panic(fmt.Sprintf("sum to: %v", err))
	}
	xs := x.Shape()
	if len(shape) > len(xs) {
		panic(fmt.Sprintf("sum to: target %v has higher rank than %v", shape, xs))
	}
	out := cpu.alloc(shape)
	src, dst := x.AsFloat32(), out.AsFloat32()
	so := broadcastStrides(shape, xs)
	walkBroadcast(xs, so, make([]int, len(xs)), func(i, io, _ int) {
		dst[io] += src[i]
	})
	return out
}
