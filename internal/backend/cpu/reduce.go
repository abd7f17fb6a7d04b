package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/vision/internal/tensor"
)

// probEpsilon clips probabilities before the log in cross-entropy.
const probEpsilon = 1e-7

// Sum reduces all elements to a scalar.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := cpu.alloc(tensor.Shape{})
	var s float64
	for _, v := range x.AsFloat32() {
		s += float64(v)
	}
	out.AsFloat32()[0] = float32(s)
	return out
}

// Argmax returns int32 indices of the largest value along dim, with dim removed.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = normDim("argmax", dim, len(shape))
	outer, size, inner := splitAround(shape, dim)

	outShape := append(shape[:dim].Clone(), shape[dim+1:]...)
	out := tensor.MustRaw(outShape, tensor.Int32, cpu.device)
	src, dst := x.AsFloat32(), out.AsInt32()
	for o := range outer {
		for i := range inner {
			base := o*size*inner + i
			best, bestIdx := src[base], 0
			for k := 1; k < size; k++ {
				if v := src[base+k*inner]; v > best {
					best, bestIdx = v, k
				}
			}
			dst[o*inner+i] = int32(bestIdx)
		}
	}
	return out
}

// Softmax normalizes exp(x) along dim.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = normDim("softmax", dim, len(shape))
	outer, size, inner := splitAround(shape, dim)

	out := cpu.alloc(shape)
	src, dst := x.AsFloat32(), out.AsFloat32()
	for o := range outer {
		for i := range inner {
			base := o*size*inner + i
			m := src[base]
			for k := 1; k < size; k++ {
				m = max(m, src[base+k*inner])
			}
			var sum float64
			for k := range size {
				e := math.Exp(float64(src[base+k*inner] - m))
				dst[base+k*inner] = float32(e)
				sum += e
			}
			for k := range size {
				dst[base+k*inner] = float32(float64(dst[base+k*inner]) / sum)
			}
		}
	}
	return out
}

// SoftmaxBackward computes s * (g - sum(g * s)) along dim, where s is the softmax output.
func (cpu *CPUBackend) SoftmaxBackward(output, grad *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := output.Shape()
	dim = normDim("softmax backward", dim, len(shape))
	outer, size, inner := splitAround(shape, dim)

	out := cpu.alloc(shape)
	s, g, dst := output.AsFloat32(), grad.AsFloat32(), out.AsFloat32()
	for o := range outer {
		for i := range inner {
			base := o*size*inner + i
			var dot float32
			for k := range size {
				dot += s[base+k*inner] * g[base+k*inner]
			}
			for k := range size {
				j := base + k*inner
				dst[j] = s[j] * (g[j] - dot)
			}
		}
	}
	return out
}

// CategoricalCrossEntropy returns the mean over the batch of -sum(y * log(p)) for
// probabilities p and one-hot or soft targets y, both [N, K].
func (cpu *CPUBackend) CategoricalCrossEntropy(probs, targets *tensor.RawTensor) *tensor.RawTensor {
	requireRank("cross entropy", probs, 2)
	if !probs.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("cross entropy: probs %v vs targets %v", probs.Shape(), targets.Shape()))
	}
	n := probs.Shape()[0]
	p, y := probs.AsFloat32(), targets.AsFloat32()

	var loss float64
	for i := range p {
		if y[i] == 0 {
			continue
		}
		loss -= float64(y[i]) * math.Log(float64(clipProb(p[i])))
	}
	out := cpu.alloc(tensor.Shape{})
	out.AsFloat32()[0] = float32(loss / float64(n))
	return out
}

// CrossEntropyBackward returns dL/dp for CategoricalCrossEntropy scaled by the scalar grad.
func (cpu *CPUBackend) CrossEntropyBackward(probs, targets, grad *tensor.RawTensor) *tensor.RawTensor {
	n := probs.Shape()[0]
	scale := grad.AsFloat32()[0] / float32(n)
	out := cpu.alloc(probs.Shape())
	p, y, dst := probs.AsFloat32(), targets.AsFloat32(), out.AsFloat32()
	for i := range p {
		dst[i] = -scale * y[i] / clipProb(p[i])
	}
	return out
}

func clipProb(p float32) float32 {
	return min(max(p, probEpsilon), 1-probEpsilon)
}

// splitAround returns the element counts before, along and after dim.
func splitAround(shape tensor.Shape, dim int) (outer, size, inner int) {
	return shape[:dim].NumElements(), shape[dim], shape[dim+1:].NumElements()
}
