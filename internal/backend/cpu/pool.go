package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

type poolGeom struct {
	n, c, h, w         int
	k, stride, padding int
	hOut, wOut         int
}

func newPoolGeom(op string, input *tensor.RawTensor, kernelSize, stride, padding int) poolGeom {
	requireRank(op, input, 4)
	if kernelSize <= 0 || stride <= 0 || padding < 0 || padding >= kernelSize {
		panic(fmt.Sprintf("%s: invalid kernel %d, stride %d, padding %d", op, kernelSize, stride, padding))
	}
	s := input.Shape()
	g := poolGeom{n: s[0], c: s[1], h: s[2], w: s[3], k: kernelSize, stride: stride, padding: padding}
	g.hOut = (g.h+2*padding-kernelSize)/stride + 1
	g.wOut = (g.w+2*padding-kernelSize)/stride + 1
	if g.hOut <= 0 || g.wOut <= 0 {
		panic(fmt.Sprintf("%s: window %d does not fit %dx%d input", op, kernelSize, g.h, g.w))
	}
	return g
}

// argmaxWindow returns the flat in-plane index of the largest tap, or -1 if the window is all padding.
func (g poolGeom) argmaxWindow(plane []float32, oh, ow int) int {
	best := float32(math.Inf(-1))
	bestIdx := -1
	for ki := range g.k {
		ih := oh*g.stride - g.padding + ki
		if ih < 0 || ih >= g.h {
			continue
		}
		for kj := range g.k {
			iw := ow*g.stride - g.padding + kj
			if iw < 0 || iw >= g.w {
				continue
			}
			if v := plane[ih*g.w+iw]; bestIdx < 0 || v > best {
				best, bestIdx = v, ih*g.w+iw
			}
		}
	}
	return bestIdx
}

// MaxPool2D takes the maximum of each window. Padded positions never win.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	g := newPoolGeom("maxpool2d", input, kernelSize, stride, padding)
	out := cpu.alloc(tensor.Shape{g.n, g.c, g.hOut, g.wOut})
	src, dst := input.AsFloat32(), out.AsFloat32()

	parallel.ForBatch(g.n, g.c, func(n, c int) {
		p := n*g.c + c
		plane := src[p*g.h*g.w : (p+1)*g.h*g.w]
		res := dst[p*g.hOut*g.wOut : (p+1)*g.hOut*g.wOut]
		for oh := range g.hOut {
			for ow := range g.wOut {
				if i := g.argmaxWindow(plane, oh, ow); i >= 0 {
					res[oh*g.wOut+ow] = plane[i]
				}
			}
		}
	}, cpu.par)
	return out
}

// MaxPool2DBackward routes each output gradient to the input position that won the window.
func (cpu *CPUBackend) MaxPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	g := newPoolGeom("maxpool2d backward", input, kernelSize, stride, padding)
	out := cpu.alloc(input.Shape())
	src, dy, dx := input.AsFloat32(), grad.AsFloat32(), out.AsFloat32()

	parallel.ForBatch(g.n, g.c, func(n, c int) {
		p := n*g.c + c
		plane := src[p*g.h*g.w : (p+1)*g.h*g.w]
		gin := dx[p*g.h*g.w : (p+1)*g.h*g.w]
		gout := dy[p*g.hOut*g.wOut : (p+1)*g.hOut*g.wOut]
		for oh := range g.hOut {
			for ow := range g.wOut {
				if i := g.argmaxWindow(plane, oh, ow); i >= 0 {
					gin[i] += gout[oh*g.wOut+ow]
				}
			}
		}
	}, cpu.par)
	return out
}

// AvgPool2D averages each window. No padding.
func (cpu *CPUBackend) AvgPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	g := newPoolGeom("avgpool2d", input, kernelSize, stride, 0)
	out := cpu.alloc(tensor.Shape{g.n, g.c, g.hOut, g.wOut})
	src, dst := input.AsFloat32(), out.AsFloat32()
	inv := 1 / float32(g.k*g.k)

	parallel.ForBatch(g.n, g.c, func(n, c int) {
		p := n*g.c + c
		plane := src[p*g.h*g.w : (p+1)*g.h*g.w]
		res := dst[p*g.hOut*g.wOut : (p+1)*g.hOut*g.wOut]
		for oh := range g.hOut {
			for ow := range g.wOut {
				var s float32
				for ki := range g.k {
					row := (oh*g.stride + ki) * g.w
					for kj := range g.k {
						s += plane[row+ow*g.stride+kj]
					}
				}
				res[oh*g.wOut+ow] = s * inv
			}
		}
	}, cpu.par)
	return out
}

// AvgPool2DBackward spreads each output gradient evenly over its window.
func (cpu *CPUBackend) AvgPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	g := newPoolGeom("avgpool2d backward", input, kernelSize, stride, 0)
	out := cpu.alloc(input.Shape())
	dy, dx := grad.AsFloat32(), out.AsFloat32()
	inv := 1 / float32(g.k*g.k)

	parallel.ForBatch(g.n, g.c, func(n, c int) {
		p := n*g.c + c
		gin := dx[p*g.h*g.w : (p+1)*g.h*g.w]
		gout := dy[p*g.hOut*g.wOut : (p+1)*g.hOut*g.wOut]
		for oh := range g.hOut {
			for ow := range g.wOut {
				v := gout[oh*g.wOut+ow] * inv
				for ki := range g.k {
					row := (oh*g.stride + ki) * g.w
					for kj := range g.k {
						gin[row+ow*g.stride+kj] += v
					}
				}
			}
		}
	}, cpu.par)
	return out
}

// GlobalAvgPool2D averages each [H, W] plane, giving [N, C].
func (cpu *CPUBackend) GlobalAvgPool2D(input *tensor.RawTensor) *tensor.RawTensor {
	requireRank("global avgpool2d", input, 4)
	s := input.Shape()
	n, c, hw := s[0], s[1], s[2]*s[3]
	out := cpu.alloc(tensor.Shape{n, c})
	src, dst := input.AsFloat32(), out.AsFloat32()
	for p := range n * c {
		var sum float32
		for _, v := range src[p*hw : (p+1)*hw] {
			sum += v
		}
		dst[p] = sum / float32(hw)
	}
	return out
}

// GlobalAvgPool2DBackward broadcasts grad[n, c] / (H*W) over the plane.
func (cpu *CPUBackend) GlobalAvgPool2DBackward(input, grad *tensor.RawTensor) *tensor.RawTensor {
	s := input.Shape()
	hw := s[2] * s[3]
	out := cpu.alloc(s)
	dy, dx := grad.AsFloat32(), out.AsFloat32()
	for p, g := range dy {
		v := g / float32(hw)
		plane := dx[p*hw : (p+1)*hw]
		for i := range plane {
			plane[i] = v
		}
	}
	return out
}
