package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

type bnGeom struct {
	n, c, hw int
}

func newBNGeom(op string, x, gamma *tensor.RawTensor) bnGeom {
	requireRank(op, x, 4)
	s := x.Shape()
	if gamma.NumElements() != s[1] {
		panic(fmt.Sprintf("%s: %d channels but %d scale values", op, s[1], gamma.NumElements()))
	}
	return bnGeom{n: s[0], c: s[1], hw: s[2] * s[3]}
}

// forEach visits every element of channel c as a contiguous [H*W] run per batch item.
func (g bnGeom) forEach(data []float32, c int, f func(run []float32)) {
	for n := range g.n {
		off := (n*g.c + c) * g.hw
		f(data[off : off+g.hw])
	}
}

// BatchNorm2D applies gamma * (x - mean) / sqrt(variance + eps) + beta per channel.
func (cpu *CPUBackend) BatchNorm2D(x, gamma, beta, mean, variance *tensor.RawTensor, eps float32) *tensor.RawTensor {
	g := newBNGeom("batchnorm2d", x, gamma)
	out := cpu.alloc(x.Shape())
	cpu.normalize(g, x, gamma, beta, mean.AsFloat32(), variance.AsFloat32(), eps, out)
	return out
}

// BatchNorm2DTraining normalizes with the biased batch statistics and returns them.
func (cpu *CPUBackend) BatchNorm2DTraining(x, gamma, beta *tensor.RawTensor, eps float32) (out, mean, variance *tensor.RawTensor) {
	g := newBNGeom("batchnorm2d", x, gamma)
	mean = cpu.alloc(tensor.Shape{g.c})
	variance = cpu.alloc(tensor.Shape{g.c})
	src, mu, v := x.AsFloat32(), mean.AsFloat32(), variance.AsFloat32()
	count := float64(g.n * g.hw)

	parallel.For(g.c, func(c int) {
		var s float64
		g.forEach(src, c, func(run []float32) {
			for _, e := range run {
				s += float64(e)
			}
		})
		m := s / count
		var ss float64
		g.forEach(src, c, func(run []float32) {
			for _, e := range run {
				d := float64(e) - m
				ss += d * d
			}
		})
		mu[c] = float32(m)
		v[c] = float32(ss / count)
	}, cpu.par)

	out = cpu.alloc(x.Shape())
	cpu.normalize(g, x, gamma, beta, mu, v, eps, out)
	return out, mean, variance
}

func (cpu *CPUBackend) normalize(g bnGeom, x, gamma, beta *tensor.RawTensor, mu, v []float32, eps float32, out *tensor.RawTensor) {
	src, gm, bt, dst := x.AsFloat32(), gamma.AsFloat32(), beta.AsFloat32(), out.AsFloat32()
	parallel.For(g.c, func(c int) {
		scale := gm[c] * invStd(v[c], eps)
		shift := bt[c] - mu[c]*scale
		for n := range g.n {
			off := (n*g.c + c) * g.hw
			for i := off; i < off+g.hw; i++ {
				dst[i] = src[i]*scale + shift
			}
		}
	}, cpu.par)
}

// BatchNorm2DBackward returns gradients for x, gamma and beta.
//
// With batch statistics the x gradient is
//
//	dx = gamma*istd/m * (m*dy - sum(dy) - xhat*sum(dy*xhat))
//
// otherwise the statistics are constants and dx = gamma*istd*dy.
func (cpu *CPUBackend) BatchNorm2DBackward(x, gamma, mean, variance, grad *tensor.RawTensor, eps float32, batchStats bool) (dx, dgamma, dbeta *tensor.RawTensor) {
	g := newBNGeom("batchnorm2d backward", x, gamma)
	dx = cpu.alloc(x.Shape())
	dgamma = cpu.alloc(gamma.Shape())
	dbeta = cpu.alloc(gamma.Shape())

	src, dy, out := x.AsFloat32(), grad.AsFloat32(), dx.AsFloat32()
	gm, mu, v := gamma.AsFloat32(), mean.AsFloat32(), variance.AsFloat32()
	dg, db := dgamma.AsFloat32(), dbeta.AsFloat32()
	m := float32(g.n * g.hw)

	parallel.For(g.c, func(c int) {
		istd := invStd(v[c], eps)
		var sumDy, sumDyXhat float32
		for n := range g.n {
			off := (n*g.c + c) * g.hw
			for i := off; i < off+g.hw; i++ {
				xhat := (src[i] - mu[c]) * istd
				sumDy += dy[i]
				sumDyXhat += dy[i] * xhat
			}
		}
		dg[c] = sumDyXhat
		db[c] = sumDy

		k := gm[c] * istd
		for n := range g.n {
			off := (n*g.c + c) * g.hw
			for i := off; i < off+g.hw; i++ {
				if !batchStats {
					out[i] = k * dy[i]
					continue
				}
				xhat := (src[i] - mu[c]) * istd
				out[i] = k / m * (m*dy[i] - sumDy - xhat*sumDyXhat)
			}
		}
	}, cpu.par)
	return dx, dgamma, dbeta
}

func invStd(variance, eps float32) float32 {
	return float32(1 / math.Sqrt(float64(variance+eps)))
}
