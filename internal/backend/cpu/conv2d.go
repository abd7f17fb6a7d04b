package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"

	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

// convGeom holds the dimensions of one Conv2D call.
type convGeom struct {
	n, cIn, h, w    int
	cOut, kh, kw    int
	hOut, wOut      int
	stride, padding int
}

func (g convGeom) colRows() int { return g.cIn * g.kh * g.kw }
func (g convGeom) colCols() int { return g.hOut * g.wOut }

func newConvGeom(op string, input, kernel *tensor.RawTensor, stride, padding int) convGeom {
	requireRank(op, input, 4)
	requireRank(op, kernel, 4)
	is, ks := input.Shape(), kernel.Shape()
	if is[1] != ks[1] {
		panic(fmt.Sprintf("%s: input has %d channels, kernel expects %d", op, is[1], ks[1]))
	}
	if stride <= 0 || padding < 0 {
		panic(fmt.Sprintf("%s: invalid stride %d or padding %d", op, stride, padding))
	}
	g := convGeom{
		n: is[0], cIn: is[1], h: is[2], w: is[3],
		cOut: ks[0], kh: ks[2], kw: ks[3],
		stride: stride, padding: padding,
	}
	g.hOut = (g.h+2*padding-g.kh)/stride + 1
	g.wOut = (g.w+2*padding-g.kw)/stride + 1
	if g.hOut <= 0 || g.wOut <= 0 {
		panic(fmt.Sprintf("%s: %dx%d kernel does not fit %dx%d input with padding %d", op, g.kh, g.kw, g.h, g.w, padding))
	}
	return g
}

// Conv2D convolves [N, C_in, H, W] with [C_out, C_in, K_h, K_w] using im2col and GEMM.
//
// Each batch item is unfolded to a [C_in*K_h*K_w, H_out*W_out] column matrix so the
// output plane for that item is kernel @ columns, already in NCHW order.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeom("conv2d", input, kernel, stride, padding)
	out := cpu.alloc(tensor.Shape{g.n, g.cOut, g.hOut, g.wOut})

	src, k, dst := input.AsFloat32(), kernel.AsFloat32(), out.AsFloat32()
	inPlane := g.cIn * g.h * g.w
	outPlane := g.cOut * g.colCols()

	parallel.For(g.n, func(n int) {
		col := make([]float32, g.colRows()*g.colCols())
		im2col(col, src[n*inPlane:(n+1)*inPlane], g)
		gemm(blas.NoTrans, blas.NoTrans, g.cOut, g.colCols(), g.colRows(),
			k, col, 0, dst[n*outPlane:(n+1)*outPlane])
	}, cpu.par)
	return out
}

// im2col unfolds one [C, H, W] image. Out-of-bounds taps read zero.
func im2col(col, img []float32, g convGeom) {
	cols := g.colCols()
	row := 0
	for c := range g.cIn {
		plane := img[c*g.h*g.w : (c+1)*g.h*g.w]
		for ki := range g.kh {
			for kj := range g.kw {
				dst := col[row*cols : (row+1)*cols]
				for oh := range g.hOut {
					ih := oh*g.stride - g.padding + ki
					for ow := range g.wOut {
						iw := ow*g.stride - g.padding + kj
						v := float32(0)
						if ih >= 0 && ih < g.h && iw >= 0 && iw < g.w {
							v = plane[ih*g.w+iw]
						}
						dst[oh*g.wOut+ow] = v
					}
				}
				row++
			}
		}
	}
}

// col2im scatters a column matrix back onto a zeroed [C, H, W] image, summing overlaps.
func col2im(img, col []float32, g convGeom) {
	cols := g.colCols()
	row := 0
	for c := range g.cIn {
		plane := img[c*g.h*g.w : (c+1)*g.h*g.w]
		for ki := range g.kh {
			for kj := range g.kw {
				src := col[row*cols : (row+1)*cols]
				for oh := range g.hOut {
					ih := oh*g.stride - g.padding + ki
					if ih < 0 || ih >= g.h {
						continue
					}
					for ow := range g.wOut {
						iw := ow*g.stride - g.padding + kj
						if iw >= 0 && iw < g.w {
							plane[ih*g.w+iw] += src[oh*g.wOut+ow]
						}
					}
				}
				row++
			}
		}
	}
}
