package cpu

import (
	"gonum.org/v1/gonum/blas"

	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

// Conv2DInputBackward returns dL/dinput: kernelᵀ @ grad per batch item, folded back with col2im.
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeom("conv2d input backward", input, kernel, stride, padding)
	out := cpu.alloc(input.Shape())

	k, dy, dx := kernel.AsFloat32(), grad.AsFloat32(), out.AsFloat32()
	inPlane := g.cIn * g.h * g.w
	outPlane := g.cOut * g.colCols()

	parallel.For(g.n, func(n int) {
		col := make([]float32, g.colRows()*g.colCols())
		gemm(blas.Trans, blas.NoTrans, g.colRows(), g.colCols(), g.cOut,
			k, dy[n*outPlane:(n+1)*outPlane], 0, col)
		col2im(dx[n*inPlane:(n+1)*inPlane], col, g)
	}, cpu.par)
	return out
}

// Conv2DKernelBackward returns dL/dkernel: the sum over the batch of grad @ columnsᵀ.
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	g := newConvGeom("conv2d kernel backward", input, kernel, stride, padding)
	out := cpu.alloc(kernel.Shape())

	x, dy, dk := input.AsFloat32(), grad.AsFloat32(), out.AsFloat32()
	inPlane := g.cIn * g.h * g.w
	outPlane := g.cOut * g.colCols()

	col := make([]float32, g.colRows()*g.colCols())
	for n := range g.n {
		im2col(col, x[n*inPlane:(n+1)*inPlane], g)
		gemm(blas.NoTrans, blas.Trans, g.cOut, g.colRows(), g.colCols(),
			dy[n*outPlane:(n+1)*outPlane], col, 1, dk)
	}
	return out
}
