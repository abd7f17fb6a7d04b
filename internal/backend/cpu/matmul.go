package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/vision/internal/tensor"
)

// MatMul multiplies [M, K] by [K, N].
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	requireRank("matmul", a, 2)
	requireRank("matmul", b, 2)
	m, k := a.Shape()[0], a.Shape()[1]
	k2, n := b.Shape()[0], b.Shape()[1]
	if k != k2 {
		panic(fmt.Sprintf("matmul: inner dimensions differ: %v @ %v", a.Shape(), b.Shape()))
	}
	out := cpu.alloc(tensor.Shape{m, n})
	gemm(blas.NoTrans, blas.NoTrans, m, n, k, a.AsFloat32(), b.AsFloat32(), 0, out.AsFloat32())
	return out
}

// gemm computes c = op(a) @ op(b) + beta*c for row-major dense operands.
// m and n are the rows and columns of c; k is the shared dimension.
func gemm(tA, tB blas.Transpose, m, n, k int, a, b []float32, beta float32, c []float32) {
	ga := blas32.General{Rows: m, Cols: k, Stride: k, Data: a}
	if tA == blas.Trans {
		ga = blas32.General{Rows: k, Cols: m, Stride: m, Data: a}
	}
	gb := blas32.General{Rows: k, Cols: n, Stride: n, Data: b}
	if tB == blas.Trans {
		gb = blas32.General{Rows: n, Cols: k, Stride: k, Data: b}
	}
	gc := blas32.General{Rows: m, Cols: n, Stride: n, Data: c}
	blas32.Gemm(tA, tB, 1, ga, gb, beta, gc)
}
