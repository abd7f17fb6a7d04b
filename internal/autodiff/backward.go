package autodiff

import (
	"fmt"

	"github.com/born-ml/vision/internal/tensor"
)

// Backward differentiates the scalar t with respect to every tracked tensor it depends on.
// The result maps each RawTensor to dt/dRaw. It panics if t was not produced by a
// recorded operation.
func Backward[T tensor.DType, B tensor.Backend](t *tensor.Tensor[T, *AutodiffBackend[B]], backend *AutodiffBackend[B]) map[*tensor.RawTensor]*tensor.RawTensor {
	if backend.tape.NumOps() == 0 || !t.RequiresGrad() {
		panic("backward: output was not recorded (start the tape and make sure a parameter requires grad)")
	}
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("backward: output must be a scalar, got shape %v", t.Shape()))
	}
	seed := tensor.MustRaw(t.Shape(), tensor.Float32, backend.Device())
	seed.Fill(1)
	return backend.tape.Backward(t.Raw(), seed, backend.inner)
}
