package tensor

import (
	"fmt"
	"strings"
)

// Tensor is a typed handle over a RawTensor bound to a backend.
//
// Example:
//
//	b := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, b)
//	y := x.AddScalar(1)
type Tensor[T DType, B Backend] struct {
	raw     *RawTensor
	backend B
}

// New wraps raw storage.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return &Tensor[T, B]{raw: raw, backend: b}
}

// FromSlice copies data into a new tensor.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, dataTypeOf[T](), b.Device())
	if err != nil {
		return nil, err
	}
	t := New[T](raw, b)
	copy(t.Data(), data)
	return t, nil
}

// Shape returns the dimensions.
func (t *Tensor[T, B]) Shape() Shape { return t.raw.Shape() }

// DType returns the element type.
func (t *Tensor[T, B]) DType() DataType { return t.raw.DType() }

// NumElements returns the element count.
func (t *Tensor[T, B]) NumElements() int { return t.raw.NumElements() }

// Raw returns the underlying storage.
func (t *Tensor[T, B]) Raw() *RawTensor { return t.raw }

// Backend returns the backend that runs operations on t.
func (t *Tensor[T, B]) Backend() B { return t.backend }

// Data returns the backing slice. Writes are visible to every view of t.
func (t *Tensor[T, B]) Data() []T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(t.raw.AsFloat32()).([]T)
	case int32:
		return any(t.raw.AsInt32()).([]T)
	default:
		panic("tensor: unsupported element type")
	}
}

// Item returns the value of a single-element tensor.
func (t *Tensor[T, B]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("tensor: Item on shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at the given index.
func (t *Tensor[T, B]) At(idx ...int) T {
	return t.Data()[t.offset(idx)]
}

// Set writes the element at the given index.
func (t *Tensor[T, B]) Set(v T, idx ...int) {
	t.Data()[t.offset(idx)] = v
}

func (t *Tensor[T, B]) offset(idx []int) int {
	shape := t.Shape()
	if len(idx) != len(shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(shape)))
	}
	strides := shape.Strides()
	off := 0
	for i, v := range idx {
		if v < 0 || v >= shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dim %d (size %d)", v, i, shape[i]))
		}
		off += v * strides[i]
	}
	return off
}

// RequiresGrad reports whether operations on t are recorded for backprop.
func (t *Tensor[T, B]) RequiresGrad() bool { return t.raw.RequiresGrad() }

// SetRequiresGrad toggles gradient tracking and returns t.
func (t *Tensor[T, B]) SetRequiresGrad(v bool) *Tensor[T, B] {
	t.raw.SetRequiresGrad(v)
	return t
}

// Detach returns a tensor sharing t's data that autodiff does not track.
func (t *Tensor[T, B]) Detach() *Tensor[T, B] {
	view, err := t.raw.View(t.raw.Shape())
	if err != nil {
		panic(err)
	}
	return New[T](view, t.backend)
}

// Clone deep-copies t.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return New[T](t.raw.Clone(), t.backend)
}

// String prints shape, dtype and up to eight leading values.
func (t *Tensor[T, B]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor(%v, %v)[", t.Shape(), t.DType())
	data := t.Data()
	for i, v := range data {
		if i == 8 {
			sb.WriteString(" ...")
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, v)
	}
	sb.WriteByte(']')
	return sb.String()
}
