package tensor

import "fmt"

// Device identifies where tensor memory lives.
type Device int

// Supported devices.
const (
	CPU Device = iota
)

func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// RawTensor is the untyped storage every backend operates on.
// Data is contiguous and row-major. Views created by Reshape share storage.
type RawTensor struct {
	shape  Shape
	dtype  DataType
	device Device

	f32 []float32
	i32 []int32

	requiresGrad bool
}

// NewRaw allocates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape %v: %w", shape, err)
	}
	r := &RawTensor{shape: shape.Clone(), dtype: dtype, device: device}
	switch dtype {
	case Float32:
		r.f32 = make([]float32, shape.NumElements())
	case Int32:
		r.i32 = make([]int32, shape.NumElements())
	default:
		return nil, fmt.Errorf("unsupported dtype %v", dtype)
	}
	return r, nil
}

// MustRaw is NewRaw that panics on error. Backends use it for shapes they computed themselves.
func MustRaw(shape Shape, dtype DataType, device Device) *RawTensor {
	r, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return r
}

// WrapFloat32 builds a float32 tensor that takes ownership of data.
func WrapFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape %v: %w", shape, err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &RawTensor{shape: shape.Clone(), dtype: Float32, device: CPU, f32: data}, nil
}

// Shape returns the dimensions. Callers must not modify it.
func (r *RawTensor) Shape() Shape { return r.shape }

// DType returns the element type.
func (r *RawTensor) DType() DataType { return r.dtype }

// Device returns the owning device.
func (r *RawTensor) Device() Device { return r.device }

// NumElements returns the element count.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize returns the storage size in bytes.
func (r *RawTensor) ByteSize() int { return r.NumElements() * r.dtype.Size() }

// Strides returns row-major strides.
func (r *RawTensor) Strides() []int { return r.shape.Strides() }

// AsFloat32 exposes the backing slice. Panics for other dtypes.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor: AsFloat32 on %v tensor", r.dtype))
	}
	return r.f32
}

// AsInt32 exposes the backing slice. Panics for other dtypes.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor: AsInt32 on %v tensor", r.dtype))
	}
	return r.i32
}

// RequiresGrad reports whether autodiff tracks operations on this tensor.
func (r *RawTensor) RequiresGrad() bool { return r.requiresGrad }

// SetRequiresGrad marks the tensor as a gradient leaf (or stops tracking it).
func (r *RawTensor) SetRequiresGrad(v bool) { r.requiresGrad = v }

// Clone deep-copies data. The copy does not require gradients.
func (r *RawTensor) Clone() *RawTensor {
	out := &RawTensor{shape: r.shape.Clone(), dtype: r.dtype, device: r.device}
	switch r.dtype {
	case Float32:
		out.f32 = append([]float32(nil), r.f32...)
	case Int32:
		out.i32 = append([]int32(nil), r.i32...)
	}
	return out
}

// View returns a tensor sharing storage with r under a new shape of equal size.
func (r *RawTensor) View(shape Shape) (*RawTensor, error) {
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("cannot view %v as %v", r.shape, shape)
	}
	return &RawTensor{shape: shape.Clone(), dtype: r.dtype, device: r.device, f32: r.f32, i32: r.i32}, nil
}

// Fill sets every float32 element to v.
func (r *RawTensor) Fill(v float32) {
	data := r.AsFloat32()
	for i := range data {
		data[i] = v
	}
}
