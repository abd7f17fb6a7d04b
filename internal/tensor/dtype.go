// Package tensor provides the tensor types shared by the vision backends and layers.
package tensor

// DType is the set of element types a Tensor can hold.
type DType interface {
	float32 | int32
}

// DataType is the runtime tag for a tensor's element type.
type DataType int

// Supported element types.
const (
	Float32 DataType = iota
	Int32
)

// Size returns the element size in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	default:
		panic("tensor: unknown data type")
	}
}

// String returns the lowercase type name.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

func dataTypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	default:
		panic("tensor: unsupported element type")
	}
}
