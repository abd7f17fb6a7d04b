package serialization

import (
	"fmt"
	"strings"

	"github.com/born-ml/vision/internal/tensor"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidateTensorName rejects empty, oversized and malformed names.
// Keras-style "/" separators are allowed.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Err: ErrInvalidTensorName, Details: "empty name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen)}
	case strings.Contains(name, ".."):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains '..'"}
	case strings.ContainsRune(name, 0):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains null byte"}
	case strings.HasPrefix(name, "/") || strings.Contains(name, "\\"):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "absolute or backslash path"}
	}
	return nil
}

// ValidateTensorOffsets checks offsets for negatives, overlaps and overruns.
// tensors must be sorted by offset.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{Err: ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount)}
	}
	for i, t := range tensors {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{Err: ErrNegativeOffset, Tensor: t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size)}
		}
		if t.Offset+t.Size > dataSize {
			return &ValidationError{Err: ErrOutOfBounds, Tensor: t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data size %d", t.Offset, t.Size, dataSize)}
		}
		if i < len(tensors)-1 {
			next := tensors[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{Err: ErrOffsetOverlap, Tensor: t.Name, Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size)}
			}
		}
	}
	return nil
}

// ValidateHeader checks names, dtypes, shapes and offsets.
func ValidateHeader(h *Header, dataSize int64) error {
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		dt, err := dtypeFromSafeTensors(t.DType)
		if err != nil {
			return fmt.Errorf("tensor %q: %w", t.Name, err)
		}
		shape := tensor.Shape(t.Shape)
		if err := shape.Validate(); err != nil {
			return fmt.Errorf("tensor %q: %w", t.Name, err)
		}
		if want := int64(shape.NumElements() * dt.Size()); want != t.Size {
			return &ValidationError{Err: ErrSizeMismatch, Tensor: t.Name,
				Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", t.Shape, want, t.Size)}
		}
	}
	return ValidateTensorOffsets(h.Tensors, dataSize)
}
