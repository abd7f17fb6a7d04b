package nn

import (
	"errors"
	"fmt"
	"maps"

	"github.com/born-ml/vision/internal/tensor"
)

var (
	// ErrMissingState is returned when a state dict lacks a required entry.
	ErrMissingState = errors.New("missing state entry")
	// ErrStateShape is returned when a state dict entry has the wrong shape or dtype.
	ErrStateShape = errors.New("state entry shape mismatch")
)

// Key joins a layer name and a variable name the way Keras does.
func Key(layer, variable string) string {
	return layer + "/" + variable
}

// copyState validates state[key] against dst and copies it in.
func copyState(state map[string]*tensor.RawTensor, key string, dst *tensor.RawTensor) error {
	src, ok := state[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrMissingState)
	}
	if src.DType() != tensor.Float32 || !src.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("%s: want float32 %v, got %v %v: %w", key, dst.Shape(), src.DType(), src.Shape(), ErrStateShape)
	}
	copy(dst.AsFloat32(), src.AsFloat32())
	return nil
}

// copyStateTransposed copies state[key] into dst after permuting it with axes.
func copyStateTransposed[B tensor.Backend](backend B, state map[string]*tensor.RawTensor, key string, dst *tensor.RawTensor, axes ...int) error {
	src, ok := state[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrMissingState)
	}
	if src.DType() != tensor.Float32 || len(src.Shape()) != len(axes) {
		return fmt.Errorf("%s: want rank %d float32, got %v %v: %w", key, len(axes), src.DType(), src.Shape(), ErrStateShape)
	}
	return copyState(map[string]*tensor.RawTensor{key: backend.Transpose(src, axes...)}, key, dst)
}

// mergeState copies every entry of src into dst.
func mergeState(dst, src map[string]*tensor.RawTensor) {
	maps.Copy(dst, src)
}
