// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff adds reverse-mode differentiation to any backend.
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := ...
//	grads := autodiff.Backward(loss, backend)
package autodiff

import (
	"github.com/born-ml/vision/internal/autodiff"
	"github.com/born-ml/vision/internal/tensor"
)

// Backend decorates B with a gradient tape.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New wraps backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for the backward pass.
type GradientTape = autodiff.GradientTape

// Backward differentiates the scalar t with respect to every tracked tensor.
func Backward[T tensor.DType, B tensor.Backend](t *tensor.Tensor[T, *Backend[B]], backend *Backend[B]) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
