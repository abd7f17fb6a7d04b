// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// Convolutions use im2col followed by a gonum GEMM, and batch items are
// spread over a bounded set of goroutines.
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
package cpu

import (
	internalcpu "github.com/born-ml/vision/internal/backend/cpu"
	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/tensor"
)

// Backend is the CPU backend.
type Backend = internalcpu.CPUBackend

var _ tensor.Backend = (*Backend)(nil)

// New returns a CPU backend using every core.
func New() *Backend {
	return internalcpu.New()
}

// NewSequential returns a CPU backend that never spawns goroutines.
func NewSequential() *Backend {
	return internalcpu.New(internalcpu.WithParallel(parallel.Config{Enabled: false}))
}
