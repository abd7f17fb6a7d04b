// Package cpu implements tensor.Backend on the host CPU with gonum BLAS for the matrix kernels.
package cpu

import (
	"fmt"

	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

// CPUBackend runs float32 tensor operations on the host.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// Option configures a CPUBackend.
type Option func(*CPUBackend)

// WithParallel overrides how batch and channel loops are split across goroutines.
func WithParallel(cfg parallel.Config) Option {
	return func(c *CPUBackend) { c.par = cfg }
}

// New creates a CPU backend.
func New(opts ...Option) *CPUBackend {
	c := &CPUBackend{device: tensor.CPU, par: parallel.DefaultConfig()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name returns "CPU".
func (cpu *CPUBackend) Name() string { return "CPU" }

// Device returns tensor.CPU.
func (cpu *CPUBackend) Device() tensor.Device { return cpu.device }

func (cpu *CPUBackend) alloc(shape tensor.Shape) *tensor.RawTensor {
	return tensor.MustRaw(shape, tensor.Float32, cpu.device)
}

func requireRank(op string, x *tensor.RawTensor, rank int) {
	if len(x.Shape()) != rank {
		panic(fmt.Sprintf("%s: expected %dD input, got shape %v", op, rank, x.Shape()))
	}
}

func normDim(op string, dim, rank int) int {
	if dim < 0 {
		dim += rank
	}
	if dim < 0 || dim >= rank {
		panic(fmt.Sprintf("%s: dim %d out of range for rank %d", op, dim, rank))
	}
	return dim
}
