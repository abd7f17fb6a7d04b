// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/tensor"
)

// DType is the element type constraint: float32 or int32.
type DType = tensor.DType

// DataType identifies the element type at runtime.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int32   DataType = tensor.Int32
)

// Device identifies where tensor memory lives.
type Device = tensor.Device

// CPU is the host device.
const CPU Device = tensor.CPU

// Shape lists tensor dimensions, outermost first.
type Shape = tensor.Shape

// RawTensor is the untyped storage backends operate on.
type RawTensor = tensor.RawTensor

// Backend is the set of operations a compute device provides.
type Backend = tensor.Backend

// Tensor is a type-safe tensor of T elements computed on B.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := x.AddScalar(1).MulScalar(2)
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// FromSlice copies data into a new tensor of the given shape.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// Zeros returns a zero-filled tensor.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, b)
}

// Ones returns a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T](shape, b)
}

// Uniform samples a float32 tensor uniformly from [lo, hi).
func Uniform[B Backend](shape Shape, lo, hi float64, src rand.Source, b B) *Tensor[float32, B] {
	return tensor.Uniform(shape, lo, hi, src, b)
}

// Full returns a tensor filled with v.
func Full[T DType, B Backend](shape Shape, v T, b B) *Tensor[T, B] {
	return tensor.Full(shape, v, b)
}

// Normal samples a float32 tensor from N(mean, std²).
func Normal[B Backend](shape Shape, mean, std float64, src rand.Source, b B) *Tensor[float32, B] {
	return tensor.Normal(shape, mean, std, src, b)
}

// Cat concatenates tensors along dim.
func Cat[T DType, B Backend](ts []*Tensor[T, B], dim int) *Tensor[T, B] {
	return tensor.Cat(ts, dim)
}
