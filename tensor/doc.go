// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the tensor types the vision models compute with.
//
// # Overview
//
// Tensors are generic over their element type and their backend:
//   - Tensor[T, B]: row-major, contiguous, float32 or int32 elements
//   - RawTensor: the untyped storage every backend operates on
//   - Backend: the operations a compute device provides
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/vision/backend/cpu"
//	    "github.com/born-ml/vision/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	    z := x.Add(y)
//	}
//
// # Layout
//
// Images are NHWC at the model boundary and NCHW inside networks, matching
// Keras inputs and the im2col convolution kernels respectively.
//
// # Broadcasting
//
// Element-wise operations follow NumPy broadcasting rules:
//
//	a := tensor.Zeros[float32](tensor.Shape{3, 1}, backend) // (3, 1)
//	b := tensor.Ones[float32](tensor.Shape{3, 4}, backend)  // (3, 4)
//	c := a.Add(b)                                           // (3, 4)
package tensor
