// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers image classifiers are assembled from.
//
// # Overview
//
// This package contains:
//   - Layers: Conv2D, BatchNorm2D, Linear, Dropout
//   - Pooling: MaxPool2D, AvgPool2D, GlobalAvgPool2D
//   - Activations: ReLU, Softmax
//   - Utilities: Sequential, Module interface, Parameter
//   - Training: CategoricalCrossEntropy, OneHot, Accuracy
//
// Layers are named and export their state under Keras variable names such as
// "conv1/conv/kernel", so weights can move between the two without renaming.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/vision/backend/cpu"
//	    "github.com/born-ml/vision/nn"
//	    "golang.org/x/exp/rand"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    head := nn.NewSequential("head",
//	        nn.NewGlobalAvgPool2D[*cpu.Backend](),
//	        nn.NewLinear("predictions", 1024, 5, rand.NewSource(1), backend),
//	        nn.NewSoftmax[*cpu.Backend](),
//	    )
//	}
//
// # Freezing
//
// Parameters carry a trainable flag. Frozen parameters are skipped by
// optimizers and do not enter the gradient tape, and a BatchNorm2D whose gamma
// is frozen normalizes with its moving statistics even while training.
package nn
