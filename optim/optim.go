// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers used to train classification heads
// and fine-tune backbones.
//
//	opt := optim.NewAdam(m.TrainableParameters(), optim.AdamConfig{LR: 1e-3})
//	loss, err := models.TrainStep(m, opt, images, labels)
package optim

import (
	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/optim"
	"github.com/born-ml/vision/internal/tensor"
)

// Optimizer updates parameters from a gradient map.
type Optimizer = optim.Optimizer

// Config selects an optimizer by name.
type Config = optim.Config

// SGD is stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig configures SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer over params.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	return optim.NewSGD(params, config)
}

// Adam is the Adam optimizer with bias correction.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig configures Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer over params.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	return optim.NewAdam(params, config)
}

// New creates the optimizer named by cfg.Name ("adam" or "sgd").
func New[B tensor.Backend](params []*nn.Parameter[B], cfg Config) (Optimizer, error) {
	return optim.New(params, cfg)
}
