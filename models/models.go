// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package models builds transfer-learning image classifiers: a pretrained
// backbone from the zoo with a new softmax head on top.
//
// # Basic Usage
//
//	cfg := models.DefaultConfig()
//	cfg.Trainable = false
//
//	backend := autodiff.New(cpu.New())
//	m, err := models.Build(ctx, backend, cfg, 5, models.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	probs := m.Forward(images) // [N, 224, 224, 3] -> [N, 5]
//
// # Configuration
//
// Configs load from YAML or HCL files, chosen by extension, and VISION_*
// environment variables override file values:
//
//	cfg, err := models.LoadConfig("densenet.hcl")
package models

import (
	"context"

	"github.com/born-ml/vision/internal/autodiff"
	"github.com/born-ml/vision/internal/backend/cpu"
	"github.com/born-ml/vision/internal/config"
	"github.com/born-ml/vision/internal/hostmem"
	"github.com/born-ml/vision/internal/model"
	"github.com/born-ml/vision/internal/optim"
	"github.com/born-ml/vision/internal/zoo"
	"github.com/born-ml/vision/tensor"
)

// Errors.
var (
	ErrInvalidNumClasses = model.ErrInvalidNumClasses
	ErrShapeMismatch     = model.ErrShapeMismatch
	ErrInvalidConfig     = config.ErrInvalidConfig
	ErrUnknownBackbone   = zoo.ErrUnknownBackbone
	ErrWeightsNotFound   = zoo.ErrWeightsNotFound
	ErrInputTooSmall     = zoo.ErrInputTooSmall
)

// Config describes the model to build.
type Config = config.Config

// Wiring selects whether the backbone receives augmented or raw input.
type Wiring = config.Wiring

// Wiring modes.
const (
	WiringAugmented = config.WiringAugmented
	WiringBypass    = config.WiringBypass
)

// DefaultConfig returns a 224x224 RGB DenseNet-121 with frozen imagenet weights.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads a .yaml, .yml or .hcl file. An empty path yields the
// defaults. Environment overrides apply in both cases.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Builder assembles models from one configuration.
type Builder[B tensor.Backend] = model.Builder[B]

// Model is an assembled classifier.
type Model[B tensor.Backend] = model.Model[B]

// Summary describes a model's stages and parameter counts.
type Summary = model.Summary

// Option configures a Builder.
type Option = model.Option

// Builder options.
var (
	WithLogger     = model.WithLogger
	WithHTTPClient = model.WithHTTPClient
)

// WithoutMemoryCheck skips the host memory estimate made before loading a
// backbone.
func WithoutMemoryCheck() Option { return model.WithMemoryProbe(nil) }

// MemoryReport is a snapshot of host memory.
type MemoryReport = hostmem.Report

// WithMemoryProbe replaces the host memory reader.
func WithMemoryProbe(probe func(context.Context) (MemoryReport, error)) Option {
	return model.WithMemoryProbe(probe)
}

// NewBuilder returns a builder for cfg on backend.
func NewBuilder[B tensor.Backend](backend B, cfg Config, opts ...Option) *Builder[B] {
	return model.NewBuilder(backend, cfg, opts...)
}

// Build validates cfg and assembles a numClasses-way classifier.
func Build[B tensor.Backend](ctx context.Context, backend B, cfg Config, numClasses int, opts ...Option) (*Model[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return model.NewBuilder(backend, cfg, opts...).Build(ctx, numClasses)
}

// BuildDenseNet121 assembles a DenseNet-121 classifier for (h, w, d) input.
// The backbone starts from imagenet weights and is frozen unless trainable.
func BuildDenseNet121[B tensor.Backend](ctx context.Context, backend B, h, w, d, numClasses int, trainable bool, opts ...Option) (*Model[B], error) {
	cfg := config.Default()
	cfg.ImgHeight, cfg.ImgWidth, cfg.Depth = h, w, d
	cfg.Backbone = zoo.DenseNet121.Name
	cfg.Trainable = trainable
	return Build(ctx, backend, cfg, numClasses, opts...)
}

// Backbones lists the backbones Build understands.
func Backbones() []string {
	return zoo.NewDefaultRegistry[*cpu.CPUBackend]().Names()
}

// TrainStep runs one optimisation step and returns the loss before the update.
func TrainStep[B tensor.Backend](
	m *Model[*autodiff.AutodiffBackend[B]],
	opt optim.Optimizer,
	images *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]],
	labels []int,
) (float32, error) {
	return model.TrainStep(m, opt, images, labels)
}
