// Package config holds the model configuration and its YAML and HCL loaders.
//
// A Config is a value: loaders return a fresh copy, and consumers read it
// without mutating it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/born-ml/vision/internal/augment"
	"github.com/born-ml/vision/internal/tensor"
)

// ErrInvalidConfig is returned by Validate and the loaders.
var ErrInvalidConfig = errors.New("invalid config")

// Wiring selects what the backbone receives.
type Wiring string

// Wiring modes.
const (
	// WiringAugmented feeds input through the augmentation stage into the backbone.
	WiringAugmented Wiring = "augmented"
	// WiringBypass feeds raw input straight into the backbone. The augmentation
	// stage is still built and reachable, but off the forward path.
	WiringBypass Wiring = "bypass"
)

// Weight identifiers understood by the backbone zoo. Anything else is a file path.
const (
	WeightsImageNet = "imagenet"
	WeightsNone     = "none"
)

// HomeEnv overrides the default weights cache directory.
const HomeEnv = "BORN_VISION_HOME"

// Config describes the model to build.
type Config struct {
	ImgHeight     int            `yaml:"img_height" hcl:"img_height,optional"`
	ImgWidth      int            `yaml:"img_width" hcl:"img_width,optional"`
	Depth         int            `yaml:"depth" hcl:"depth,optional"`
	Weights       string         `yaml:"weights" hcl:"weights,optional"`
	WeightsSHA256 string         `yaml:"weights_sha256,omitempty" hcl:"weights_sha256,optional"`
	Trainable     bool           `yaml:"trainable" hcl:"trainable,optional"`
	Backbone      string         `yaml:"backbone" hcl:"backbone,optional"`
	DropoutRate   float64        `yaml:"dropout" hcl:"dropout,optional"`
	Augmentation  augment.Config `yaml:"augmentation"`
	Wiring        Wiring         `yaml:"wiring" hcl:"wiring,optional"`
	WeightsDir    string         `yaml:"weights_dir" hcl:"weights_dir,optional"`
	WeightsURL    string         `yaml:"weights_url,omitempty" hcl:"weights_url,optional"`
	Seed          uint64         `yaml:"seed,omitempty" hcl:"seed,optional"`
	LogLevel      string         `yaml:"log_level" hcl:"log_level,optional"`
}

// Default returns a 224x224 RGB DenseNet-121 with frozen imagenet weights.
func Default() Config {
	return Config{
		ImgHeight:    224,
		ImgWidth:     224,
		Depth:        3,
		Weights:      WeightsImageNet,
		Trainable:    false,
		Backbone:     "densenet121",
		DropoutRate:  0.2,
		Augmentation: augment.DefaultConfig(),
		Wiring:       WiringAugmented,
		WeightsDir:   DefaultWeightsDir(),
		LogLevel:     "info",
	}
}

// DefaultWeightsDir returns $BORN_VISION_HOME, or ~/.born/vision.
func DefaultWeightsDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".born", "vision")
	}
	return filepath.Join(home, ".born", "vision")
}

// InputShape returns (H, W, D).
func (c Config) InputShape() tensor.Shape {
	return tensor.Shape{c.ImgHeight, c.ImgWidth, c.Depth}
}

// Validate checks dimensions, wiring, dropout and augmentation ranges.
func (c Config) Validate() error {
	if c.ImgHeight <= 0 || c.ImgWidth <= 0 || c.Depth <= 0 {
		return fmt.Errorf("input shape (%d, %d, %d) must be positive: %w",
			c.ImgHeight, c.ImgWidth, c.Depth, ErrInvalidConfig)
	}
	if c.Backbone == "" {
		return fmt.Errorf("backbone is empty: %w", ErrInvalidConfig)
	}
	switch c.Wiring {
	case WiringAugmented, WiringBypass:
	default:
		return fmt.Errorf("wiring %q (want %q or %q): %w", c.Wiring, WiringAugmented, WiringBypass, ErrInvalidConfig)
	}
	if c.DropoutRate < 0 || c.DropoutRate >= 1 {
		return fmt.Errorf("dropout %v not in [0, 1): %w", c.DropoutRate, ErrInvalidConfig)
	}
	if err := c.Augmentation.Validate(); err != nil {
		return fmt.Errorf("augmentation: %w: %w", ErrInvalidConfig, err)
	}
	return nil
}
