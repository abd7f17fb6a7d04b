package augment

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Flip modes accepted by Config.Flip.
const (
	FlipHorizontal         = "horizontal"
	FlipVertical           = "vertical"
	FlipHorizontalVertical = "horizontal_and_vertical"
	FlipNone               = "none"
)

// Config describes the preprocessing stage.
type Config struct {
	Flip          string        `yaml:"flip" hcl:"flip,optional"`
	Rotation      float64       `yaml:"rotation" hcl:"rotation,optional"`
	Zoom          float64       `yaml:"zoom" hcl:"zoom,optional"`
	Scale         float64       `yaml:"scale" hcl:"scale,optional"`
	Offset        float64       `yaml:"offset" hcl:"offset,optional"`
	FillMode      FillMode      `yaml:"fill_mode" hcl:"fill_mode,optional"`
	Interpolation Interpolation `yaml:"interpolation" hcl:"interpolation,optional"`
}

// DefaultConfig returns horizontal flips, ±10% rotation, ±10% zoom and
// rescaling of [0, 255] pixels to [-1, 1].
func DefaultConfig() Config {
	return Config{
		Flip:          FlipHorizontal,
		Rotation:      0.1,
		Zoom:          0.1,
		Scale:         1.0 / 127.5,
		Offset:        -1,
		FillMode:      FillReflect,
		Interpolation: Bilinear,
	}
}

// Validate checks option ranges.
func (c Config) Validate() error {
	switch c.Flip {
	case FlipHorizontal, FlipVertical, FlipHorizontalVertical, FlipNone, "":
	default:
		return fmt.Errorf("flip %q: %w", c.Flip, ErrInvalidOption)
	}
	if c.Rotation < 0 || c.Rotation >= 1 {
		return fmt.Errorf("rotation %v not in [0, 1): %w", c.Rotation, ErrInvalidOption)
	}
	if c.Zoom < 0 || c.Zoom >= 1 {
		return fmt.Errorf("zoom %v not in [0, 1): %w", c.Zoom, ErrInvalidOption)
	}
	if c.Scale == 0 {
		return fmt.Errorf("scale must be non-zero: %w", ErrInvalidOption)
	}
	if err := c.FillMode.validate(); err != nil {
		return err
	}
	return c.Interpolation.validate()
}

// NewPipeline builds flip, rotation, zoom and rescaling layers from c.
// Layers with a zero factor or flip "none" are omitted; rescaling is always present.
func NewPipeline(c Config, seed uint64) (*Pipeline, error) {
	if c.FillMode == "" {
		c.FillMode = FillReflect
	}
	if c.Interpolation == "" {
		c.Interpolation = Bilinear
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	var layers []Layer
	if c.Flip != FlipNone && c.Flip != "" {
		layers = append(layers, NewRandomFlip(c.Flip, rng))
	}
	if c.Rotation > 0 {
		layers = append(layers, NewRandomRotation(c.Rotation, c.FillMode, c.Interpolation, rng))
	}
	if c.Zoom > 0 {
		layers = append(layers, NewRandomZoom(c.Zoom, c.FillMode, c.Interpolation, rng))
	}
	layers = append(layers, NewRescaling(float32(c.Scale), float32(c.Offset)))
	return newPipeline(layers...), nil
}
