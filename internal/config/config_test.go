package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vision/internal/augment"
	"github.com/born-ml/vision/internal/tensor"
)

// clearEnv isolates a test from VISION_* variables set by the caller.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{EnvImgHeight, EnvImgWidth, EnvDepth, EnvWeights, EnvTrainable, EnvBackbone, EnvWeightsDir} {
		t.Setenv(env, "")
	}
	t.Setenv(HomeEnv, "/var/cache/vision")
}

func TestDefault(t *testing.T) {
	clearEnv(t)
	cfg := Default()

	assert.Equal(t, tensor.Shape{224, 224, 3}, cfg.InputShape())
	assert.Equal(t, WeightsImageNet, cfg.Weights)
	assert.False(t, cfg.Trainable)
	assert.Equal(t, "densenet121", cfg.Backbone)
	assert.InDelta(t, 0.2, cfg.DropoutRate, 1e-12)
	assert.Equal(t, WiringAugmented, cfg.Wiring)
	assert.Equal(t, "/var/cache/vision", cfg.WeightsDir)
	assert.Equal(t, augment.DefaultConfig(), cfg.Augmentation)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero height", func(c *Config) { c.ImgHeight = 0 }},
		{"negative depth", func(c *Config) { c.Depth = -3 }},
		{"empty backbone", func(c *Config) { c.Backbone = "" }},
		{"unknown wiring", func(c *Config) { c.Wiring = "sideways" }},
		{"dropout one", func(c *Config) { c.DropoutRate = 1 }},
		{"rotation out of range", func(c *Config) { c.Augmentation.Rotation = 1.5 }},
		{"unknown flip", func(c *Config) { c.Augmentation.Flip = "diagonal" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestParseYAML(t *testing.T) {
	clearEnv(t)
	cfg, err := ParseYAML([]byte(`
img_height: 128
img_width: 96
weights: none
trainable: true
wiring: bypass
augmentation:
  rotation: 0.2
  fill_mode: nearest
`))
	require.NoError(t, err)

	want := Default()
	want.ImgHeight, want.ImgWidth = 128, 96
	want.Weights = WeightsNone
	want.Trainable = true
	want.Wiring = WiringBypass
	want.Augmentation.Rotation = 0.2
	want.Augmentation.FillMode = augment.FillNearest
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseYAML_Errors(t *testing.T) {
	clearEnv(t)
	_, err := ParseYAML([]byte("img_hieght: 128\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseYAML([]byte("img_height: -1\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseHCL(t *testing.T) {
	clearEnv(t)
	cfg, err := ParseHCL([]byte(`
img_height = 64
img_width  = 64
depth      = 1
weights    = "none"
backbone   = "densenet169"
dropout    = 0.5
seed       = 42

augmentation {
  flip = "horizontal_and_vertical"
  zoom = 0.25
}
`), "model.hcl")
	require.NoError(t, err)

	want := Default()
	want.ImgHeight, want.ImgWidth, want.Depth = 64, 64, 1
	want.Weights = WeightsNone
	want.Backbone = "densenet169"
	want.DropoutRate = 0.5
	want.Seed = 42
	want.Augmentation.Flip = augment.FlipHorizontalVertical
	want.Augmentation.Zoom = 0.25
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHCL_Errors(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"syntax":          `img_height = `,
		"unknown field":   `colour = "red"`,
		"wrong type":      `img_height = "tall"`,
		"duplicate block": "augmentation {}\naugmentation {}",
		"invalid value":   `wiring = "sideways"`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHCL([]byte(src), "bad.hcl")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvImgHeight, "160")
	t.Setenv(EnvTrainable, "true")
	t.Setenv(EnvBackbone, "densenet201")
	t.Setenv(EnvWeights, "/tmp/w.safetensors")
	t.Setenv(EnvWeightsDir, "/data/weights")

	cfg, err := ParseYAML([]byte("img_height: 128\n"))
	require.NoError(t, err)
	assert.Equal(t, 160, cfg.ImgHeight)
	assert.True(t, cfg.Trainable)
	assert.Equal(t, "densenet201", cfg.Backbone)
	assert.Equal(t, "/tmp/w.safetensors", cfg.Weights)
	assert.Equal(t, "/data/weights", cfg.WeightsDir)

	t.Setenv(EnvDepth, "three")
	_, err = ParseYAML(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	yml := filepath.Join(dir, "model.yaml")
	saved := Default()
	saved.ImgHeight = 100
	saved.Seed = 7
	require.NoError(t, saved.Save(yml))
	cfg, err = Load(yml)
	require.NoError(t, err)
	assert.Equal(t, saved, cfg)

	hclPath := filepath.Join(dir, "model.hcl")
	require.NoError(t, os.WriteFile(hclPath, []byte("img_width = 48\n"), 0o600))
	cfg, err = Load(hclPath)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.ImgWidth)

	_, err = Load(filepath.Join(dir, "model.toml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
