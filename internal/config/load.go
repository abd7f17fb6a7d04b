package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/vision/internal/augment"
)

// Load reads path as YAML (.yaml, .yml) or HCL (.hcl), applies environment
// overrides and validates. An empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	if path == "" {
		return finish(Default())
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".hcl":
		return LoadHCL(path)
	default:
		return Config{}, fmt.Errorf("%s: unknown config format (want .yaml, .yml or .hcl): %w", path, ErrInvalidConfig)
	}
}

// LoadYAML reads a YAML config file.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes YAML on top of the defaults. Unknown keys are rejected.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing yaml config: %w: %w", ErrInvalidConfig, err)
	}
	return finish(cfg)
}

// hclDocument splits the augmentation block from the top-level attributes.
type hclDocument struct {
	Augmentation *augment.Config `hcl:"augmentation,block"`
	Remain       hcl.Body        `hcl:",remain"`
}

// LoadHCL reads an HCL config file.
func LoadHCL(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseHCL(data, path)
}

// ParseHCL decodes HCL on top of the defaults. filename is used in diagnostics.
func ParseHCL(data []byte, filename string) (Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("parsing hcl config %s: %w: %w", filename, ErrInvalidConfig, diags)
	}

	cfg := Default()
	doc := hclDocument{Augmentation: &cfg.Augmentation}
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return Config{}, fmt.Errorf("decoding hcl config %s: %w: %w", filename, ErrInvalidConfig, diags)
	}
	if diags := gohcl.DecodeBody(doc.Remain, nil, &cfg); diags.HasErrors() {
		return Config{}, fmt.Errorf("decoding hcl config %s: %w: %w", filename, ErrInvalidConfig, diags)
	}
	return finish(cfg)
}

// Save writes c as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func finish(cfg Config) (Config, error) {
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Environment variables read by applyEnvOverrides.
const (
	EnvImgHeight  = "VISION_IMG_HEIGHT"
	EnvImgWidth   = "VISION_IMG_WIDTH"
	EnvDepth      = "VISION_DEPTH"
	EnvWeights    = "VISION_WEIGHTS"
	EnvTrainable  = "VISION_TRAINABLE"
	EnvBackbone   = "VISION_BACKBONE"
	EnvWeightsDir = "VISION_WEIGHTS_DIR"
)

// applyEnvOverrides replaces fields whose VISION_* variable is set and non-empty.
func applyEnvOverrides(c *Config) error {
	for _, v := range []struct {
		env string
		dst *int
	}{
		{EnvImgHeight, &c.ImgHeight},
		{EnvImgWidth, &c.ImgWidth},
		{EnvDepth, &c.Depth},
	} {
		s := os.Getenv(v.env)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s=%q: %w: %w", v.env, s, ErrInvalidConfig, err)
		}
		*v.dst = n
	}

	if s := os.Getenv(EnvTrainable); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%s=%q: %w: %w", EnvTrainable, s, ErrInvalidConfig, err)
		}
		c.Trainable = b
	}
	if s := os.Getenv(EnvWeights); s != "" {
		c.Weights = s
	}
	if s := os.Getenv(EnvBackbone); s != "" {
		c.Backbone = s
	}
	if s := os.Getenv(EnvWeightsDir); s != "" {
		c.WeightsDir = s
	}
	return nil
}
