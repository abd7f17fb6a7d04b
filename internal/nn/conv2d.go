package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/tensor"
)

// Conv2DConfig describes a square-kernel convolution.
type Conv2DConfig struct {
	InChannels  int
	OutChannels int
	KernelSize  int
	Stride      int
	Padding     int  // zero padding on every side
	UseBias     bool // DenseNet convolutions have none
}

// Conv2D is a 2D convolution over NCHW input.
//
// The kernel is held as [out, in, k, k] and exported in Keras [k, k, in, out]
// layout under "<name>/kernel"; the bias, if any, under "<name>/bias".
type Conv2D[B tensor.Backend] struct {
	name    string
	cfg     Conv2DConfig
	weight  *Parameter[B]
	bias    *Parameter[B]
	backend B
}

// NewConv2D creates a convolution with Glorot-uniform kernel and zero bias.
func NewConv2D[B tensor.Backend](name string, cfg Conv2DConfig, src rand.Source, backend B) *Conv2D[B] {
	if cfg.InChannels <= 0 || cfg.OutChannels <= 0 || cfg.KernelSize <= 0 {
		panic(fmt.Sprintf("conv2d %s: invalid config %+v", name, cfg))
	}
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	k := cfg.KernelSize
	shape := tensor.Shape{cfg.OutChannels, cfg.InChannels, k, k}
	c := &Conv2D[B]{
		name:    name,
		cfg:     cfg,
		weight:  NewParameter(Key(name, "kernel"), GlorotUniform(k*k*cfg.InChannels, k*k*cfg.OutChannels, shape, src, backend)),
		backend: backend,
	}
	if cfg.UseBias {
		c.bias = NewParameter(Key(name, "bias"), Zeros(tensor.Shape{cfg.OutChannels}, backend))
	}
	return c
}

// Forward convolves input [N, in, H, W] to [N, out, H', W'].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s := input.Shape()
	if len(s) != 4 || s[1] != c.cfg.InChannels {
		panic(fmt.Sprintf("conv2d %s: expected [N, %d, H, W], got %v", c.name, c.cfg.InChannels, s))
	}
	out := input.Conv2D(c.weight.Tensor(), c.cfg.Stride, c.cfg.Padding)
	if c.bias != nil {
		out = out.Add(c.bias.Tensor().Reshape(1, c.cfg.OutChannels, 1, 1))
	}
	return out
}

// Parameters returns the kernel and, if present, the bias.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.bias != nil {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// Name returns the layer name.
func (c *Conv2D[B]) Name() string { return c.name }

// Config returns the layer configuration.
func (c *Conv2D[B]) Config() Conv2DConfig { return c.cfg }

// Weight returns the kernel parameter in [out, in, k, k] layout.
func (c *Conv2D[B]) Weight() *Parameter[B] { return c.weight }

// OutputShape returns the spatial size produced for an h×w input.
func (c *Conv2D[B]) OutputShape(h, w int) (int, int) {
	k, s, p := c.cfg.KernelSize, c.cfg.Stride, c.cfg.Padding
	return (h+2*p-k)/s + 1, (w+2*p-k)/s + 1
}

// StateDict exports the kernel as [k, k, in, out].
func (c *Conv2D[B]) StateDict() map[string]*tensor.RawTensor {
	state := map[string]*tensor.RawTensor{
		c.weight.Name(): c.backend.Transpose(c.weight.Tensor().Detach().Raw(), 2, 3, 1, 0),
	}
	if c.bias != nil {
		state[c.bias.Name()] = c.bias.Tensor().Raw().Clone()
	}
	return state
}

// LoadStateDict imports a [k, k, in, out] kernel.
func (c *Conv2D[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if err := copyStateTransposed(c.backend, state, c.weight.Name(), c.weight.Tensor().Raw(), 3, 2, 0, 1); err != nil {
		return fmt.Errorf("conv2d %s: %w", c.name, err)
	}
	if c.bias != nil {
		if err := copyState(state, c.bias.Name(), c.bias.Tensor().Raw()); err != nil {
			return fmt.Errorf("conv2d %s: %w", c.name, err)
		}
	}
	return nil
}
