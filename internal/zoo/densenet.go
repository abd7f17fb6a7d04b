package zoo

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/tensor"
)

// DenseNet hyperparameters shared by every variant.
const (
	denseGrowthRate  = 32
	denseBottleneck  = 4 * denseGrowthRate
	denseCompression = 0.5
	denseStemWidth   = 64
	denseMinInput    = 32
)

// DenseNetConfig selects a DenseNet variant.
type DenseNetConfig struct {
	Name   string
	Blocks [4]int // conv blocks per dense block
}

// Known DenseNet variants.
var (
	DenseNet121 = DenseNetConfig{Name: "densenet121", Blocks: [4]int{6, 12, 24, 16}}
	DenseNet169 = DenseNetConfig{Name: "densenet169", Blocks: [4]int{6, 12, 32, 32}}
	DenseNet201 = DenseNetConfig{Name: "densenet201", Blocks: [4]int{6, 12, 48, 32}}
)

// Footprint returns the parameter and batch norm moving-statistics counts of
// the variant for depth input channels, without building it.
func (c DenseNetConfig) Footprint(depth int) (params, state int) {
	bn := func(ch int) {
		params += 2 * ch
		state += 2 * ch
	}
	params += 7 * 7 * depth * denseStemWidth
	bn(denseStemWidth)
	ch := denseStemWidth
	for i, n := range c.Blocks {
		for range n {
			bn(ch)
			params += ch * denseBottleneck
			bn(denseBottleneck)
			params += 3 * 3 * denseBottleneck * denseGrowthRate
			ch += denseGrowthRate
		}
		if i == len(c.Blocks)-1 {
			break
		}
		out := int(float64(ch) * denseCompression)
		bn(ch)
		params += ch * out
		ch = out
	}
	bn(ch)
	return params, state
}

// DenseNet is a headless densely connected network.
//
// Layer names match Keras applications so that converted checkpoints load
// directly: "conv1/conv", "conv1/bn", "conv2_block1_0_bn", "pool2_conv", "bn".
type DenseNet[B tensor.Backend] struct {
	cfg        DenseNetConfig
	inputShape tensor.Shape
	features   *nn.Sequential[B]
	stages     []Stage
	channels   int
	trainable  bool
}

// NewDenseNet builds a randomly initialised DenseNet for (H, W, D) inputs.
func NewDenseNet[B tensor.Backend](cfg DenseNetConfig, inputShape tensor.Shape, src rand.Source, backend B) (*DenseNet[B], error) {
	if len(inputShape) != 3 || inputShape.Validate() != nil {
		return nil, fmt.Errorf("%s: %v: %w", cfg.Name, inputShape, ErrInvalidInputShape)
	}
	h, w, d := inputShape[0], inputShape[1], inputShape[2]
	if h < denseMinInput || w < denseMinInput {
		return nil, fmt.Errorf("%s: %dx%d, minimum %dx%d: %w", cfg.Name, h, w, denseMinInput, denseMinInput, ErrInputTooSmall)
	}

	net := &DenseNet[B]{cfg: cfg, inputShape: inputShape.Clone(), trainable: true}
	eps, momentum := float32(nn.DefaultBatchNormEpsilon), float32(nn.DefaultBatchNormMomentum)

	conv := nn.NewConv2D("conv1/conv", nn.Conv2DConfig{
		InChannels: d, OutChannels: denseStemWidth, KernelSize: 7, Stride: 2, Padding: 3,
	}, src, backend)
	h, w = conv.OutputShape(h, w)
	pool := nn.NewMaxPool2D[B](3, 2, 1)
	stem := nn.NewSequential[B]("conv1",
		newLayerCount[B](conv, 2),
		nn.NewBatchNorm2D("conv1/bn", denseStemWidth, eps, momentum, backend),
		nn.NewReLU[B](),
	)
	net.stages = append(net.stages, Stage{Name: "conv1", Shape: tensor.Shape{denseStemWidth, h, w}})
	h, w = pool.OutputShape(h, w)
	net.stages = append(net.stages, Stage{Name: "pool1", Shape: tensor.Shape{denseStemWidth, h, w}})

	features := nn.NewSequential[B](cfg.Name, stem, newLayerCount[B](pool, 2))
	c := denseStemWidth
	for i, n := range cfg.Blocks {
		blockName := fmt.Sprintf("conv%d", i+2)
		block := nn.NewSequential[B](blockName)
		for j := range n {
			block.Add(newConvBlock(fmt.Sprintf("%s_block%d", blockName, j+1), c, src, backend))
			c += denseGrowthRate
		}
		features.Add(block)
		net.stages = append(net.stages, Stage{Name: blockName, Shape: tensor.Shape{c, h, w}})

		if i == len(cfg.Blocks)-1 {
			break
		}
		poolName := fmt.Sprintf("pool%d", i+2)
		out := int(float64(c) * denseCompression)
		t := newTransition(poolName, c, out, src, backend)
		features.Add(t)
		c = out
		h, w = t.pool.OutputShape(h, w)
		net.stages = append(net.stages, Stage{Name: poolName, Shape: tensor.Shape{c, h, w}})
	}

	features.Add(nn.NewBatchNorm2D("bn", c, eps, momentum, backend))
	features.Add(nn.NewReLU[B]())
	net.stages = append(net.stages, Stage{Name: "relu", Shape: tensor.Shape{c, h, w}})

	net.features = features
	net.channels = c
	return net, nil
}

// Forward maps [N, D, H, W] to [N, C, h, w].
func (d *DenseNet[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s := input.Shape()
	if len(s) != 4 || s[1] != d.inputShape[2] || s[2] != d.inputShape[0] || s[3] != d.inputShape[1] {
		panic(fmt.Sprintf("%s: expected [N, %d, %d, %d], got %v",
			d.cfg.Name, d.inputShape[2], d.inputShape[0], d.inputShape[1], s))
	}
	return d.features.Forward(input)
}

// Parameters returns every learnable tensor in layer order.
func (d *DenseNet[B]) Parameters() []*nn.Parameter[B] { return d.features.Parameters() }

// Name returns the variant name.
func (d *DenseNet[B]) Name() string { return d.cfg.Name }

// Config returns the variant.
func (d *DenseNet[B]) Config() DenseNetConfig { return d.cfg }

// InputShape returns (H, W, D).
func (d *DenseNet[B]) InputShape() tensor.Shape { return d.inputShape.Clone() }

// OutputChannels returns the feature map width.
func (d *DenseNet[B]) OutputChannels() int { return d.channels }

// SetTrainable freezes or unfreezes the whole network.
func (d *DenseNet[B]) SetTrainable(trainable bool) {
	nn.SetTrainable(d.Parameters(), trainable)
	d.trainable = trainable
}

// Trainable reports the last SetTrainable value.
func (d *DenseNet[B]) Trainable() bool { return d.trainable }

// Train switches batch norm mode.
func (d *DenseNet[B]) Train(training bool) { d.features.Train(training) }

// NumLayers counts layers the way Keras does, including the input layer.
func (d *DenseNet[B]) NumLayers() int { return 1 + d.features.NumLayers() }

// Stages lists stage outputs for a single image.
func (d *DenseNet[B]) Stages() []Stage {
	out := make([]Stage, len(d.stages))
	for i, s := range d.stages {
		out[i] = Stage{Name: s.Name, Shape: s.Shape.Clone()}
	}
	return out
}

// StateDict exports weights under Keras names.
func (d *DenseNet[B]) StateDict() map[string]*tensor.RawTensor { return d.features.StateDict() }

// LoadStateDict imports weights under Keras names.
func (d *DenseNet[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if err := d.features.LoadStateDict(state); err != nil {
		return fmt.Errorf("%s: %w", d.cfg.Name, err)
	}
	return nil
}
