package zoo

import (
	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/tensor"
)

// convBlock is BN-ReLU-Conv1x1-BN-ReLU-Conv3x3 whose output is concatenated
// onto its input along the channel axis.
type convBlock[B tensor.Backend] struct {
	*nn.Sequential[B]
}

func newConvBlock[B tensor.Backend](name string, in int, src rand.Source, backend B) *convBlock[B] {
	eps, momentum := float32(nn.DefaultBatchNormEpsilon), float32(nn.DefaultBatchNormMomentum)
	return &convBlock[B]{nn.NewSequential[B](name,
		nn.NewBatchNorm2D(name+"_0_bn", in, eps, momentum, backend),
		nn.NewReLU[B](),
		nn.NewConv2D(name+"_1_conv", nn.Conv2DConfig{
			InChannels: in, OutChannels: denseBottleneck, KernelSize: 1,
		}, src, backend),
		nn.NewBatchNorm2D(name+"_1_bn", denseBottleneck, eps, momentum, backend),
		nn.NewReLU[B](),
		nn.NewConv2D(name+"_2_conv", nn.Conv2DConfig{
			InChannels: denseBottleneck, OutChannels: denseGrowthRate, KernelSize: 3, Padding: 1,
		}, src, backend),
	)}
}

func (b *convBlock[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.Cat([]*tensor.Tensor[float32, B]{input, b.Sequential.Forward(input)}, 1)
}

// NumLayers counts the concatenation as a layer.
func (b *convBlock[B]) NumLayers() int { return b.Sequential.NumLayers() + 1 }

// transition halves the channel count with a 1x1 conv and the resolution with 2x2 average pooling.
type transition[B tensor.Backend] struct {
	*nn.Sequential[B]
	pool *nn.AvgPool2D[B]
}

func newTransition[B tensor.Backend](name string, in, out int, src rand.Source, backend B) *transition[B] {
	pool := nn.NewAvgPool2D[B](2, 2)
	return &transition[B]{
		Sequential: nn.NewSequential[B](name,
			nn.NewBatchNorm2D(name+"_bn", in, float32(nn.DefaultBatchNormEpsilon), float32(nn.DefaultBatchNormMomentum), backend),
			nn.NewReLU[B](),
			nn.NewConv2D(name+"_conv", nn.Conv2DConfig{InChannels: in, OutChannels: out, KernelSize: 1}, src, backend),
			pool,
		),
		pool: pool,
	}
}

// layerCount wraps a module that Keras builds from several layers, such as
// zero padding followed by a convolution or pooling.
type layerCount[B tensor.Backend] struct {
	nn.Module[B]
	n int
}

func newLayerCount[B tensor.Backend](m nn.Module[B], n int) *layerCount[B] {
	return &layerCount[B]{Module: m, n: n}
}

func (l *layerCount[B]) NumLayers() int { return l.n }

func (l *layerCount[B]) Train(training bool) { nn.SetTraining(l.Module, training) }

func (l *layerCount[B]) StateDict() map[string]*tensor.RawTensor { return nn.StateDictOf(l.Module) }

func (l *layerCount[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	return nn.LoadStateDictInto(l.Module, state)
}
