package nn

import (
	"fmt"

	"github.com/born-ml/vision/internal/tensor"
)

// Keras BatchNormalization defaults as used by the DenseNet family.
const (
	DefaultBatchNormEpsilon  = 1.001e-5
	DefaultBatchNormMomentum = 0.99
)

// BatchNorm2D normalizes each channel of an NCHW batch.
//
// In training mode it uses batch statistics and folds them into the moving
// averages; in inference mode it uses the moving averages. A frozen layer
// always runs in inference mode, as Keras does for non-trainable batch norm.
//
// State keys: "<name>/gamma", "<name>/beta", "<name>/moving_mean", "<name>/moving_variance".
type BatchNorm2D[B tensor.Backend] struct {
	name     string
	channels int
	eps      float32
	momentum float32
	training bool

	gamma, beta           *Parameter[B]
	movingMean, movingVar *tensor.Tensor[float32, B]
}

// NewBatchNorm2D creates a batch norm layer with gamma=1, beta=0, mean=0, variance=1.
func NewBatchNorm2D[B tensor.Backend](name string, channels int, eps, momentum float32, backend B) *BatchNorm2D[B] {
	if channels <= 0 {
		panic(fmt.Sprintf("batchnorm %s: invalid channel count %d", name, channels))
	}
	shape := tensor.Shape{channels}
	return &BatchNorm2D[B]{
		name:       name,
		channels:   channels,
		eps:        eps,
		momentum:   momentum,
		gamma:      NewParameter(Key(name, "gamma"), Ones(shape, backend)),
		beta:       NewParameter(Key(name, "beta"), Zeros(shape, backend)),
		movingMean: Zeros(shape, backend),
		movingVar:  Ones(shape, backend),
	}
}

// Forward normalizes input [N, C, H, W].
func (bn *BatchNorm2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s := input.Shape()
	if len(s) != 4 || s[1] != bn.channels {
		panic(fmt.Sprintf("batchnorm %s: expected [N, %d, H, W], got %v", bn.name, bn.channels, s))
	}
	backend := input.Backend()
	g, b := bn.gamma.Tensor().Raw(), bn.beta.Tensor().Raw()

	if !bn.usesBatchStats() {
		out := backend.BatchNorm2D(input.Raw(), g, b, bn.movingMean.Raw(), bn.movingVar.Raw(), bn.eps)
		return tensor.New[float32](out, backend)
	}

	out, mean, variance := backend.BatchNorm2DTraining(input.Raw(), g, b, bn.eps)
	bn.updateMoving(bn.movingMean.Data(), mean.AsFloat32())
	bn.updateMoving(bn.movingVar.Data(), variance.AsFloat32())
	return tensor.New[float32](out, backend)
}

func (bn *BatchNorm2D[B]) usesBatchStats() bool {
	return bn.training && bn.gamma.Trainable()
}

func (bn *BatchNorm2D[B]) updateMoving(moving, batch []float32) {
	for i := range moving {
		moving[i] = moving[i]*bn.momentum + batch[i]*(1-bn.momentum)
	}
}

// Train switches between batch and moving statistics.
func (bn *BatchNorm2D[B]) Train(training bool) { bn.training = training }

// Parameters returns gamma and beta. Moving statistics are state, not parameters.
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.gamma, bn.beta}
}

// Name returns the layer name.
func (bn *BatchNorm2D[B]) Name() string { return bn.name }

// MovingMean returns the running mean.
func (bn *BatchNorm2D[B]) MovingMean() *tensor.Tensor[float32, B] { return bn.movingMean }

// MovingVariance returns the running variance.
func (bn *BatchNorm2D[B]) MovingVariance() *tensor.Tensor[float32, B] { return bn.movingVar }

// StateDict exports parameters and moving statistics.
func (bn *BatchNorm2D[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		bn.gamma.Name():                 bn.gamma.Tensor().Raw().Clone(),
		bn.beta.Name():                  bn.beta.Tensor().Raw().Clone(),
		Key(bn.name, "moving_mean"):     bn.movingMean.Raw().Clone(),
		Key(bn.name, "moving_variance"): bn.movingVar.Raw().Clone(),
	}
}

// LoadStateDict imports parameters and moving statistics.
func (bn *BatchNorm2D[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	targets := []struct {
		key string
		dst *tensor.RawTensor
	}{
		{bn.gamma.Name(), bn.gamma.Tensor().Raw()},
		{bn.beta.Name(), bn.beta.Tensor().Raw()},
		{Key(bn.name, "moving_mean"), bn.movingMean.Raw()},
		{Key(bn.name, "moving_variance"), bn.movingVar.Raw()},
	}
	for _, t := range targets {
		if err := copyState(state, t.key, t.dst); err != nil {
			return fmt.Errorf("batchnorm %s: %w", bn.name, err)
		}
	}
	return nil
}
