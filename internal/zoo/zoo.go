// Package zoo provides pretrained convolutional backbones by name.
//
// A backbone is the feature extractor of a classification network with its
// classification top removed. Backbones are created through a Registry, which
// also resolves and loads their weights:
//
//	reg := zoo.NewDefaultRegistry[Backend]()
//	bb, err := reg.Load(ctx, "densenet121", zoo.LoadOptions{
//	    InputShape: tensor.Shape{224, 224, 3},
//	    Weights:    zoo.WeightsImageNet,
//	    WeightsDir: dir,
//	}, backend)
package zoo

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/tensor"
)

// Errors.
var (
	ErrUnknownBackbone     = errors.New("unknown backbone")
	ErrDuplicateBackbone   = errors.New("backbone already registered")
	ErrWeightsNotFound     = errors.New("weights not found")
	ErrIncompatibleWeights = errors.New("weights incompatible with input shape")
	ErrInputTooSmall       = errors.New("input smaller than backbone minimum")
	ErrInvalidInputShape   = errors.New("invalid input shape")
	ErrWeightsFetchFailed  = errors.New("weights download failed")
)

// Weight identifiers understood by LoadOptions.Weights besides file paths.
const (
	WeightsImageNet = "imagenet"
	WeightsNone     = "none"
)

// Stage is a named point in a backbone and the [C, H, W] shape it produces
// for a single image.
type Stage struct {
	Name  string
	Shape tensor.Shape
}

// Backbone is a headless feature extractor.
//
// Forward maps [N, D, H, W] images to [N, OutputChannels, h, w] feature maps.
type Backbone[B tensor.Backend] interface {
	nn.Module[B]
	nn.Stateful

	// Name returns the registry name, e.g. "densenet121".
	Name() string

	// InputShape returns (H, W, D).
	InputShape() tensor.Shape

	// OutputChannels returns the channel count of the feature map.
	OutputChannels() int

	// SetTrainable freezes or unfreezes every parameter.
	SetTrainable(trainable bool)

	// Trainable reports whether the parameters receive gradients.
	Trainable() bool

	// Train switches batch norm between batch and moving statistics.
	// Frozen backbones always use moving statistics.
	Train(training bool)

	// NumLayers returns the layer count in Keras terms.
	NumLayers() int

	// Stages lists the stage outputs in order.
	Stages() []Stage
}

// LoadOptions configure Registry.Load.
type LoadOptions struct {
	// InputShape is (H, W, D).
	InputShape tensor.Shape

	// Weights is "imagenet", "none" (or empty) or a path to a safetensors file.
	Weights string

	// Trainable leaves the parameters trainable after loading.
	Trainable bool

	// WeightsDir holds "imagenet" weight files.
	WeightsDir string

	// WeightsURL, if set, is the base URL missing "imagenet" files are fetched from.
	WeightsURL string

	// WeightsSHA256, if set, is the expected hex digest of the weights file.
	WeightsSHA256 string

	// Seed drives the initialisation of weights that are not loaded.
	Seed uint64

	// Client performs downloads; nil uses http.DefaultClient.
	Client *http.Client

	// Logger receives download progress; nil discards it.
	Logger *zap.Logger
}

func (o LoadOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o LoadOptions) client() *http.Client {
	if o.Client == nil {
		return http.DefaultClient
	}
	return o.Client
}
