// Package model assembles image classifiers from a configuration: an input
// declaration, an augmentation stage, a backbone from the zoo and a softmax
// classification head.
//
//	b := model.NewBuilder(backend, cfg, model.WithLogger(logger))
//	m, err := b.Build(ctx, 5)
//	probs := m.Forward(images) // [N, H, W, D] -> [N, 5]
package model

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/augment"
	"github.com/born-ml/vision/internal/config"
	"github.com/born-ml/vision/internal/hostmem"
	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/tensor"
	"github.com/born-ml/vision/internal/zoo"
)

// Errors.
var (
	ErrInvalidNumClasses = errors.New("num_classes must be positive")
	ErrShapeMismatch     = errors.New("shape mismatch")
)

// Seed offsets so that each random component draws from its own stream.
const (
	seedAugment uint64 = iota
	seedBackbone
	seedHead
	seedDropout
)

// Option configures a Builder.
type Option func(*options)

type options struct {
	logger *zap.Logger
	client *http.Client
	probe  hostmem.Probe
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithHTTPClient sets the client used to fetch missing backbone weights.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.client = client }
}

// WithMemoryProbe replaces the host memory reader. A nil probe disables the check.
func WithMemoryProbe(probe hostmem.Probe) Option {
	return func(o *options) { o.probe = probe }
}

// Builder builds models from an immutable configuration. It keeps no state
// between Build calls.
type Builder[B tensor.Backend] struct {
	backend  B
	cfg      config.Config
	registry *zoo.Registry[B]
	opts     options
}

// NewBuilder returns a builder for cfg on backend. cfg is assumed valid; see
// config.Config.Validate.
func NewBuilder[B tensor.Backend](backend B, cfg config.Config, opts ...Option) *Builder[B] {
	o := options{logger: zap.NewNop(), probe: hostmem.Read}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Builder[B]{
		backend:  backend,
		cfg:      cfg,
		registry: zoo.NewDefaultRegistry[B](),
		opts:     o,
	}
}

// Config returns the configuration models are built from.
func (b *Builder[B]) Config() config.Config { return b.cfg }

// Registry returns the backbone registry. Register custom backbones on it
// before calling Build.
func (b *Builder[B]) Registry() *zoo.Registry[B] { return b.registry }

// Build assembles a new model with a numClasses-wide softmax head.
func (b *Builder[B]) Build(ctx context.Context, numClasses int) (*Model[B], error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("got %d: %w", numClasses, ErrInvalidNumClasses)
	}
	cfg := b.cfg
	inputShape := cfg.InputShape()

	id := uuid.New()
	seed := cfg.Seed
	if seed == 0 {
		seed = binary.LittleEndian.Uint64(id[:8])
	}

	log := b.opts.logger.With(zap.String("model", id.String()))
	log.Info("preparing model",
		zap.String("backbone", cfg.Backbone),
		zap.Int("classes", numClasses),
		zap.Ints("input_shape", inputShape),
		zap.String("weights", cfg.Weights),
		zap.Bool("trainable", cfg.Trainable),
		zap.String("wiring", string(cfg.Wiring)),
	)

	pipeline, err := augment.NewPipeline(cfg.Augmentation, seed+seedAugment)
	if err != nil {
		return nil, fmt.Errorf("augmentation: %w", err)
	}
	nchw := tensor.Shape{1, inputShape[2], inputShape[0], inputShape[1]}
	if out := pipeline.OutputShape(nchw); !out.Equal(nchw) {
		return nil, fmt.Errorf("augmentation output %v, backbone input %v: %w", out, nchw, ErrShapeMismatch)
	}

	b.checkMemory(ctx, log, cfg.Backbone, inputShape[2])

	backbone, err := b.registry.Load(ctx, cfg.Backbone, zoo.LoadOptions{
		InputShape:    inputShape,
		Weights:       cfg.Weights,
		Trainable:     cfg.Trainable,
		WeightsDir:    cfg.WeightsDir,
		WeightsURL:    cfg.WeightsURL,
		WeightsSHA256: cfg.WeightsSHA256,
		Seed:          seed + seedBackbone,
		Client:        b.opts.client,
		Logger:        log,
	}, b.backend)
	if err != nil {
		return nil, fmt.Errorf("backbone %s: %w", cfg.Backbone, err)
	}
	if got := backbone.InputShape(); !got.Equal(inputShape) {
		return nil, fmt.Errorf("backbone input %v, model input %v: %w", got, inputShape, ErrShapeMismatch)
	}

	features := backbone.OutputChannels()
	dense := nn.NewLinear(denseName, features, numClasses, rand.NewSource(seed+seedHead), b.backend)
	dropout := nn.NewDropout[B](float32(cfg.DropoutRate), rand.NewSource(seed+seedDropout))
	head := nn.NewSequential[B]("head",
		nn.NewGlobalAvgPool2D[B](),
		dropout,
		dense,
		nn.NewSoftmax[B](),
	)

	if cfg.Wiring == config.WiringBypass {
		log.Warn("augmentation is built but bypassed: the backbone receives raw input",
			zap.Strings("augmentation", pipeline.Names()))
	}

	m := &Model[B]{
		id:           id,
		backend:      b.backend,
		inputShape:   inputShape.Clone(),
		numClasses:   numClasses,
		wiring:       cfg.Wiring,
		augmentation: pipeline,
		backbone:     backbone,
		head:         head,
		dropout:      dropout,
		dense:        dense,
	}
	m.Train(false)
	return m, nil
}

// checkMemory warns when the backbone is unlikely to fit in free host memory.
func (b *Builder[B]) checkMemory(ctx context.Context, log *zap.Logger, backbone string, depth int) {
	if b.opts.probe == nil {
		return
	}
	params, state, ok := zoo.Footprint(backbone, depth)
	if !ok {
		return
	}
	need := hostmem.Estimate(params, state, b.cfg.Trainable)
	report, err := b.opts.probe(ctx)
	if err != nil {
		log.Debug("host memory unavailable", zap.Error(err))
		return
	}
	if !report.Fits(need) {
		log.Warn("backbone may not fit in host memory",
			zap.String("need", hostmem.Format(need)),
			zap.Stringer("host", report))
	}
}
