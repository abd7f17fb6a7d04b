package zoo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/serialization"
	"github.com/born-ml/vision/internal/tensor"
)

// Factory builds a randomly initialised backbone for (H, W, D) inputs.
type Factory[B tensor.Backend] func(inputShape tensor.Shape, src rand.Source, backend B) (Backbone[B], error)

// Registry maps backbone names to factories. It is safe for concurrent use.
type Registry[B tensor.Backend] struct {
	mu        sync.RWMutex
	factories map[string]Factory[B]
}

// NewRegistry returns an empty registry.
func NewRegistry[B tensor.Backend]() *Registry[B] {
	return &Registry[B]{factories: make(map[string]Factory[B])}
}

// NewDefaultRegistry returns a registry holding densenet121, densenet169 and densenet201.
func NewDefaultRegistry[B tensor.Backend]() *Registry[B] {
	r := NewRegistry[B]()
	for _, cfg := range []DenseNetConfig{DenseNet121, DenseNet169, DenseNet201} {
		r.MustRegister(cfg.Name, denseNetFactory[B](cfg))
	}
	return r
}

func denseNetFactory[B tensor.Backend](cfg DenseNetConfig) Factory[B] {
	return func(inputShape tensor.Shape, src rand.Source, backend B) (Backbone[B], error) {
		net, err := NewDenseNet(cfg, inputShape, src, backend)
		if err != nil {
			return nil, err
		}
		return net, nil
	}
}

// Register adds a factory under name.
func (r *Registry[B]) Register(name string, f Factory[B]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateBackbone)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry[B]) MustRegister(name string, f Factory[B]) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Footprint returns the parameter and state counts of a built-in backbone
// for depth input channels. ok is false for backbones registered by callers.
func Footprint(name string, depth int) (params, state int, ok bool) {
	for _, cfg := range []DenseNetConfig{DenseNet121, DenseNet169, DenseNet201} {
		if cfg.Name == name {
			params, state = cfg.Footprint(depth)
			return params, state, true
		}
	}
	return 0, 0, false
}

// Names returns the registered names in lexical order.
func (r *Registry[B]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Load builds the named backbone, loads its weights and applies the trainable flag.
func (r *Registry[B]) Load(ctx context.Context, name string, opts LoadOptions, backend B) (Backbone[B], error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q (known: %v): %w", name, r.Names(), ErrUnknownBackbone)
	}
	if len(opts.InputShape) != 3 || opts.InputShape.Validate() != nil {
		return nil, fmt.Errorf("%s: %v: %w", name, opts.InputShape, ErrInvalidInputShape)
	}

	path, err := ResolveWeights(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	bb, err := factory(opts.InputShape, rand.NewSource(opts.Seed), backend)
	if err != nil {
		return nil, err
	}

	if path != "" {
		state, _, err := serialization.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: reading weights: %w", name, err)
		}
		if err := bb.LoadStateDict(state); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		opts.logger().Debug("backbone weights loaded", zapPath(path), zapTensors(len(state)))
	}

	bb.SetTrainable(opts.Trainable)
	return bb, nil
}
