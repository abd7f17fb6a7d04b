package augment

import (
	"sync"

	"github.com/born-ml/vision/internal/tensor"
)

// Pipeline runs layers in order. Apply is safe for concurrent use; calls are
// serialised because random layers share one generator.
type Pipeline struct {
	mu     sync.Mutex
	layers []Layer
}

func newPipeline(layers ...Layer) *Pipeline {
	return &Pipeline{layers: layers}
}

// Apply runs every layer on x.
func (p *Pipeline) Apply(x *tensor.RawTensor, training bool) *tensor.RawTensor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := x
	for _, l := range p.layers {
		out = l.Apply(out, training)
	}
	return out
}

// OutputShape returns the shape after every layer.
func (p *Pipeline) OutputShape(in tensor.Shape) tensor.Shape {
	out := in
	for _, l := range p.layers {
		out = l.OutputShape(out)
	}
	return out
}

// Layers returns the layers in order.
func (p *Pipeline) Layers() []Layer {
	return append([]Layer(nil), p.layers...)
}

// Names returns the layer names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.layers))
	for i, l := range p.layers {
		names[i] = l.Name()
	}
	return names
}
