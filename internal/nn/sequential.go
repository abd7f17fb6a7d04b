package nn

import (
	"github.com/born-ml/vision/internal/tensor"
)

// Sequential chains modules; each output feeds the next module.
//
//	stem := nn.NewSequential[Backend]("stem",
//	    nn.NewConv2D("conv1/conv", cfg, src, backend),
//	    nn.NewBatchNorm2D[Backend]("conv1/bn", 64, eps, momentum, backend),
//	    nn.NewReLU[Backend](),
//	)
//
// Training mode and state dicts propagate to every child that supports them.
type Sequential[B tensor.Backend] struct {
	name    string
	modules []Module[B]
}

// NewSequential creates a named chain.
func NewSequential[B tensor.Backend](name string, modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{name: name, modules: modules}
}

// Forward runs every module in order.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := input
	for _, m := range s.modules {
		out = m.Forward(out)
	}
	return out
}

// Parameters collects the parameters of every module in order.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// Add appends a module.
func (s *Sequential[B]) Add(m Module[B]) { s.modules = append(s.modules, m) }

// Len returns the number of direct children.
func (s *Sequential[B]) Len() int { return len(s.modules) }

// Module returns the i-th child.
func (s *Sequential[B]) Module(i int) Module[B] { return s.modules[i] }

// Name returns the chain name.
func (s *Sequential[B]) Name() string { return s.name }

// Train propagates the mode to every child.
func (s *Sequential[B]) Train(training bool) {
	for _, m := range s.modules {
		SetTraining(m, training)
	}
}

// NumLayers counts leaf modules, descending into nested chains.
func (s *Sequential[B]) NumLayers() int {
	n := 0
	for _, m := range s.modules {
		if c, ok := m.(interface{ NumLayers() int }); ok {
			n += c.NumLayers()
			continue
		}
		n++
	}
	return n
}

// StateDict merges the state of every child. Child keys are already unique paths.
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for _, m := range s.modules {
		mergeState(state, StateDictOf(m))
	}
	return state
}

// LoadStateDict loads every child from state. Extra keys are ignored.
func (s *Sequential[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	for _, m := range s.modules {
		if err := LoadStateDictInto(m, state); err != nil {
			return err
		}
	}
	return nil
}
