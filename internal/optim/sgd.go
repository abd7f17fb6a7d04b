package optim

import (
	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule:
//
//	v = momentum * v + grad
//	param = param - lr * v
//
// With momentum 0 this is plain gradient descent.
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities slots
}

// SGDConfig holds SGD hyperparameters.
type SGDConfig struct {
	LR       float32 // default 0.01
	Momentum float32 // in [0, 1), default 0
}

// NewSGD creates an SGD optimizer over params.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(slots),
	}
}

// Step applies one SGD update.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, p := range s.params {
		g := gradientFor(p, grads)
		if g == nil {
			continue
		}
		data := p.Tensor().Data()
		if s.momentum == 0 {
			axpy(-s.lr, g, data)
			continue
		}
		v := s.velocities.get(p.Tensor().Raw(), len(data))
		scal(s.momentum, v)
		axpy(1, g, v)
		axpy(-s.lr, v, data)
	}
}

// LR returns the learning rate.
func (s *SGD[B]) LR() float32 { return s.lr }

// SetLR updates the learning rate.
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }

// StateDict exports momentum buffers as "<param>/velocity".
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	exportSlots(s.velocities, s.params, "velocity", out)
	return out
}

// LoadStateDict restores momentum buffers. Missing entries start from zero.
func (s *SGD[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	return loadSlots(s.velocities, s.params, "velocity", state)
}
