package optim

import (
	"math"

	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/tensor"
)

// Adam implements the Adam optimizer with bias correction.
//
//	m = beta1 * m + (1-beta1) * grad
//	v = beta2 * v + (1-beta2) * grad²
//	param -= lr * m̂ / (sqrt(v̂) + eps)
//
// Defaults follow Keras: lr 0.001, betas (0.9, 0.999), eps 1e-7.
//
// Example:
//
//	opt := optim.NewAdam(model.TrainableParameters(), optim.AdamConfig{LR: 1e-3})
//	loss, err := model.TrainStep(m, opt, images, labels)
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32
	t      int
	m, v   slots
}

// AdamConfig holds Adam hyperparameters. Zero fields take the defaults.
type AdamConfig struct {
	LR    float32
	Betas [2]float32
	Eps   float32
}

// NewAdam creates an Adam optimizer over params.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-7
	}
	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(slots),
		v:      make(slots),
	}
}

// Step applies one Adam update.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++
	bc1 := float32(1 - math.Pow(float64(a.beta1), float64(a.t)))
	bc2 := float32(1 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, p := range a.params {
		g := gradientFor(p, grads)
		if g == nil {
			continue
		}
		data := p.Tensor().Data()
		m := a.m.get(p.Tensor().Raw(), len(data))
		v := a.v.get(p.Tensor().Raw(), len(data))
		for i, gi := range g {
			m[i] = a.beta1*m[i] + (1-a.beta1)*gi
			v[i] = a.beta2*v[i] + (1-a.beta2)*gi*gi
			mHat := m[i] / bc1
			vHat := v[i] / bc2
			data[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// LR returns the learning rate.
func (a *Adam[B]) LR() float32 { return a.lr }

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) { a.lr = lr }

// Timestep returns the number of steps taken.
func (a *Adam[B]) Timestep() int { return a.t }

// StateDict exports the moment estimates as "<param>/m" and "<param>/v".
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	exportSlots(a.m, a.params, "m", out)
	exportSlots(a.v, a.params, "v", out)
	return out
}

// LoadStateDict restores the moment estimates.
func (a *Adam[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if err := loadSlots(a.m, a.params, "m", state); err != nil {
		return err
	}
	return loadSlots(a.v, a.params, "v", state)
}
