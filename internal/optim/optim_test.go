package optim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vision/internal/autodiff"
	"github.com/born-ml/vision/internal/backend/cpu"
	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/optim"
	"github.com/born-ml/vision/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func param(t *testing.T, name string, data ...float32) *nn.Parameter[Backend] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape{len(data)}, autodiff.New(cpu.New()))
	require.NoError(t, err)
	return nn.NewParameter(name, x)
}

func grad(t *testing.T, p *nn.Parameter[Backend], data ...float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	g, err := tensor.WrapFloat32(data, tensor.Shape{len(data)})
	require.NoError(t, err)
	return map[*tensor.RawTensor]*tensor.RawTensor{p.Tensor().Raw(): g}
}

func TestSGD_Step(t *testing.T) {
	p := param(t, "x", 2)
	opt := optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{LR: 0.1})
	opt.Step(grad(t, p, 1))
	assert.InDelta(t, 1.9, p.Tensor().Data()[0], 1e-6)
}

func TestSGD_Momentum(t *testing.T) {
	p := param(t, "x", 1)
	opt := optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	opt.Step(grad(t, p, 1))
	assert.InDelta(t, 0.9, p.Tensor().Data()[0], 1e-6)

	// v = 0.9*1 + 1 = 1.9
	opt.Step(grad(t, p, 1))
	assert.InDelta(t, 0.71, p.Tensor().Data()[0], 1e-5)

	state := opt.StateDict()
	require.Contains(t, state, "x/velocity")
	assert.InDelta(t, 1.9, state["x/velocity"].AsFloat32()[0], 1e-6)

	fresh := optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	require.NoError(t, fresh.LoadStateDict(state))
	assert.Equal(t, state["x/velocity"].AsFloat32(), fresh.StateDict()["x/velocity"].AsFloat32())
}

func TestSGD_Defaults(t *testing.T) {
	opt := optim.NewSGD[Backend](nil, optim.SGDConfig{})
	assert.InDelta(t, 0.01, opt.LR(), 1e-9)
	opt.SetLR(0.5)
	assert.InDelta(t, 0.5, opt.LR(), 1e-9)
}

func TestAdam_FirstStepMovesByLR(t *testing.T) {
	p := param(t, "w", 1, -1)
	opt := optim.NewAdam([]*nn.Parameter[Backend]{p}, optim.AdamConfig{LR: 0.01})
	opt.Step(grad(t, p, 3, -0.5))

	// After bias correction the first step is lr * sign(grad).
	assert.InDeltaSlice(t, []float32{0.99, -0.99}, p.Tensor().Data(), 1e-5)
	assert.Equal(t, 1, opt.Timestep())

	state := opt.StateDict()
	assert.Contains(t, state, "w/m")
	assert.Contains(t, state, "w/v")
}

func TestAdam_Converges(t *testing.T) {
	// minimise (x-3)²
	p := param(t, "x", 0)
	opt := optim.NewAdam([]*nn.Parameter[Backend]{p}, optim.AdamConfig{LR: 0.1})
	for range 500 {
		x := p.Tensor().Data()[0]
		opt.Step(grad(t, p, 2*(x-3)))
	}
	assert.InDelta(t, 3, p.Tensor().Data()[0], 5e-2)
}

func TestOptimizers_SkipFrozenAndMissing(t *testing.T) {
	frozen := param(t, "frozen", 1)
	frozen.SetTrainable(false)
	absent := param(t, "absent", 1)

	for _, opt := range []optim.Optimizer{
		optim.NewSGD([]*nn.Parameter[Backend]{frozen, absent}, optim.SGDConfig{LR: 1}),
		optim.NewAdam([]*nn.Parameter[Backend]{frozen, absent}, optim.AdamConfig{LR: 1}),
	} {
		opt.Step(grad(t, frozen, 5))
		assert.Equal(t, float32(1), frozen.Tensor().Data()[0])
		assert.Equal(t, float32(1), absent.Tensor().Data()[0])
	}
}

func TestOptimizer_ShapeMismatchPanics(t *testing.T) {
	p := param(t, "x", 1, 2)
	opt := optim.NewSGD([]*nn.Parameter[Backend]{p}, optim.SGDConfig{})
	assert.Panics(t, func() { opt.Step(grad(t, p, 1)) })
}

func TestNew(t *testing.T) {
	params := []*nn.Parameter[Backend]{param(t, "x", 1)}

	opt, err := optim.New(params, optim.Config{Name: "sgd", LR: 0.2})
	require.NoError(t, err)
	assert.IsType(t, &optim.SGD[Backend]{}, opt)
	assert.InDelta(t, 0.2, opt.LR(), 1e-9)

	opt, err = optim.New(params, optim.Config{})
	require.NoError(t, err)
	assert.IsType(t, &optim.Adam[Backend]{}, opt)

	_, err = optim.New(params, optim.Config{Name: "rmsprop"})
	assert.ErrorIs(t, err, optim.ErrUnknownOptimizer)
}

func TestAdam_SameNameParametersKeepSeparateMoments(t *testing.T) {
	a := param(t, "dense/kernel", 1)
	b := param(t, "dense/kernel", 1)
	opt := optim.NewAdam([]*nn.Parameter[Backend]{a, b}, optim.AdamConfig{LR: 0.1})

	grads := grad(t, a, 1)
	for k, v := range grad(t, b, -1) {
		grads[k] = v
	}
	opt.Step(grads)
	assert.InDelta(t, 0.9, a.Tensor().Data()[0], 1e-5)
	assert.InDelta(t, 1.1, b.Tensor().Data()[0], 1e-5)

	// b receives no gradient; its moments must not be a's.
	opt.Step(grad(t, a, 1))
	assert.InDelta(t, 1.1, b.Tensor().Data()[0], 1e-5)
	assert.InDelta(t, 0.8, a.Tensor().Data()[0], 1e-4)
}

func TestSGD_SameNameParametersKeepSeparateVelocity(t *testing.T) {
	a := param(t, "w", 0)
	b := param(t, "w", 0)
	opt := optim.NewSGD([]*nn.Parameter[Backend]{a, b}, optim.SGDConfig{LR: 1, Momentum: 0.5})

	opt.Step(grad(t, a, 1))
	opt.Step(grad(t, b, 1))
	assert.InDelta(t, -1, a.Tensor().Data()[0], 1e-6)
	assert.InDelta(t, -1, b.Tensor().Data()[0], 1e-6)
}
