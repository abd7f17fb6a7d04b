package model

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/augment"
	"github.com/born-ml/vision/internal/autodiff"
	"github.com/born-ml/vision/internal/backend/cpu"
	"github.com/born-ml/vision/internal/config"
	"github.com/born-ml/vision/internal/hostmem"
	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/optim"
	"github.com/born-ml/vision/internal/tensor"
	"github.com/born-ml/vision/internal/zoo"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

const stubChannels = 8

// stubBackbone is a one-conv feature extractor that remembers its last input.
type stubBackbone struct {
	*nn.Sequential[Backend]
	inputShape tensor.Shape
	trainable  bool
	last       *tensor.Tensor[float32, Backend]
}

func stubFactory(inputShape tensor.Shape, src rand.Source, backend Backend) (zoo.Backbone[Backend], error) {
	eps, momentum := float32(nn.DefaultBatchNormEpsilon), float32(nn.DefaultBatchNormMomentum)
	return &stubBackbone{
		Sequential: nn.NewSequential[Backend]("stub",
			nn.NewConv2D("stub_conv", nn.Conv2DConfig{
				InChannels: inputShape[2], OutChannels: stubChannels, KernelSize: 3, Stride: 2, Padding: 1,
			}, src, backend),
			nn.NewBatchNorm2D("stub_bn", stubChannels, eps, momentum, backend),
			nn.NewReLU[Backend](),
		),
		inputShape: inputShape.Clone(),
		trainable:  true,
	}, nil
}

func (s *stubBackbone) Forward(x *tensor.Tensor[float32, Backend]) *tensor.Tensor[float32, Backend] {
	s.last = x
	return s.Sequential.Forward(x)
}

func (s *stubBackbone) Name() string             { return "stub" }
func (s *stubBackbone) InputShape() tensor.Shape { return s.inputShape.Clone() }
func (s *stubBackbone) OutputChannels() int      { return stubChannels }
func (s *stubBackbone) Trainable() bool          { return s.trainable }
func (s *stubBackbone) NumLayers() int           { return 1 + s.Sequential.NumLayers() }

func (s *stubBackbone) SetTrainable(v bool) {
	nn.SetTrainable(s.Parameters(), v)
	s.trainable = v
}

func (s *stubBackbone) Stages() []zoo.Stage {
	return []zoo.Stage{{Name: "features", Shape: tensor.Shape{stubChannels, (s.inputShape[0] + 1) / 2, (s.inputShape[1] + 1) / 2}}}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ImgHeight, cfg.ImgWidth, cfg.Depth = 8, 6, 3
	cfg.Weights = config.WeightsNone
	cfg.Backbone = "stub"
	cfg.WeightsDir = t.TempDir()
	cfg.Seed = 1
	return cfg
}

func newBuilder(cfg config.Config, opts ...Option) *Builder[Backend] {
	b := NewBuilder(autodiff.New(cpu.New()), cfg, append([]Option{WithMemoryProbe(nil)}, opts...)...)
	b.Registry().MustRegister("stub", stubFactory)
	return b
}

func build(t *testing.T, cfg config.Config, numClasses int, opts ...Option) *Model[Backend] {
	t.Helper()
	m, err := newBuilder(cfg, opts...).Build(context.Background(), numClasses)
	require.NoError(t, err)
	return m
}

func pixels(m *Model[Backend], n int, seed uint64) *tensor.Tensor[float32, Backend] {
	s := m.InputShape()
	return tensor.Uniform(tensor.Shape{n, s[0], s[1], s[2]}, 0, 255, rand.NewSource(seed), m.Backend())
}

func snapshot(params []*nn.Parameter[Backend]) [][]float32 {
	out := make([][]float32, len(params))
	for i, p := range params {
		out[i] = append([]float32(nil), p.Tensor().Data()...)
	}
	return out
}

func changed(params []*nn.Parameter[Backend], before [][]float32) int {
	n := 0
	for i, p := range params {
		for j, v := range p.Tensor().Data() {
			if v != before[i][j] {
				n++
				break
			}
		}
	}
	return n
}

// The backbone must see augmented pixels unless bypass wiring is requested.
func TestBuild_AugmentationWiring(t *testing.T) {
	t.Run("augmented", func(t *testing.T) {
		m := build(t, testConfig(t), 3)
		require.Equal(t, config.WiringAugmented, m.Wiring())
		x := pixels(m, 2, 7)
		stub := m.Backbone().(*stubBackbone)

		m.Forward(x)
		nchw := x.Transpose(0, 3, 1, 2).Data()
		got := stub.last.Data()
		require.Len(t, got, len(nchw))
		for i := range nchw {
			assert.InDelta(t, nchw[i]/127.5-1, got[i], 1e-5)
		}
		assert.Equal(t, m.Preprocess(x).Data(), got)

		m.Train(true)
		m.Forward(x)
		first := stub.last.Data()
		m.Forward(x)
		assert.NotEqual(t, first, stub.last.Data(), "training applies random augmentation")
	})

	t.Run("bypass", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		cfg := testConfig(t)
		cfg.Wiring = config.WiringBypass
		m := build(t, cfg, 3, WithLogger(zap.New(core)))
		x := pixels(m, 2, 7)
		stub := m.Backbone().(*stubBackbone)

		m.Train(true)
		m.Forward(x)
		assert.Equal(t, x.Transpose(0, 3, 1, 2).Data(), stub.last.Data())
		assert.NotNil(t, m.Augmentation())
		assert.Equal(t, 1, logs.FilterMessageSnippet("bypassed").Len())
	})
}

func TestBuild_OutputIsProbabilitySimplex(t *testing.T) {
	for _, k := range []int{1, 2, 10} {
		m := build(t, testConfig(t), k)
		assert.Equal(t, k, m.NumClasses())
		assert.Equal(t, k, m.Dense().OutFeatures())

		for _, training := range []bool{false, true} {
			m.Train(training)
			probs := m.Forward(pixels(m, 4, uint64(k)))
			require.Equal(t, tensor.Shape{4, k}, probs.Shape())
			data := probs.Data()
			for i := range 4 {
				var sum float32
				for j := range k {
					p := data[i*k+j]
					assert.GreaterOrEqual(t, p, float32(0))
					sum += p
				}
				assert.InDelta(t, 1.0, sum, 1e-5)
			}
		}
	}
}

func TestBuild_SingleClass(t *testing.T) {
	m := build(t, testConfig(t), 1)
	probs := m.Forward(pixels(m, 3, 1)).Data()
	assert.InDeltaSlice(t, []float32{1, 1, 1}, probs, 1e-6)
	assert.Equal(t, []int{0, 0, 0}, m.Predict(pixels(m, 3, 2)))
}

func TestBuild_InvalidNumClasses(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := newBuilder(testConfig(t), WithLogger(zap.New(core)))
	for _, k := range []int{0, -1} {
		m, err := b.Build(context.Background(), k)
		assert.ErrorIs(t, err, ErrInvalidNumClasses)
		assert.Nil(t, m)
	}
	assert.Zero(t, logs.Len(), "fails before doing anything")
}

func TestBuild_LogsOnePreparingLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := build(t, testConfig(t), 4, WithLogger(zap.New(core)))

	entries := logs.FilterMessage("preparing model").All()
	require.Len(t, entries, 1)
	assert.Equal(t, 1, logs.Len())
	fields := entries[0].ContextMap()
	assert.Equal(t, "stub", fields["backbone"])
	assert.EqualValues(t, 4, fields["classes"])
	assert.Equal(t, false, fields["trainable"])
	assert.Equal(t, m.ID().String(), fields["model"])
}

func TestBuild_InputShape(t *testing.T) {
	cfg := testConfig(t)
	m := build(t, cfg, 2)
	assert.Equal(t, tensor.Shape{8, 6, 3}, m.InputShape())
	assert.Equal(t, cfg.InputShape(), m.Backbone().InputShape())
	assert.Equal(t, tensor.Shape{3, 8, 6}, m.Stages()[0].Shape)

	assert.Panics(t, func() {
		m.Forward(tensor.Zeros[float32](tensor.Shape{1, 6, 8, 3}, m.Backend()))
	})
}

func TestBuild_IndependentModels(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed = 0
	b := newBuilder(cfg)
	m1, err := b.Build(context.Background(), 5)
	require.NoError(t, err)
	m2, err := b.Build(context.Background(), 5)
	require.NoError(t, err)

	assert.NotEqual(t, m1.ID(), m2.ID())
	assert.Equal(t, m1.NumLayers(), m2.NumLayers())
	assert.Equal(t, m1.Stages(), m2.Stages())
	assert.Equal(t, m1.NumParams(), m2.NumParams())
	assert.NotEqual(t, m1.Dense().Weight().Tensor().Data(), m2.Dense().Weight().Tensor().Data())
}

func TestBuild_SeededModelsShareValuesNotStorage(t *testing.T) {
	b := newBuilder(testConfig(t))
	m1, err := b.Build(context.Background(), 5)
	require.NoError(t, err)
	m2, err := b.Build(context.Background(), 5)
	require.NoError(t, err)

	w1, w2 := m1.Dense().Weight().Tensor().Data(), m2.Dense().Weight().Tensor().Data()
	require.Equal(t, w1, w2)
	w1[0] += 1
	assert.NotEqual(t, w1[0], w2[0])
	assert.NotSame(t, m1.Backbone(), m2.Backbone())
}

func TestTrainStep_FrozenBackbone(t *testing.T) {
	m := build(t, testConfig(t), 3)
	require.False(t, m.Backbone().Trainable())
	assert.Len(t, m.TrainableParameters(), 2)

	backbone := m.BackboneParameters()
	before := snapshot(backbone)
	stateBefore := m.Backbone().StateDict()["stub_bn/moving_mean"].AsFloat32()
	head := m.HeadParameters()
	headBefore := snapshot(head)

	opt := optim.NewAdam(m.TrainableParameters(), optim.AdamConfig{LR: 1e-2})
	loss, err := TrainStep(m, opt, pixels(m, 4, 3), []int{0, 1, 2, 1})
	require.NoError(t, err)
	assert.Positive(t, loss)

	assert.Zero(t, changed(backbone, before))
	assert.Equal(t, stateBefore, m.Backbone().StateDict()["stub_bn/moving_mean"].AsFloat32())
	assert.Equal(t, len(head), changed(head, headBefore))
	assert.False(t, m.Training(), "mode restored")
}

func TestTrainStep_TrainableBackbone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Trainable = true
	m := build(t, cfg, 3)
	require.True(t, m.Backbone().Trainable())
	assert.Len(t, m.TrainableParameters(), len(m.Parameters()))

	backbone := m.BackboneParameters()
	before := snapshot(backbone)
	opt := optim.NewAdam(m.TrainableParameters(), optim.AdamConfig{LR: 1e-2})
	_, err := TrainStep(m, opt, pixels(m, 4, 3), []int{0, 1, 2, 1})
	require.NoError(t, err)
	assert.Positive(t, changed(backbone, before))
}

func TestTrainStep_Errors(t *testing.T) {
	m := build(t, testConfig(t), 3)
	opt := optim.NewSGD(m.TrainableParameters(), optim.SGDConfig{})

	_, err := TrainStep(m, opt, pixels(m, 2, 1), []int{0})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = TrainStep(m, opt, pixels(m, 2, 1), []int{0, 3})
	assert.Error(t, err)
}

func TestTrainStep_ReducesLoss(t *testing.T) {
	cfg := testConfig(t)
	cfg.DropoutRate = 0
	cfg.Augmentation.Flip = augment.FlipNone
	cfg.Augmentation.Rotation, cfg.Augmentation.Zoom = 0, 0
	m := build(t, cfg, 2)
	x := pixels(m, 4, 11)
	labels := []int{0, 1, 1, 0}
	opt := optim.NewAdam(m.TrainableParameters(), optim.AdamConfig{LR: 5e-2})

	first, err := TrainStep(m, opt, x, labels)
	require.NoError(t, err)
	var last float32
	for range 30 {
		last, err = TrainStep(m, opt, x, labels)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
}

func TestBuild_BackboneErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backbone = "resnet50"
	_, err := newBuilder(cfg).Build(context.Background(), 2)
	assert.ErrorIs(t, err, zoo.ErrUnknownBackbone)

	cfg = testConfig(t)
	cfg.Backbone = "densenet121"
	cfg.ImgHeight, cfg.ImgWidth, cfg.Depth = 32, 32, 1
	cfg.Weights = config.WeightsImageNet
	_, err = newBuilder(cfg).Build(context.Background(), 2)
	assert.ErrorIs(t, err, zoo.ErrIncompatibleWeights)

	cfg.Depth = 3
	_, err = newBuilder(cfg).Build(context.Background(), 2)
	assert.ErrorIs(t, err, zoo.ErrWeightsNotFound)

	cfg.Weights = config.WeightsNone
	cfg.ImgHeight = 16
	_, err = newBuilder(cfg).Build(context.Background(), 2)
	assert.ErrorIs(t, err, zoo.ErrInputTooSmall)
}

func TestBuild_DenseNet121(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := testConfig(t)
	cfg.Backbone = "densenet121"
	cfg.ImgHeight, cfg.ImgWidth = 32, 32
	probe := func(context.Context) (hostmem.Report, error) {
		return hostmem.Report{Total: 1 << 20, Available: 1 << 10}, nil
	}
	m := build(t, cfg, 5, WithLogger(zap.New(core)), WithMemoryProbe(probe))

	assert.Equal(t, 1, logs.FilterMessage("backbone may not fit in host memory").Len())
	assert.Equal(t, 427+3+1, m.NumLayers())
	assert.Equal(t, 1024, m.Backbone().OutputChannels())
	assert.Equal(t, 6_953_856+1024*5+5, m.NumParams())
	assert.Len(t, m.TrainableParameters(), 2)

	s := m.Summary()
	assert.Equal(t, 6_953_856+83_648+1024*5+5, s.TotalParams)
	assert.Equal(t, 1024*5+5, s.TrainableParams)
	assert.Equal(t, 6_953_856+83_648, s.NonTrainableParams)

	probs := m.Forward(pixels(m, 2, 5))
	assert.Equal(t, tensor.Shape{2, 5}, probs.Shape())

	before := snapshot(m.BackboneParameters())
	opt := optim.NewAdam(m.TrainableParameters(), optim.AdamConfig{})
	_, err := TrainStep(m, opt, pixels(m, 2, 6), []int{1, 4})
	require.NoError(t, err)
	assert.Zero(t, changed(m.BackboneParameters(), before))
}

func TestModel_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	cfg := testConfig(t)
	m1 := build(t, cfg, 4)
	require.NoError(t, m1.Save(path))

	cfg.Seed = 99
	m2 := build(t, cfg, 4)
	require.NotEqual(t, m1.Dense().Weight().Tensor().Data(), m2.Dense().Weight().Tensor().Data())
	require.NoError(t, m2.Load(path))

	assert.Equal(t, m1.Dense().Weight().Tensor().Data(), m2.Dense().Weight().Tensor().Data())
	x := pixels(m1, 3, 4)
	assert.InDeltaSlice(t, m1.Forward(x).Data(), m2.Forward(x).Data(), 1e-6)

	state := m1.StateDict()
	assert.Contains(t, state, "predictions/kernel")
	assert.Equal(t, tensor.Shape{stubChannels, 4}, state["predictions/kernel"].Shape())

	m3 := build(t, cfg, 7)
	assert.ErrorIs(t, m3.Load(path), nn.ErrStateShape)
}

func TestModel_TrainToggles(t *testing.T) {
	m := build(t, testConfig(t), 2)
	assert.False(t, m.Training())
	m.Train(true)
	assert.True(t, m.Training())
	m.Predict(pixels(m, 1, 1))
	assert.True(t, m.Training(), "Predict restores the mode")
	assert.InDelta(t, 0.2, m.DropoutRate(), 1e-6)
}

func TestModel_Summary(t *testing.T) {
	m := build(t, testConfig(t), 3)
	s := m.Summary()

	var names []string
	for _, st := range s.Stages {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{
		"input", "random_flip", "random_rotation", "random_zoom", "rescaling",
		"stub/features", "global_average_pooling2d", "dropout", "predictions",
	}, names)
	assert.Equal(t, 4+3+1, s.NumLayers)

	conv := 3 * 3 * 3 * stubChannels
	bn := 2 * stubChannels
	head := stubChannels*3 + 3
	assert.Equal(t, conv+bn+head+bn, s.TotalParams)
	assert.Equal(t, head, s.TrainableParams)

	out := s.String()
	assert.Contains(t, out, "predictions")
	assert.Contains(t, out, "(None, 3)")
	assert.Contains(t, out, "Trainable params: 27")
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "(None, 1024, 7, 7)", ShapeString(tensor.Shape{1024, 7, 7}))
	assert.Equal(t, "(None)", ShapeString(nil))
}
