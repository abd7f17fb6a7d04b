package model

import (
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/born-ml/vision/internal/augment"
	"github.com/born-ml/vision/internal/config"
	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/serialization"
	"github.com/born-ml/vision/internal/tensor"
	"github.com/born-ml/vision/internal/zoo"
)

// Keras names of the head layers.
const (
	poolName    = "global_average_pooling2d"
	dropoutName = "dropout"
	denseName   = "predictions"
)

// Model is an assembled classifier. It is owned by the caller and is not
// safe for concurrent use.
type Model[B tensor.Backend] struct {
	id         uuid.UUID
	backend    B
	inputShape tensor.Shape
	numClasses int
	wiring     config.Wiring
	training   bool

	augmentation *augment.Pipeline
	backbone     zoo.Backbone[B]
	head         *nn.Sequential[B]
	dropout      *nn.Dropout[B]
	dense        *nn.Linear[B]
}

// Forward maps [N, H, W, D] pixels to [N, NumClasses] probabilities.
func (m *Model[B]) Forward(images *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.head.Forward(m.backbone.Forward(m.Preprocess(images)))
}

// Preprocess returns exactly what the backbone receives for images: the NCHW
// batch, augmented when the model is wired through the augmentation stage.
func (m *Model[B]) Preprocess(images *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s := images.Shape()
	if len(s) != 4 || s[1] != m.inputShape[0] || s[2] != m.inputShape[1] || s[3] != m.inputShape[2] {
		panic(fmt.Sprintf("model: expected [N, %d, %d, %d] images, got %v",
			m.inputShape[0], m.inputShape[1], m.inputShape[2], s))
	}
	x := images.Transpose(0, 3, 1, 2)
	if m.wiring == config.WiringBypass {
		return x
	}
	return tensor.New[float32](m.augmentation.Apply(x.Raw(), m.training), m.backend)
}

// Predict runs Forward in inference mode and returns the argmax class per image.
func (m *Model[B]) Predict(images *tensor.Tensor[float32, B]) []int {
	was := m.training
	m.Train(false)
	defer m.Train(was)

	classes := m.Forward(images).Argmax(-1).Data()
	out := make([]int, len(classes))
	for i, c := range classes {
		out[i] = int(c)
	}
	return out
}

// Train switches augmentation, dropout and trainable batch norm between
// training and inference behaviour.
func (m *Model[B]) Train(training bool) {
	m.training = training
	m.backbone.Train(training)
	m.head.Train(training)
}

// Training reports the current mode.
func (m *Model[B]) Training() bool { return m.training }

// ID identifies this model instance.
func (m *Model[B]) ID() uuid.UUID { return m.id }

// Backend returns the backend the model computes on.
func (m *Model[B]) Backend() B { return m.backend }

// InputShape returns (H, W, D).
func (m *Model[B]) InputShape() tensor.Shape { return m.inputShape.Clone() }

// NumClasses returns the head width.
func (m *Model[B]) NumClasses() int { return m.numClasses }

// Wiring reports whether the backbone receives augmented or raw input.
func (m *Model[B]) Wiring() config.Wiring { return m.wiring }

// Augmentation returns the preprocessing stage. It exists in both wirings.
func (m *Model[B]) Augmentation() *augment.Pipeline { return m.augmentation }

// Backbone returns the feature extractor.
func (m *Model[B]) Backbone() zoo.Backbone[B] { return m.backbone }

// Dense returns the classification layer.
func (m *Model[B]) Dense() *nn.Linear[B] { return m.dense }

// DropoutRate returns the head dropout rate.
func (m *Model[B]) DropoutRate() float32 { return m.dropout.Rate() }

// Parameters returns backbone then head parameters.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	return append(m.BackboneParameters(), m.HeadParameters()...)
}

// TrainableParameters returns the parameters that receive gradients.
func (m *Model[B]) TrainableParameters() []*nn.Parameter[B] {
	return nn.TrainableOnly(m.Parameters())
}

// BackboneParameters returns the backbone parameters, frozen or not.
func (m *Model[B]) BackboneParameters() []*nn.Parameter[B] { return m.backbone.Parameters() }

// HeadParameters returns the dense kernel and bias.
func (m *Model[B]) HeadParameters() []*nn.Parameter[B] { return m.head.Parameters() }

// NumParams returns the total parameter count.
func (m *Model[B]) NumParams() int { return nn.CountElements(m.Parameters()) }

// NumLayers counts layers in Keras terms: the backbone including its input
// layer, the augmentation stage when wired, then pooling, dropout and the
// dense layer, whose softmax is its activation rather than a layer.
func (m *Model[B]) NumLayers() int {
	n := m.backbone.NumLayers() + m.head.NumLayers() - 1
	if m.wiring == config.WiringAugmented {
		n++
	}
	return n
}

// Stages lists every stage on the forward path with its per-image output
// shape, [C, H, W] for feature maps and [C] after pooling.
func (m *Model[B]) Stages() []zoo.Stage {
	h, w, d := m.inputShape[0], m.inputShape[1], m.inputShape[2]
	stages := []zoo.Stage{{Name: "input", Shape: tensor.Shape{d, h, w}}}
	if m.wiring == config.WiringAugmented {
		for _, name := range m.augmentation.Names() {
			stages = append(stages, zoo.Stage{Name: name, Shape: tensor.Shape{d, h, w}})
		}
	}
	for _, s := range m.backbone.Stages() {
		stages = append(stages, zoo.Stage{Name: m.backbone.Name() + "/" + s.Name, Shape: s.Shape})
	}
	c := m.backbone.OutputChannels()
	return append(stages,
		zoo.Stage{Name: poolName, Shape: tensor.Shape{c}},
		zoo.Stage{Name: dropoutName, Shape: tensor.Shape{c}},
		zoo.Stage{Name: denseName, Shape: tensor.Shape{m.numClasses}},
	)
}

// StateDict returns backbone and head state under Keras names.
func (m *Model[B]) StateDict() map[string]*tensor.RawTensor {
	state := m.backbone.StateDict()
	maps.Copy(state, m.head.StateDict())
	return state
}

// LoadStateDict loads backbone and head state.
func (m *Model[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if err := m.backbone.LoadStateDict(state); err != nil {
		return fmt.Errorf("backbone: %w", err)
	}
	if err := m.head.LoadStateDict(state); err != nil {
		return fmt.Errorf("head: %w", err)
	}
	return nil
}

// Save writes the state dict to a safetensors file with the model identity
// and shape recorded as metadata.
func (m *Model[B]) Save(path string) error {
	meta := map[string]string{
		"id":          m.id.String(),
		"backbone":    m.backbone.Name(),
		"num_classes": fmt.Sprint(m.numClasses),
		"input_shape": fmt.Sprint([]int(m.inputShape)),
		"format":      "keras",
	}
	if err := serialization.WriteFile(path, m.StateDict(), meta); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	return nil
}

// Load reads a file written by Save into m.
func (m *Model[B]) Load(path string) error {
	state, _, err := serialization.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	return m.LoadStateDict(state)
}
