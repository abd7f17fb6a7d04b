package nn

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/tensor"
)

// Linear is a fully connected layer: y = x @ Wᵀ + b.
//
// The weight is held as [out, in]. It is exported as the Keras Dense kernel
// [in, out] under "<name>/kernel", and the bias under "<name>/bias".
type Linear[B tensor.Backend] struct {
	name        string
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
	backend     B
}

// NewLinear creates a dense layer with a Glorot-uniform weight and zero bias.
func NewLinear[B tensor.Backend](name string, inFeatures, outFeatures int, src rand.Source, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear %s: invalid features in=%d out=%d", name, inFeatures, outFeatures))
	}
	return &Linear[B]{
		name:        name,
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter(Key(name, "kernel"), GlorotUniform(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, src, backend)),
		bias:        NewParameter(Key(name, "bias"), Zeros(tensor.Shape{outFeatures}, backend)),
		backend:     backend,
	}
}

// Forward maps [N, in] to [N, out].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s := input.Shape()
	if len(s) != 2 || s[1] != l.inFeatures {
		panic(fmt.Sprintf("linear %s: expected [N, %d], got %v", l.name, l.inFeatures, s))
	}
	out := input.MatMul(l.weight.Tensor().T())
	return out.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
}

// Parameters returns the weight and bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Name returns the layer name.
func (l *Linear[B]) Name() string { return l.name }

// Weight returns the [out, in] weight.
func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }

// Bias returns the bias.
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

// InFeatures returns the input width.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }

// StateDict exports the weight as an [in, out] kernel plus the bias.
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		l.weight.Name(): l.backend.Transpose(l.weight.Tensor().Detach().Raw()),
		l.bias.Name():   l.bias.Tensor().Raw().Clone(),
	}
}

// LoadStateDict imports an [in, out] kernel and the bias.
func (l *Linear[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if err := copyStateTransposed(l.backend, state, l.weight.Name(), l.weight.Tensor().Raw(), 1, 0); err != nil {
		return fmt.Errorf("linear %s: %w", l.name, err)
	}
	if err := copyState(state, l.bias.Name(), l.bias.Tensor().Raw()); err != nil {
		return fmt.Errorf("linear %s: %w", l.name, err)
	}
	return nil
}
