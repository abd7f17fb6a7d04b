package model

import (
	"fmt"

	"github.com/born-ml/vision/internal/autodiff"
	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/optim"
	"github.com/born-ml/vision/internal/tensor"
)

// TrainStep runs one optimisation step on a batch: a training-mode forward
// pass under the gradient tape, categorical cross-entropy against labels,
// backward and opt.Step. It returns the loss before the update.
//
// The model is left in the mode it was in before the call.
func TrainStep[B tensor.Backend](
	m *Model[*autodiff.AutodiffBackend[B]],
	opt optim.Optimizer,
	images *tensor.Tensor[float32, *autodiff.AutodiffBackend[B]],
	labels []int,
) (float32, error) {
	if n := images.Shape()[0]; n != len(labels) {
		return 0, fmt.Errorf("%d images, %d labels: %w", n, len(labels), ErrShapeMismatch)
	}
	backend := m.Backend()
	targets, err := nn.OneHot(labels, m.NumClasses(), backend)
	if err != nil {
		return 0, fmt.Errorf("labels: %w", err)
	}

	was := m.Training()
	m.Train(true)
	defer m.Train(was)

	tape := backend.Tape()
	tape.Clear()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	loss := nn.CategoricalCrossEntropy(m.Forward(images), targets)
	grads := autodiff.Backward(loss, backend)
	opt.Step(grads)
	return loss.Item(), nil
}
