package autodiff

import (
	"github.com/born-ml/vision/internal/autodiff/ops"
	"github.com/born-ml/vision/internal/tensor"
)

// GradientTape records operations during a forward pass and replays them in
// reverse to compute gradients.
//
//	tape.StartRecording()
//	loss := ...
//	grads := tape.Backward(loss, seed, backend)
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape returns an idle, empty tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{operations: make([]ops.Operation, 0, 256)}
}

// StartRecording enables recording.
func (t *GradientTape) StartRecording() { t.recording = true }

// StopRecording disables recording. Recorded operations are kept.
func (t *GradientTape) StopRecording() { t.recording = false }

// IsRecording reports whether new operations are appended.
func (t *GradientTape) IsRecording() bool { return t.recording }

// Record appends op while recording.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int { return len(t.operations) }

// Clear drops recorded operations and keeps the recording state.
func (t *GradientTape) Clear() {
	clear(t.operations)
	t.operations = t.operations[:0]
}

// Backward seeds output with outputGrad and walks the tape in reverse.
// It returns the accumulated gradient of every tensor that output depends on.
func (t *GradientTape) Backward(output, outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := map[*tensor.RawTensor]*tensor.RawTensor{output: outputGrad}

	wasRecording := t.recording
	t.recording = false
	defer func() { t.recording = wasRecording }()

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		g, ok := grads[op.Output()]
		if !ok {
			continue
		}
		inputGrads := op.Backward(g, backend)
		for j, in := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil || !in.RequiresGrad() {
				continue
			}
			if prev, ok := grads[in]; ok {
				grads[in] = backend.Add(prev, inputGrads[j])
			} else {
				grads[in] = inputGrads[j]
			}
		}
	}
	return grads
}
