package nn

import (
	"fmt"

	"github.com/born-ml/vision/internal/tensor"
)

// CategoricalCrossEntropy returns the batch mean of -sum(y * log(p)).
//
// probs are softmax outputs and targets are one-hot rows, both [N, K].
// Probabilities are clipped to [1e-7, 1-1e-7] before the log.
func CategoricalCrossEntropy[B tensor.Backend](probs, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := probs.Backend()
	return tensor.New[float32](backend.CategoricalCrossEntropy(probs.Raw(), targets.Raw()), backend)
}

// OneHot encodes class labels as [N, numClasses] targets.
func OneHot[B tensor.Backend](labels []int, numClasses int, backend B) (*tensor.Tensor[float32, B], error) {
	out := tensor.Zeros[float32](tensor.Shape{len(labels), numClasses}, backend)
	data := out.Data()
	for i, l := range labels {
		if l < 0 || l >= numClasses {
			return nil, fmt.Errorf("label %d at index %d out of range [0, %d)", l, i, numClasses)
		}
		data[i*numClasses+l] = 1
	}
	return out, nil
}

// Accuracy returns the fraction of rows whose argmax equals the label.
func Accuracy[B tensor.Backend](probs *tensor.Tensor[float32, B], labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	pred := probs.Argmax(-1).Data()
	hits := 0
	for i, l := range labels {
		if int(pred[i]) == l {
			hits++
		}
	}
	return float64(hits) / float64(len(labels))
}
