package model

import (
	"fmt"
	"strings"

	"github.com/born-ml/vision/internal/config"
	"github.com/born-ml/vision/internal/nn"
	"github.com/born-ml/vision/internal/tensor"
	"github.com/born-ml/vision/internal/zoo"
)

// Summary describes an assembled model.
type Summary struct {
	ID         string
	Backbone   string
	Wiring     config.Wiring
	InputShape tensor.Shape
	NumClasses int
	NumLayers  int
	Stages     []zoo.Stage

	// Parameter counts follow Keras: batch norm moving statistics count as
	// non-trainable parameters.
	TotalParams        int
	TrainableParams    int
	NonTrainableParams int
}

// Summary collects the model's architecture and parameter counts.
func (m *Model[B]) Summary() Summary {
	params := m.Parameters()
	learnable := nn.CountElements(params)
	total := 0
	for _, t := range m.StateDict() {
		total += t.NumElements()
	}
	trainable := nn.CountElements(nn.TrainableOnly(params))
	return Summary{
		ID:                 m.id.String(),
		Backbone:           m.backbone.Name(),
		Wiring:             m.wiring,
		InputShape:         m.InputShape(),
		NumClasses:         m.numClasses,
		NumLayers:          m.NumLayers(),
		Stages:             m.Stages(),
		TotalParams:        max(total, learnable),
		TrainableParams:    trainable,
		NonTrainableParams: max(total, learnable) - trainable,
	}
}

// String renders s as a plain-text table.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model %s (%s, %s wiring)\n", s.ID, s.Backbone, s.Wiring)
	width := len("Stage")
	for _, st := range s.Stages {
		width = max(width, len(st.Name))
	}
	fmt.Fprintf(&b, "%-*s  %s\n", width, "Stage", "Output shape")
	for _, st := range s.Stages {
		fmt.Fprintf(&b, "%-*s  %s\n", width, st.Name, ShapeString(st.Shape))
	}
	fmt.Fprintf(&b, "Layers: %d\n", s.NumLayers)
	fmt.Fprintf(&b, "Total params: %d\n", s.TotalParams)
	fmt.Fprintf(&b, "Trainable params: %d\n", s.TrainableParams)
	fmt.Fprintf(&b, "Non-trainable params: %d\n", s.NonTrainableParams)
	return b.String()
}

// ShapeString formats a per-image shape with a leading batch dimension,
// e.g. "(None, 1024, 7, 7)".
func ShapeString(s tensor.Shape) string {
	parts := make([]string, 0, len(s)+1)
	parts = append(parts, "None")
	for _, d := range s {
		parts = append(parts, fmt.Sprint(d))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
