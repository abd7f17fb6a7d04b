package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/vision/internal/backend/cpu"
	"github.com/born-ml/vision/internal/model"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func (c *cli) buildCmd() *cobra.Command {
	var (
		classes int
		output  string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a model and optionally save its weights",
		Long: `Builds the configured model with a --classes wide head.

With --output the full state dict is written as safetensors under Keras
variable names, ready for predict --model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			m, err := model.NewBuilder(cpu.New(), c.cfg, model.WithLogger(c.logger)).Build(ctx, classes)
			if err != nil {
				return err
			}
			s := m.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "built %s: %s, %d layers, %s params (%s trainable)\n",
				s.ID, s.Backbone, s.NumLayers, humanize.Comma(int64(s.TotalParams)), humanize.Comma(int64(s.TrainableParams)))

			if output == "" {
				return nil
			}
			if err := m.Save(output); err != nil {
				return err
			}
			c.logger.Info("model saved", zap.String("path", output))
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", output)
			return nil
		},
	}
	cmd.Flags().IntVarP(&classes, "classes", "n", 0, "Number of output classes (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the model weights to this .safetensors file")
	_ = cmd.MarkFlagRequired("classes")
	return cmd
}

func (c *cli) summaryCmd() *cobra.Command {
	var classes int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the stages and parameter counts of a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			m, err := model.NewBuilder(cpu.New(), c.cfg, model.WithLogger(c.logger)).Build(ctx, classes)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(m.Summary()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&classes, "classes", "n", 0, "Number of output classes (required)")
	_ = cmd.MarkFlagRequired("classes")
	return cmd
}

// renderSummary lays out the stage table followed by the parameter counts.
func renderSummary(s model.Summary) string {
	rows := make([][]string, 0, len(s.Stages))
	for _, st := range s.Stages {
		rows = append(rows, []string{st.Name, model.ShapeString(st.Shape)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("Stage", "Output shape").
		Rows(rows...)

	return fmt.Sprintf("Model %s (%s, %s wiring)\n%s\nLayers: %d\nTotal params: %d\nTrainable params: %d\nNon-trainable params: %d\n",
		s.ID, s.Backbone, s.Wiring, t.String(), s.NumLayers,
		s.TotalParams, s.TrainableParams, s.NonTrainableParams)
}
