package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/vision/internal/backend/cpu"
	"github.com/born-ml/vision/internal/hostmem"
	"github.com/born-ml/vision/internal/zoo"
)

func (c *cli) zooCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zoo",
		Short: "Inspect and download backbones",
	}
	cmd.AddCommand(c.zooListCmd(), c.zooFetchCmd())
	return cmd
}

func (c *cli) zooListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backbones with their size for the configured input depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			depth := c.cfg.Depth
			rows := [][]string{}
			for _, name := range zoo.NewDefaultRegistry[*cpu.CPUBackend]().Names() {
				params, state, ok := zoo.Footprint(name, depth)
				if !ok {
					rows = append(rows, []string{name, "?", "?", "?"})
					continue
				}
				rows = append(rows, []string{
					name,
					humanize.Comma(int64(params)),
					hostmem.Format(hostmem.Estimate(params, state, false)),
					hostmem.Format(hostmem.Estimate(params, state, true)),
				})
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return lipgloss.NewStyle().Padding(0, 1)
				}).
				Headers("Backbone", "Params", "Inference", "Training").
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), t.String())

			if report, err := hostmem.Read(cmd.Context()); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "host memory: %s\n", report)
			} else {
				c.logger.Debug("host memory unavailable", zap.Error(err))
			}
			return nil
		},
	}
}

func (c *cli) zooFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch NAME...",
		Short: "Download imagenet weights into the weights directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			for _, name := range args {
				path, err := zoo.ResolveWeights(ctx, name, zoo.LoadOptions{
					InputShape:    c.cfg.InputShape(),
					Weights:       zoo.WeightsImageNet,
					WeightsDir:    c.cfg.WeightsDir,
					WeightsURL:    c.cfg.WeightsURL,
					WeightsSHA256: c.cfg.WeightsSHA256,
					Logger:        c.logger,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, path)
			}
			return nil
		},
	}
}

