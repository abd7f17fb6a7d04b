// Package main provides the vision CLI: build, inspect and exercise
// transfer-learning classifiers from a config file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/vision/internal/config"
	"github.com/born-ml/vision/internal/logging"
)

const version = "v0.1.0-dev"

var errInvalidFlag = errors.New("invalid flag value")

// cli holds state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool
	timeout    time.Duration

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "vision",
		Short: "Build and inspect transfer-learning image classifiers",
		Long: `vision assembles image classifiers from a pretrained backbone and a new
softmax head.

The model is described by a YAML or HCL config file; VISION_* environment
variables override it. Without --config the defaults are a 224x224 RGB
DenseNet-121 with frozen imagenet weights.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg

			level := cfg.LogLevel
			if c.verbose {
				level = "debug"
			}
			logger, err := logging.New(level)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (.yaml, .yml or .hcl)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Minute, "Operation timeout")

	root.AddCommand(
		c.buildCmd(),
		c.summaryCmd(),
		c.trainStepCmd(),
		c.predictCmd(),
		c.zooCmd(),
		versionCmd(),
	)
	return root
}

// context returns the command context bounded by --timeout.
func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.timeout)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vision %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
