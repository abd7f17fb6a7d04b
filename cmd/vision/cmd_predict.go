package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/born-ml/vision/internal/backend/cpu"
	"github.com/born-ml/vision/internal/config"
	"github.com/born-ml/vision/internal/model"
	"github.com/born-ml/vision/internal/serialization"
	"github.com/born-ml/vision/internal/tensor"
)

var errNoClasses = errors.New("model file does not record num_classes")

func (c *cli) predictCmd() *cobra.Command {
	var weights string
	cmd := &cobra.Command{
		Use:   "predict --model FILE IMAGE...",
		Short: "Classify PNG or JPEG images with a saved model",
		Long: `Loads a model written by build --output and prints the predicted class and
its probability for each image. Images are resampled to the configured
input size; depth 1 configs read grayscale, depth 3 read RGB.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			state, meta, err := serialization.ReadFile(weights)
			if err != nil {
				return err
			}
			classes, err := strconv.Atoi(meta["num_classes"])
			if err != nil {
				return fmt.Errorf("%s: %w", weights, errNoClasses)
			}

			cfg := c.cfg
			cfg.Weights = config.WeightsNone
			backend := cpu.New()
			m, err := model.NewBuilder(backend, cfg, model.WithLogger(c.logger)).Build(ctx, classes)
			if err != nil {
				return err
			}
			if err := m.LoadStateDict(state); err != nil {
				return fmt.Errorf("%s: %w", weights, err)
			}
			c.logger.Info("model loaded", zap.String("path", weights), zap.String("id", meta["id"]))

			shape := m.InputShape()
			pixels := make([]float32, 0, len(args)*shape.NumElements())
			for _, path := range args {
				px, err := readImage(path, shape[0], shape[1], shape[2])
				if err != nil {
					return err
				}
				pixels = append(pixels, px...)
			}
			images, err := tensor.FromSlice(pixels, append(tensor.Shape{len(args)}, shape...), backend)
			if err != nil {
				return err
			}

			probs := m.Forward(images).Data()
			for i, path := range args {
				row := probs[i*classes : (i+1)*classes]
				best := 0
				for k, p := range row {
					if p > row[best] {
						best = k
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%.4f\n", path, best, row[best])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&weights, "model", "m", "", "Model file written by build --output (required)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

// readImage decodes path and resamples it to an HWC float32 image in [0, 255].
func readImage(path string, h, w, d int) (_ []float32, err error) {
	if d != 1 && d != 3 {
		return nil, fmt.Errorf("%s: depth %d images are not supported", path, d)
	}
	//nolint:gosec // G304: image paths are supplied by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return resample(img, h, w, d), nil
}

// resample scales img to h x w with a bilinear kernel, as Keras image loading
// does, and returns HWC pixels. Depth 1 yields ITU-R 601 luma.
func resample(img image.Image, h, w, d int) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float32, 0, h*w*d)
	for i := 0; i < len(dst.Pix); i += 4 {
		r, g, b := float32(dst.Pix[i]), float32(dst.Pix[i+1]), float32(dst.Pix[i+2])
		if d == 1 {
			out = append(out, 0.299*r+0.587*g+0.114*b)
			continue
		}
		out = append(out, r, g, b)
	}
	return out
}
