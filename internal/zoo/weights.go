package zoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/born-ml/vision/internal/serialization"
)

// WeightsFileName returns the file name "imagenet" weights for name are stored under.
func WeightsFileName(name string) string {
	return name + "_weights_tf_dim_ordering_tf_kernels_notop.safetensors"
}

// ResolveWeights turns opts.Weights into a file path, or "" for random initialisation.
//
// "imagenet" weights require three input channels and are looked up in
// opts.WeightsDir, then fetched from opts.WeightsURL when configured. A cached
// file that fails the checksum is downloaded again when a URL is configured;
// downloads are verified before they enter the cache.
func ResolveWeights(ctx context.Context, name string, opts LoadOptions) (string, error) {
	switch opts.Weights {
	case "", WeightsNone:
		return "", nil
	case WeightsImageNet:
		if d := opts.InputShape[2]; d != 3 {
			return "", fmt.Errorf("%s: imagenet weights need 3 input channels, got %d: %w", name, d, ErrIncompatibleWeights)
		}
		path := filepath.Join(opts.WeightsDir, WeightsFileName(name))
		if fileExists(path) {
			err := verify(path, opts.WeightsSHA256)
			if err == nil || opts.WeightsURL == "" || !errors.Is(err, serialization.ErrChecksumMismatch) {
				return path, err
			}
			opts.logger().Warn("cached backbone weights failed checksum, downloading again", zapPath(path), zap.Error(err))
			if err := os.Remove(path); err != nil {
				return "", fmt.Errorf("removing corrupt weights: %w", err)
			}
		}
		if opts.WeightsURL == "" {
			return "", fmt.Errorf("%s: %s (set weights_url to download): %w", name, path, ErrWeightsNotFound)
		}
		if err := fetch(ctx, opts, WeightsFileName(name), path); err != nil {
			return "", err
		}
		return path, nil
	default:
		if !fileExists(opts.Weights) {
			return "", fmt.Errorf("%s: %s: %w", name, opts.Weights, ErrWeightsNotFound)
		}
		return opts.Weights, verify(opts.Weights, opts.WeightsSHA256)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func verify(path, digest string) error {
	if digest == "" {
		return nil
	}
	return serialization.VerifyFileChecksum(path, digest)
}

// fetch downloads base/file into dst, creating the directory if needed. The
// download only replaces dst once it passes the configured checksum.
func fetch(ctx context.Context, opts LoadOptions, file, dst string) (err error) {
	src, err := url.JoinPath(opts.WeightsURL, file)
	if err != nil {
		return fmt.Errorf("weights url %q: %w", opts.WeightsURL, err)
	}
	log := opts.logger().With(zap.String("url", src), zapPath(dst))
	log.Info("downloading backbone weights")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	resp, err := opts.client().Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", src, ErrWeightsFetchFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s: %w", src, resp.Status, ErrWeightsFetchFailed)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("creating weights dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part*")
	if err != nil {
		return fmt.Errorf("creating weights file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", src, err)
		}
		return fmt.Errorf("%s: %w: %w", src, ErrWeightsFetchFailed, err)
	}
	if err = verify(tmp.Name(), opts.WeightsSHA256); err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("installing weights: %w", err)
	}
	log.Info("backbone weights downloaded", zap.Int64("bytes", n))
	return nil
}

func zapPath(path string) zap.Field { return zap.String("path", path) }

func zapTensors(n int) zap.Field { return zap.Int("tensors", n) }
