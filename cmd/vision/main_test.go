package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `img_height: 32
img_width: 32
depth: 3
weights: none
backbone: densenet121
seed: 7
log_level: error
`

// run executes the CLI with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vision.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vision "+version+"\n", out)
}

func TestBadConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestClassesRequired(t *testing.T) {
	_, err := run(t, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classes")
}

func TestTrainStep_RejectsEmptyBatch(t *testing.T) {
	for _, batch := range []string{"0", "-3"} {
		_, err := run(t, "train-step", "--classes", "2", "--batch", batch)
		require.ErrorIs(t, err, errInvalidFlag, batch)
	}
}

func TestResample_BilinearDownscale(t *testing.T) {
	// Pixel x holds 10*x in every channel; halving the width averages
	// neighbouring columns.
	src := image.NewRGBA(image.Rect(0, 0, 16, 4))
	for y := range 4 {
		for x := range 16 {
			v := uint8(10 * x)
			src.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	got := resample(src, 4, 8, 3)
	require.Len(t, got, 4*8*3)
	for y := range 4 {
		for x := 1; x < 7; x++ {
			want := float32(10*(2*x) + 10*(2*x+1)) / 2
			for c := range 3 {
				assert.InDelta(t, want, got[(y*8+x)*3+c], 1, "y=%d x=%d c=%d", y, x, c)
			}
		}
	}

	gray := resample(src, 4, 8, 1)
	require.Len(t, gray, 4*8)
	assert.InDelta(t, float32(45), gray[2], 1)
}

func TestZooList(t *testing.T) {
	out, err := run(t, "zoo", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "densenet121")
	assert.Contains(t, out, "densenet201")
	assert.Contains(t, out, "6,953,856")
}

func TestSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a full DenseNet-121")
	}
	out, err := run(t, "--config", writeConfig(t), "summary", "--classes", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "densenet121/conv5")
	assert.Contains(t, out, "(None, 1024)")
	assert.Contains(t, out, "(None, 3)")
	assert.Contains(t, out, "Layers: 431\n")
	assert.Contains(t, out, "Trainable params: 3075\n")
}

func TestTrainStep_FrozenBackbone(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a full DenseNet-121")
	}
	out, err := run(t, "--config", writeConfig(t), "train-step", "--classes", "2", "--batch", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "step 1: loss ")
	assert.Contains(t, out, "backbone params changed: 0/")
	assert.Contains(t, out, "head params changed: 2/2\n")
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	writePNG(t, img, 8, 6)

	px, err := readImage(img, 3, 4, 3)
	require.NoError(t, err)
	assert.Len(t, px, 3*4*3)

	_, err = readImage(img, 3, 4, 2)
	require.Error(t, err)

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o600))
	_, err = readImage(junk, 3, 4, 3)
	require.ErrorIs(t, err, image.ErrFormat)

	_, err = readImage(filepath.Join(dir, "missing.png"), 3, 4, 3)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildAndPredict(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a full DenseNet-121")
	}
	dir := t.TempDir()
	cfg := writeConfig(t)
	weights := filepath.Join(dir, "model.safetensors")

	out, err := run(t, "--config", cfg, "build", "--classes", "4", "--output", weights)
	require.NoError(t, err)
	assert.Contains(t, out, "densenet121, 431 layers")
	assert.FileExists(t, weights)

	img := filepath.Join(dir, "a.png")
	writePNG(t, img, 48, 40)
	out, err = run(t, "--config", cfg, "predict", "--model", weights, img)
	require.NoError(t, err)
	assert.Regexp(t, `a\.png\t[0-3]\t[01]\.\d{4}\n`, out)

	_, err = run(t, "--config", cfg, "predict", "--model", weights, filepath.Join(dir, "missing.png"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
