package augment

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/born-ml/vision/internal/tensor"
)

// RandomFlip mirrors each image with probability 0.5 per enabled axis.
type RandomFlip struct {
	horizontal bool
	vertical   bool
	rng        *rand.Rand
}

// NewRandomFlip creates a flip layer for mode "horizontal", "vertical" or
// "horizontal_and_vertical".
func NewRandomFlip(mode string, rng *rand.Rand) *RandomFlip {
	f := &RandomFlip{rng: rng}
	switch mode {
	case FlipHorizontal:
		f.horizontal = true
	case FlipVertical:
		f.vertical = true
	case FlipHorizontalVertical:
		f.horizontal, f.vertical = true, true
	default:
		panic(fmt.Sprintf("random_flip: unknown mode %q", mode))
	}
	return f
}

// Name returns "random_flip".
func (f *RandomFlip) Name() string { return "random_flip" }

// OutputShape returns in.
func (f *RandomFlip) OutputShape(in tensor.Shape) tensor.Shape { return in }

// Apply flips images while training.
func (f *RandomFlip) Apply(x *tensor.RawTensor, training bool) *tensor.RawTensor {
	n, c, h, w := requireNCHW("random_flip", x)
	if !training {
		return x
	}
	out := x.Clone()
	src, dst := x.AsFloat32(), out.AsFloat32()
	plane := h * w
	for i := range n {
		flipH := f.horizontal && f.rng.Float64() < 0.5
		flipV := f.vertical && f.rng.Float64() < 0.5
		if !flipH && !flipV {
			continue
		}
		for ch := range c {
			base := (i*c + ch) * plane
			for y := range h {
				sy := y
				if flipV {
					sy = h - 1 - y
				}
				for xx := range w {
					sx := xx
					if flipH {
						sx = w - 1 - xx
					}
					dst[base+y*w+xx] = src[base+sy*w+sx]
				}
			}
		}
	}
	return out
}
