package augment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

// aboutCenter returns T(c) · m · T(-c) for the pixel-grid center of an h×w image.
func aboutCenter(m *mat.Dense, h, w int) *mat.Dense {
	cx, cy := float64(w-1)/2, float64(h-1)/2
	toCenter := mat.NewDense(3, 3, []float64{1, 0, -cx, 0, 1, -cy, 0, 0, 1})
	back := mat.NewDense(3, 3, []float64{1, 0, cx, 0, 1, cy, 0, 0, 1})
	var out mat.Dense
	out.Product(back, m, toCenter)
	return &out
}

// rotation returns the forward transform rotating an image by theta radians.
func rotation(theta float64, h, w int) *mat.Dense {
	sin, cos := math.Sincos(theta)
	return aboutCenter(mat.NewDense(3, 3, []float64{cos, -sin, 0, sin, cos, 0, 0, 0, 1}), h, w)
}

// scaling returns the forward transform magnifying an image by (sx, sy).
func scaling(sx, sy float64, h, w int) *mat.Dense {
	return aboutCenter(mat.NewDense(3, 3, []float64{sx, 0, 0, 0, sy, 0, 0, 0, 1}), h, w)
}

// sampler resamples image planes through the inverse of a forward transform.
type sampler struct {
	fill   FillMode
	interp Interpolation
	value  float32 // used by FillConstant
}

// warp maps every image i of x through forward[i]. A nil entry copies the image.
func (s sampler) warp(x *tensor.RawTensor, forward []*mat.Dense) *tensor.RawTensor {
	n, c, h, w := requireNCHW("affine", x)
	inverse := make([]*mat.Dense, n)
	for i, f := range forward {
		if f == nil {
			continue
		}
		var inv mat.Dense
		if err := inv.Inverse(f); err != nil {
			panic(fmt.Sprintf("affine: singular transform for image %d: %v", i, err))
		}
		inverse[i] = &inv
	}

	out := x.Clone()
	src, dst := x.AsFloat32(), out.AsFloat32()
	plane := h * w
	parallel.For(n, func(i int) {
		inv := inverse[i]
		if inv == nil {
			return
		}
		a00, a01, a02 := inv.At(0, 0), inv.At(0, 1), inv.At(0, 2)
		a10, a11, a12 := inv.At(1, 0), inv.At(1, 1), inv.At(1, 2)
		for ch := range c {
			base := (i*c + ch) * plane
			in, o := src[base:base+plane], dst[base:base+plane]
			for y := range h {
				for xx := range w {
					fx, fy := float64(xx), float64(y)
					sx := a00*fx + a01*fy + a02
					sy := a10*fx + a11*fy + a12
					o[y*w+xx] = s.sample(in, h, w, sx, sy)
				}
			}
		}
	}, parallel.DefaultConfig())
	return out
}

// sample reads plane at the continuous position (x, y).
func (s sampler) sample(plane []float32, h, w int, x, y float64) float32 {
	x = mapCoord(x, w, s.fill)
	y = mapCoord(y, h, s.fill)
	if s.interp == Nearest {
		return s.read(plane, h, w, int(math.Round(y)), int(math.Round(x)))
	}
	x0, y0 := math.Floor(x), math.Floor(y)
	dx, dy := float32(x-x0), float32(y-y0)
	ix, iy := int(x0), int(y0)
	top := s.read(plane, h, w, iy, ix)*(1-dx) + s.read(plane, h, w, iy, ix+1)*dx
	bottom := s.read(plane, h, w, iy+1, ix)*(1-dx) + s.read(plane, h, w, iy+1, ix+1)*dx
	return top*(1-dy) + bottom*dy
}

func (s sampler) read(plane []float32, h, w, y, x int) float32 {
	if s.fill == FillConstant {
		if y < 0 || y >= h || x < 0 || x >= w {
			return s.value
		}
		return plane[y*w+x]
	}
	return plane[clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1)]
}

// mapCoord folds a coordinate into [0, n-1] according to the fill mode.
// FillConstant leaves it unchanged so that reads outside the image see the fill value.
func mapCoord(v float64, n int, mode FillMode) float64 {
	size := float64(n)
	switch mode {
	case FillReflect:
		if n <= 1 {
			return 0
		}
		period := 2 * size
		if v < 0 {
			if v < -period {
				v += period * math.Trunc(-v/period)
			}
			if v < -size {
				v += period
			} else {
				v = -v - 1
			}
		} else if v > size-1 {
			v -= period * math.Trunc(v/period)
			if v >= size {
				v = period - v - 1
			}
		}
		return clamp(v, 0, size-1)
	case FillWrap:
		if n <= 1 {
			return 0
		}
		v = math.Mod(v, size)
		if v < 0 {
			v += size
		}
		return clamp(v, 0, size-1)
	case FillNearest:
		return clamp(v, 0, size-1)
	default:
		return v
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
