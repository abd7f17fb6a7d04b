package tensor

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Zeros allocates a zero-filled tensor.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return New[T](MustRaw(shape, dataTypeOf[T](), b.Device()), b)
}

// Full allocates a tensor with every element set to v.
func Full[T DType, B Backend](shape Shape, v T, b B) *Tensor[T, B] {
	t := Zeros[T](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = v
	}
	return t
}

// Ones allocates a tensor of ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T](shape, T(1), b)
}

// Sample fills a float32 tensor with draws from dist.
func Sample[B Backend](shape Shape, dist distuv.Rander, b B) *Tensor[float32, B] {
	t := Zeros[float32](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = float32(dist.Rand())
	}
	return t
}

// Uniform fills a tensor from U[lo, hi) using src. A nil src uses the global source.
func Uniform[B Backend](shape Shape, lo, hi float64, src rand.Source, b B) *Tensor[float32, B] {
	return Sample(shape, distuv.Uniform{Min: lo, Max: hi, Src: src}, b)
}

// Normal fills a tensor from N(mean, std²) using src.
func Normal[B Backend](shape Shape, mean, std float64, src rand.Source, b B) *Tensor[float32, B] {
	return Sample(shape, distuv.Normal{Mu: mean, Sigma: std, Src: src}, b)
}
