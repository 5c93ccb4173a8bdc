package tensor

import (
	"math/rand"
)

// Zeros returns a zero-filled CPU tensor.
func Zeros(shape Shape) *Tensor {
	t, err := New(shape, CPU)
	if err != nil {
		panic(err)
	}
	return t
}

// ZerosOn returns a zero-filled tensor placed on the given device. Layers
// allocating fresh outputs use it to keep the result co-located with the
// input.
func ZerosOn(shape Shape, device Device) *Tensor {
	t, err := New(shape, device)
	if err != nil {
		panic(err)
	}
	return t
}

// Ones returns a CPU tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full returns a CPU tensor filled with the given value.
func Full(shape Shape, value float32) *Tensor {
	t := Zeros(shape)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn returns a CPU tensor with values drawn from N(0, 1).
func Randn(shape Shape) *Tensor {
	t := Zeros(shape)
	data := t.Data()
	for i := range data {
		//nolint:gosec // math/rand is fine for weight initialization
		data[i] = float32(rand.NormFloat64())
	}
	return t
}

// Rand returns a CPU tensor with values drawn uniformly from [0, 1).
func Rand(shape Shape) *Tensor {
	t := Zeros(shape)
	data := t.Data()
	for i := range data {
		//nolint:gosec // math/rand is fine for weight initialization
		data[i] = rand.Float32()
	}
	return t
}

// Uniform returns a CPU tensor with values drawn uniformly from [-bound, bound].
func Uniform(shape Shape, bound float64) *Tensor {
	t := Zeros(shape)
	data := t.Data()
	for i := range data {
		//nolint:gosec // math/rand is fine for weight initialization
		data[i] = float32((rand.Float64()*2 - 1) * bound)
	}
	return t
}

// Linspace returns a 1-D CPU tensor of n evenly spaced values in [start, end].
func Linspace(start, end float64, n int) *Tensor {
	t := Zeros(Shape{n})
	if n == 1 {
		t.Data()[0] = float32(start)
		return t
	}
	step := (end - start) / float64(n-1)
	data := t.Data()
	for i := range data {
		data[i] = float32(start + float64(i)*step)
	}
	// Pin the endpoint against accumulated float error.
	data[n-1] = float32(end)
	return t
}
