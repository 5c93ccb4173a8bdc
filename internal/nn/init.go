package nn

import (
	"math"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// Xavier returns a tensor initialized with the Xavier/Glorot uniform
// distribution: U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
//
// This keeps activation variance roughly constant across layers and is the
// default initialization for Linear and Conv2d weights.
func Xavier(fanIn, fanOut int, shape tensor.Shape) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.Uniform(shape, bound)
}

// Zeros returns a zero-filled tensor, used for bias initialization.
func Zeros(shape tensor.Shape) *tensor.Tensor {
	return tensor.Zeros(shape)
}

// Ones returns a tensor of ones, used for batch-norm scale initialization.
func Ones(shape tensor.Shape) *tensor.Tensor {
	return tensor.Ones(shape)
}
