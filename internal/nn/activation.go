package nn

import (
	"math"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// ReLU applies the rectified linear unit elementwise: f(x) = max(0, x).
type ReLU struct{}

// NewReLU creates a ReLU activation module.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies max(0, x) elementwise.
func (r *ReLU) Forward(input *tensor.Tensor) *tensor.Tensor {
	out := input.Clone()
	data := out.Data()
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return out
}

// Parameters returns nil; ReLU has no parameters.
func (r *ReLU) Parameters() []*Parameter { return nil }

// StateDict returns nil; ReLU is stateless.
func (r *ReLU) StateDict() map[string]*tensor.Tensor { return nil }

// LoadStateDict is a no-op for ReLU.
func (r *ReLU) LoadStateDict(map[string]*tensor.Tensor) error { return nil }

// LogSoftmax applies a log-probability normalization across the class
// dimension of a [batch, classes] tensor.
//
// The output rows are logarithms of probability distributions: for every
// input row, exp(out) sums to 1. Used together with a negative-log-likelihood
// loss.
type LogSoftmax struct{}

// NewLogSoftmax creates a LogSoftmax module normalizing over dim 1.
func NewLogSoftmax() *LogSoftmax {
	return &LogSoftmax{}
}

// Forward computes log(softmax(x)) row-wise with max-subtraction for
// numerical stability.
//
// Input: [batch, classes]. Output: same shape.
func (ls *LogSoftmax) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 2 {
		panic("logsoftmax: expected 2D input [batch, classes]")
	}
	batch, classes := shape[0], shape[1]

	out := input.Clone()
	data := out.Data()
	for b := 0; b < batch; b++ {
		row := data[b*classes : (b+1)*classes]

		maxv := row[0]
		for _, v := range row[1:] {
			if v > maxv {
				maxv = v
			}
		}

		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v - maxv))
		}
		logSum := float32(math.Log(sum)) + maxv

		for i := range row {
			row[i] -= logSum
		}
	}
	return out
}

// Parameters returns nil; LogSoftmax has no parameters.
func (ls *LogSoftmax) Parameters() []*Parameter { return nil }

// StateDict returns nil; LogSoftmax is stateless.
func (ls *LogSoftmax) StateDict() map[string]*tensor.Tensor { return nil }

// LoadStateDict is a no-op for LogSoftmax.
func (ls *LogSoftmax) LoadStateDict(map[string]*tensor.Tensor) error { return nil }
