package nn

import (
	"fmt"
	"math"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// BatchNorm2d normalizes each channel with recorded running statistics:
//
//	y = (x - running_mean) / sqrt(running_var + eps) * weight + bias
//
// Only the inference path is implemented. The layer exists inside frozen
// pre-trained extractors (ResNet), where the running statistics were fixed
// during the original pre-training; nothing in this library updates them.
type BatchNorm2d struct {
	numFeatures int
	eps         float64

	weight *Parameter // scale (gamma), [features]
	bias   *Parameter // shift (beta), [features]

	// Running statistics are buffers, not parameters: they are loaded from
	// published weights and never optimized.
	runningMean *tensor.Tensor
	runningVar  *tensor.Tensor
}

// NewBatchNorm2d creates a BatchNorm2d over the given channel count with
// identity statistics (mean 0, var 1, weight 1, bias 0).
func NewBatchNorm2d(numFeatures int) *BatchNorm2d {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid feature count %d", numFeatures))
	}
	return &BatchNorm2d{
		numFeatures: numFeatures,
		eps:         1e-5,
		weight:      NewParameter("weight", Ones(tensor.Shape{numFeatures})),
		bias:        NewParameter("bias", Zeros(tensor.Shape{numFeatures})),
		runningMean: tensor.Zeros(tensor.Shape{numFeatures}),
		runningVar:  tensor.Ones(tensor.Shape{numFeatures}),
	}
}

// Forward normalizes [N, C, H, W] per channel.
func (bn *BatchNorm2d) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("batchnorm2d: expected 4D input [N,C,H,W], got %v", shape))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: expected %d channels, got %d", bn.numFeatures, shape[1]))
	}

	batch, channels, plane := shape[0], shape[1], shape[2]*shape[3]
	mean := bn.runningMean.Data()
	variance := bn.runningVar.Data()
	gamma := bn.weight.Tensor().Data()
	beta := bn.bias.Tensor().Data()

	out := input.Clone()
	data := out.Data()
	for n := 0; n < batch; n++ {
		for ch := 0; ch < channels; ch++ {
			scale := gamma[ch] / float32(math.Sqrt(float64(variance[ch])+bn.eps))
			shift := beta[ch] - mean[ch]*scale
			seg := data[(n*channels+ch)*plane : (n*channels+ch+1)*plane]
			for i := range seg {
				seg[i] = seg[i]*scale + shift
			}
		}
	}
	return out
}

// Parameters returns [weight, bias]. Running statistics are buffers and are
// excluded.
func (bn *BatchNorm2d) Parameters() []*Parameter {
	return []*Parameter{bn.weight, bn.bias}
}

// NumFeatures returns the channel count this layer normalizes.
func (bn *BatchNorm2d) NumFeatures() int {
	return bn.numFeatures
}

// StateDict returns parameters and running statistics.
func (bn *BatchNorm2d) StateDict() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"weight":       bn.weight.Tensor(),
		"bias":         bn.bias.Tensor(),
		"running_mean": bn.runningMean,
		"running_var":  bn.runningVar,
	}
}

// LoadStateDict copies parameters and running statistics.
func (bn *BatchNorm2d) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	for name, dst := range map[string]*tensor.Tensor{
		"weight":       bn.weight.Tensor(),
		"bias":         bn.bias.Tensor(),
		"running_mean": bn.runningMean,
		"running_var":  bn.runningVar,
	} {
		if err := loadInto(stateDict, name, dst); err != nil {
			return err
		}
	}
	return nil
}
