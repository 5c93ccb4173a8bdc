package nn

import (
	"fmt"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// NLLLoss is the negative log-likelihood criterion.
//
// It expects log-probabilities, i.e. the output of a LogSoftmax head, and
// integer class targets. The loss is the mean of -logProbs[i, targets[i]]
// over the batch.
type NLLLoss struct{}

// NewNLLLoss creates the criterion.
func NewNLLLoss() *NLLLoss {
	return &NLLLoss{}
}

// Loss computes the mean negative log-likelihood of the targets under the
// given log-probabilities.
//
// logProbs: [batch, classes]. targets: one class index per batch row.
func (l *NLLLoss) Loss(logProbs *tensor.Tensor, targets []int) (float32, error) {
	shape := logProbs.Shape()
	if len(shape) != 2 {
		return 0, fmt.Errorf("nll loss: expected 2D log-probabilities, got shape %v", shape)
	}
	if shape[0] != len(targets) {
		return 0, fmt.Errorf("nll loss: batch size %d does not match %d targets", shape[0], len(targets))
	}
	if len(targets) == 0 {
		return 0, fmt.Errorf("nll loss: empty batch")
	}

	var sum float32
	for i, target := range targets {
		if target < 0 || target >= shape[1] {
			return 0, fmt.Errorf("nll loss: target %d out of range [0, %d) at row %d", target, shape[1], i)
		}
		sum -= logProbs.At(i, target)
	}
	return sum / float32(len(targets)), nil
}
