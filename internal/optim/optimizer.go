// Package optim implements the optimizers used to train the classification
// head.
//
// Only the head is ever optimized: the classifier hands an optimizer the
// head's parameter list and nothing else, so the frozen extractor is out of
// scope by construction rather than by runtime flag.
//
// Example:
//
//	optimizer := optim.NewAdam(head.Parameters(), optim.AdamConfig{LR: 0.001})
//	optimizer.Step(grads)
//	optimizer.ZeroGrad()
package optim

import (
	"github.com/bloom-ml/bloom/internal/nn"
	"github.com/bloom-ml/bloom/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies one update to all managed parameters. The gradient map
	// is keyed by parameter tensor; parameters without an entry are
	// skipped.
	Step(grads map[*tensor.Tensor]*tensor.Tensor)

	// ZeroGrad clears the gradient slot of every managed parameter.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float64

	// Parameters returns the managed parameter list.
	Parameters() []*nn.Parameter
}

// gradient looks up the gradient for a parameter, returning nil when the
// parameter took no part in the last backward pass.
func gradient(param *nn.Parameter, grads map[*tensor.Tensor]*tensor.Tensor) *tensor.Tensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor()]
}
