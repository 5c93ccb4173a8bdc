// Package nn implements the neural network building blocks for Bloom.
//
// The package provides:
//   - Module interface: base interface for all network components
//   - Parameter: named tensors with gradient slots and a freeze flag
//   - Layers: Linear, Conv2d, MaxPool2d, AdaptiveAvgPool2d, BatchNorm2d,
//     ReLU, Dropout, Flatten, LogSoftmax
//   - Sequential: container for stacking layers
//
// Design follows PyTorch's nn.Module, reduced to what a frozen feature
// extractor plus a trainable classification head requires.
package nn

import (
	"github.com/bloom-ml/bloom/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules compose into larger graphs:
//
//	head := nn.NewSequential(
//	    nn.NewLinear(4096, 512),
//	    nn.NewReLU(),
//	    nn.NewDropout(0.2),
//	    nn.NewLinear(512, 102),
//	    nn.NewLogSoftmax(),
//	)
type Module interface {
	// Forward computes the output of the module for the given input.
	// Layers panic on inputs whose shape cannot be processed; shape
	// errors are programmer errors, not runtime conditions.
	Forward(input *tensor.Tensor) *tensor.Tensor

	// Parameters returns all trainable-capable parameters of this module,
	// including those of nested modules. Stateless modules return nil.
	Parameters() []*Parameter

	// StateDict returns a map of parameter (and buffer) names to tensors.
	// Stateless modules return nil.
	StateDict() map[string]*tensor.Tensor

	// LoadStateDict loads parameters from a state dictionary produced by
	// StateDict. Stateless modules ignore the call.
	LoadStateDict(stateDict map[string]*tensor.Tensor) error
}

// modeAware is implemented by modules whose forward pass differs between
// training and evaluation (Dropout). Sequential propagates the mode.
type modeAware interface {
	SetTraining(training bool)
}

// SetTraining switches a module (and, through Sequential, its children)
// between training and evaluation behavior.
func SetTraining(m Module, training bool) {
	if ma, ok := m.(modeAware); ok {
		ma.SetTraining(training)
	}
}

// Freeze marks every parameter of the module as frozen. Frozen parameters
// report Trainable() == false and must never be handed to an optimizer.
//
// Freezing is one-way: the pre-trained extractor is frozen at construction
// and there is no unfreeze.
func Freeze(m Module) {
	for _, p := range m.Parameters() {
		p.freeze()
	}
}

// NumElements sums the element counts of a parameter list.
func NumElements(params []*Parameter) int {
	n := 0
	for _, p := range params {
		n += p.Tensor().NumElements()
	}
	return n
}
