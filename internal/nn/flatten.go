package nn

import (
	"github.com/bloom-ml/bloom/internal/tensor"
)

// Flatten collapses all dimensions after the batch dimension.
//
// [N, C, H, W] becomes [N, C*H*W]. Used between the convolutional trunk and
// the fully connected part of an extractor.
type Flatten struct{}

// NewFlatten creates a Flatten module.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Forward reshapes [N, d1, d2, ...] to [N, d1*d2*...].
func (f *Flatten) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) < 2 {
		panic("flatten: expected at least 2D input")
	}
	return input.Reshape(shape[0], input.NumElements()/shape[0])
}

// Parameters returns nil; Flatten has no parameters.
func (f *Flatten) Parameters() []*Parameter { return nil }

// StateDict returns nil; Flatten is stateless.
func (f *Flatten) StateDict() map[string]*tensor.Tensor { return nil }

// LoadStateDict is a no-op for Flatten.
func (f *Flatten) LoadStateDict(map[string]*tensor.Tensor) error { return nil }
