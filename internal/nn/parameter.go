package nn

import (
	"github.com/bloom-ml/bloom/internal/tensor"
)

// Parameter is a named tensor that may be optimized during training.
//
// A parameter is either trainable (the classification head) or frozen (the
// pre-trained feature extractor). The gradient slot is populated by whoever
// drives training; construction leaves it nil.
type Parameter struct {
	name   string
	tensor *tensor.Tensor
	grad   *tensor.Tensor
	frozen bool
}

// NewParameter creates a trainable parameter wrapping the given tensor.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name (e.g. "weight", "bias").
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before any backward pass.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// SetGrad stores a gradient tensor.
func (p *Parameter) SetGrad(grad *tensor.Tensor) {
	p.grad = grad
}

// ZeroGrad clears the gradient slot.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}

// Trainable reports whether the parameter participates in optimization.
func (p *Parameter) Trainable() bool {
	return !p.frozen
}

func (p *Parameter) freeze() {
	p.frozen = true
}
