package nn

import (
	"fmt"
	"math/rand"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// Dropout randomly zeroes elements during training with probability p, and
// scales the survivors by 1/(1-p) so the expected activation is unchanged
// (inverted dropout). In evaluation mode it is the identity.
//
// Modules start in evaluation mode; SetTraining(true) activates the mask.
type Dropout struct {
	p        float64
	training bool
}

// NewDropout creates a Dropout module with drop probability p in [0, 1).
func NewDropout(p float64) *Dropout {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("dropout: probability must be in [0, 1), got %g", p))
	}
	return &Dropout{p: p}
}

// Forward applies the dropout mask in training mode, identity otherwise.
func (d *Dropout) Forward(input *tensor.Tensor) *tensor.Tensor {
	if !d.training || d.p == 0 {
		return input
	}
	out := input.Clone()
	data := out.Data()
	scale := float32(1 / (1 - d.p))
	for i := range data {
		//nolint:gosec // math/rand is fine for dropout masks
		if rand.Float64() < d.p {
			data[i] = 0
		} else {
			data[i] *= scale
		}
	}
	return out
}

// SetTraining toggles between masked (training) and identity (eval) behavior.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}

// P returns the configured drop probability.
func (d *Dropout) P() float64 {
	return d.p
}

// Training reports whether the mask is active.
func (d *Dropout) Training() bool {
	return d.training
}

// Parameters returns nil; Dropout has no parameters.
func (d *Dropout) Parameters() []*Parameter { return nil }

// StateDict returns nil; Dropout is stateless.
func (d *Dropout) StateDict() map[string]*tensor.Tensor { return nil }

// LoadStateDict is a no-op for Dropout.
func (d *Dropout) LoadStateDict(map[string]*tensor.Tensor) error { return nil }
