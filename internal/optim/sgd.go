package optim

import (
	"github.com/bloom-ml/bloom/internal/nn"
	"github.com/bloom-ml/bloom/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Without momentum: param = param - lr * g.
// With momentum:    buf = momentum * buf + g; param = param - lr * buf.
type SGD struct {
	params   []*nn.Parameter
	lr       float64
	momentum float64

	velocity map[*nn.Parameter][]float32
}

// SGDConfig configures an SGD optimizer. A zero LR selects 0.01; momentum 0
// disables the velocity buffer.
type SGDConfig struct {
	LR       float64
	Momentum float64
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		velocity: make(map[*nn.Parameter][]float32),
	}
}

// Step applies one SGD update to every parameter with a gradient.
func (s *SGD) Step(grads map[*tensor.Tensor]*tensor.Tensor) {
	for _, param := range s.params {
		grad := gradient(param, grads)
		if grad == nil {
			continue
		}

		data := param.Tensor().Data()
		gradData := grad.Data()

		if s.momentum == 0 {
			for i := range data {
				data[i] -= float32(s.lr) * gradData[i]
			}
			continue
		}

		buf, ok := s.velocity[param]
		if !ok {
			buf = make([]float32, len(data))
			s.velocity[param] = buf
		}
		for i := range data {
			buf[i] = float32(s.momentum)*buf[i] + gradData[i]
			data[i] -= float32(s.lr) * buf[i]
		}
	}
}

// ZeroGrad clears all parameter gradients.
func (s *SGD) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// LR returns the learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// Parameters returns the managed parameters.
func (s *SGD) Parameters() []*nn.Parameter {
	return s.params
}
