package optim_test

import (
	"math"
	"testing"

	"github.com/bloom-ml/bloom/internal/nn"
	"github.com/bloom-ml/bloom/internal/optim"
	"github.com/bloom-ml/bloom/internal/tensor"
)

// Helper to check float equality with tolerance.
func floatEqual(a, b, eps float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < eps
}

func gradsFor(param *nn.Parameter, values []float32) map[*tensor.Tensor]*tensor.Tensor {
	grad, _ := tensor.FromSlice(values, param.Tensor().Shape())
	return map[*tensor.Tensor]*tensor.Tensor{param.Tensor(): grad}
}

func TestSGD_SimpleUpdate(t *testing.T) {
	x, _ := tensor.FromSlice([]float32{2.0}, tensor.Shape{1})
	param := nn.NewParameter("x", x)

	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})
	optimizer.Step(gradsFor(param, []float32{1.0}))

	// x_new = 2.0 - 0.1 * 1.0 = 1.9
	if got := param.Tensor().Data()[0]; !floatEqual(got, 1.9, 1e-6) {
		t.Errorf("SGD update: got %f, want 1.9", got)
	}
}

func TestSGD_Momentum(t *testing.T) {
	x, _ := tensor.FromSlice([]float32{0}, tensor.Shape{1})
	param := nn.NewParameter("x", x)

	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// Two steps with constant gradient 1:
	// step1: buf=1,   x = -0.1
	// step2: buf=1.9, x = -0.1 - 0.19 = -0.29
	optimizer.Step(gradsFor(param, []float32{1}))
	optimizer.Step(gradsFor(param, []float32{1}))

	if got := param.Tensor().Data()[0]; !floatEqual(got, -0.29, 1e-6) {
		t.Errorf("SGD momentum: got %f, want -0.29", got)
	}
}

func TestAdam_FirstStep(t *testing.T) {
	x, _ := tensor.FromSlice([]float32{1.0}, tensor.Shape{1})
	param := nn.NewParameter("x", x)

	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.001})
	optimizer.Step(gradsFor(param, []float32{0.5}))

	// On the first step, bias correction makes m_hat == g and v_hat == g^2,
	// so the update is ~ -lr * g/|g| = -lr.
	expected := 1.0 - 0.001*0.5/(math.Sqrt(0.25)+1e-8)
	if got := param.Tensor().Data()[0]; !floatEqual(got, float32(expected), 1e-6) {
		t.Errorf("Adam first step: got %f, want %f", got, expected)
	}
}

func TestAdam_Defaults(t *testing.T) {
	optimizer := optim.NewAdam(nil, optim.AdamConfig{})
	if optimizer.LR() != 0.001 {
		t.Errorf("default LR = %f, want 0.001", optimizer.LR())
	}
}

func TestAdam_SkipsParamsWithoutGradient(t *testing.T) {
	x, _ := tensor.FromSlice([]float32{3.0}, tensor.Shape{1})
	param := nn.NewParameter("x", x)

	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{})
	optimizer.Step(map[*tensor.Tensor]*tensor.Tensor{})

	if got := param.Tensor().Data()[0]; got != 3.0 {
		t.Errorf("parameter without gradient changed: %f", got)
	}
}

func TestZeroGrad(t *testing.T) {
	x, _ := tensor.FromSlice([]float32{1}, tensor.Shape{1})
	param := nn.NewParameter("x", x)
	grad, _ := tensor.FromSlice([]float32{1}, tensor.Shape{1})
	param.SetGrad(grad)

	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{})
	optimizer.ZeroGrad()

	if param.Grad() != nil {
		t.Error("ZeroGrad should clear parameter gradients")
	}
}
