package nn_test

import (
	"math"
	"testing"

	"github.com/bloom-ml/bloom/internal/nn"
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

func TestParameter(t *testing.T) {
	data, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3})
	param := nn.NewParameter("weight", data)

	if param.Name() != "weight" {
		t.Errorf("Name() = %s, want weight", param.Name())
	}
	if param.Tensor() != data {
		t.Error("Tensor() should return the wrapped tensor")
	}
	if !param.Trainable() {
		t.Error("new parameters must be trainable")
	}
	if param.Grad() != nil {
		t.Error("Grad() should initially be nil")
	}

	grad, _ := tensor.FromSlice([]float32{0.1, 0.2, 0.3}, tensor.Shape{3})
	param.SetGrad(grad)
	if param.Grad() != grad {
		t.Error("SetGrad() should store the gradient")
	}
	param.ZeroGrad()
	if param.Grad() != nil {
		t.Error("ZeroGrad() should clear the gradient")
	}
}

func TestLinear_Creation(t *testing.T) {
	layer := nn.NewLinear(10, 5)

	if layer.InFeatures() != 10 || layer.OutFeatures() != 5 {
		t.Errorf("features = (%d, %d), want (10, 5)", layer.InFeatures(), layer.OutFeatures())
	}
	if !layer.Weight().Tensor().Shape().Equal(tensor.Shape{5, 10}) {
		t.Errorf("weight shape = %v, want [5 10]", layer.Weight().Tensor().Shape())
	}
	if !layer.Bias().Tensor().Shape().Equal(tensor.Shape{5}) {
		t.Errorf("bias shape = %v, want [5]", layer.Bias().Tensor().Shape())
	}
	for i, v := range layer.Bias().Tensor().Data() {
		if v != 0 {
			t.Errorf("bias[%d] = %f, want 0", i, v)
		}
	}
	if len(layer.Parameters()) != 2 {
		t.Errorf("Parameters() length = %d, want 2", len(layer.Parameters()))
	}
}

func TestLinear_Forward(t *testing.T) {
	layer := nn.NewLinear(2, 2)

	// Fix weights to known values: W = [[1, 2], [3, 4]], b = [0.5, -0.5].
	copy(layer.Weight().Tensor().Data(), []float32{1, 2, 3, 4})
	copy(layer.Bias().Tensor().Data(), []float32{0.5, -0.5})

	input, _ := tensor.FromSlice([]float32{1, 1}, tensor.Shape{1, 2})
	out := layer.Forward(input)

	// y = x @ W.T + b = [1+2+0.5, 3+4-0.5] = [3.5, 6.5]
	want := []float32{3.5, 6.5}
	for i, v := range out.Data() {
		if !floatEqual(v, want[i], 1e-5) {
			t.Errorf("Forward data[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestFreeze(t *testing.T) {
	layer := nn.NewLinear(4, 2)
	nn.Freeze(layer)

	for _, p := range layer.Parameters() {
		if p.Trainable() {
			t.Errorf("parameter %s still trainable after Freeze", p.Name())
		}
	}
}

func TestNumElements(t *testing.T) {
	layer := nn.NewLinear(4, 2)
	// weight 4*2 + bias 2
	if got := nn.NumElements(layer.Parameters()); got != 10 {
		t.Errorf("NumElements = %d, want 10", got)
	}
}

func TestLogSoftmax_RowsAreDistributions(t *testing.T) {
	ls := nn.NewLogSoftmax()
	input, _ := tensor.FromSlice([]float32{1, 2, 3, -5, 0, 5}, tensor.Shape{2, 3})

	out := ls.Forward(input)

	for row := 0; row < 2; row++ {
		var sum float64
		for col := 0; col < 3; col++ {
			sum += math.Exp(float64(out.At(row, col)))
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("row %d: exp-sum = %f, want 1", row, sum)
		}
	}

	// Order must be preserved: larger logits give larger log-probs.
	if out.At(0, 0) >= out.At(0, 2) {
		t.Error("logsoftmax must preserve ordering")
	}
}

func TestDropout_EvalIsIdentity(t *testing.T) {
	d := nn.NewDropout(0.5)
	input := tensor.Randn(tensor.Shape{4, 8})

	out := d.Forward(input)
	if out != input {
		t.Error("eval-mode dropout should return its input")
	}
}

func TestDropout_TrainingMasks(t *testing.T) {
	d := nn.NewDropout(0.5)
	d.SetTraining(true)

	input := tensor.Ones(tensor.Shape{100, 100})
	out := d.Forward(input)

	zeros := 0
	for _, v := range out.Data() {
		if v == 0 {
			zeros++
		} else if !floatEqual(v, 2, 1e-5) {
			t.Fatalf("surviving element = %f, want 2 (1/(1-p) scaling)", v)
		}
	}
	// With p=0.5 over 10k elements, zero count far from 0 or 10k.
	if zeros == 0 || zeros == input.NumElements() {
		t.Errorf("dropout zeroed %d of %d elements", zeros, input.NumElements())
	}
}

func TestDropout_InvalidProbability(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for p >= 1")
		}
	}()
	nn.NewDropout(1.0)
}

func TestSequential_ForwardAndParameters(t *testing.T) {
	seq := nn.NewSequential(
		nn.NewLinear(4, 3),
		nn.NewReLU(),
		nn.NewLinear(3, 2),
	)

	if seq.Len() != 3 {
		t.Errorf("Len() = %d, want 3", seq.Len())
	}
	if len(seq.Parameters()) != 4 {
		t.Errorf("Parameters() length = %d, want 4", len(seq.Parameters()))
	}

	input := tensor.Randn(tensor.Shape{2, 4})
	out := seq.Forward(input)
	if !out.Shape().Equal(tensor.Shape{2, 2}) {
		t.Errorf("output shape = %v, want [2 2]", out.Shape())
	}
}

func TestSequential_StateDictRoundTrip(t *testing.T) {
	src := nn.NewSequential(nn.NewLinear(3, 2), nn.NewReLU(), nn.NewLinear(2, 1))
	dst := nn.NewSequential(nn.NewLinear(3, 2), nn.NewReLU(), nn.NewLinear(2, 1))

	if err := dst.LoadStateDict(src.StateDict()); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	input := tensor.Randn(tensor.Shape{1, 3})
	a, b := src.Forward(input), dst.Forward(input)
	for i := range a.Data() {
		if !floatEqual(a.Data()[i], b.Data()[i], 1e-6) {
			t.Fatalf("outputs differ after state dict load: %f != %f", a.Data()[i], b.Data()[i])
		}
	}
}

func TestSequential_LoadStateDict_ShapeMismatch(t *testing.T) {
	src := nn.NewSequential(nn.NewLinear(3, 2))
	dst := nn.NewSequential(nn.NewLinear(3, 4))

	if err := dst.LoadStateDict(src.StateDict()); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestNLLLoss(t *testing.T) {
	criterion := nn.NewNLLLoss()

	logProbs, _ := tensor.FromSlice([]float32{-0.5, -1.5, -2.0, -0.1}, tensor.Shape{2, 2})
	loss, err := criterion.Loss(logProbs, []int{0, 1})
	if err != nil {
		t.Fatalf("Loss: %v", err)
	}
	// mean(0.5, 0.1) = 0.3
	if !floatEqual(loss, 0.3, 1e-5) {
		t.Errorf("loss = %f, want 0.3", loss)
	}

	if _, err := criterion.Loss(logProbs, []int{0, 5}); err == nil {
		t.Error("expected error for out-of-range target")
	}
	if _, err := criterion.Loss(logProbs, []int{0}); err == nil {
		t.Error("expected error for target count mismatch")
	}

	empty := tensor.Zeros(tensor.Shape{0, 2})
	if _, err := criterion.Loss(empty, nil); err == nil {
		t.Error("expected error for empty batch")
	}
}
