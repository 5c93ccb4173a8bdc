package nn_test

import (
	"testing"

	"github.com/bloom-ml/bloom/internal/nn"
	"github.com/bloom-ml/bloom/internal/tensor"
)

func TestConv2d_KnownValues(t *testing.T) {
	// 1 input channel, 1 filter, 2x2 kernel, stride 1, no padding.
	conv := nn.NewConv2d(1, 1, 2, 1, 0)
	sd := conv.StateDict()
	copy(sd["weight"].Data(), []float32{1, 0, 0, 1}) // identity-corner kernel
	copy(sd["bias"].Data(), []float32{10})

	input, _ := tensor.FromSlice([]float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, tensor.Shape{1, 1, 3, 3})

	out := conv.Forward(input)

	if !out.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("output shape = %v, want [1 1 2 2]", out.Shape())
	}
	// Each output = top-left + bottom-right + bias.
	want := []float32{1 + 5 + 10, 2 + 6 + 10, 4 + 8 + 10, 5 + 9 + 10}
	for i, v := range out.Data() {
		if !floatEqual(v, want[i], 1e-5) {
			t.Errorf("out[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestConv2d_PaddingKeepsSize(t *testing.T) {
	conv := nn.NewConv2d(3, 8, 3, 1, 1)
	input := tensor.Randn(tensor.Shape{2, 3, 16, 16})

	out := conv.Forward(input)
	if !out.Shape().Equal(tensor.Shape{2, 8, 16, 16}) {
		t.Errorf("output shape = %v, want [2 8 16 16]", out.Shape())
	}
	if conv.OutChannels() != 8 {
		t.Errorf("OutChannels() = %d, want 8", conv.OutChannels())
	}
}

func TestLayers_KeepInputDevice(t *testing.T) {
	input := tensor.Randn(tensor.Shape{1, 3, 8, 8}).To(tensor.GPU)

	layers := []struct {
		name   string
		module nn.Module
	}{
		{"conv2d", nn.NewConv2d(3, 4, 3, 1, 1)},
		{"maxpool2d", nn.NewMaxPool2d(2, 2, 0)},
		{"adaptiveavgpool2d", nn.NewAdaptiveAvgPool2d(2, 2)},
	}
	for _, l := range layers {
		if got := l.module.Forward(input).Device(); got != tensor.GPU {
			t.Errorf("%s output device = %s, want gpu", l.name, got)
		}
	}
}

func TestMaxPool2d(t *testing.T) {
	pool := nn.NewMaxPool2d(2, 2, 0)
	input, _ := tensor.FromSlice([]float32{
		1, 2, 5, 6,
		3, 4, 7, 8,
		-1, -2, 0, 0,
		-3, -4, 0, 9,
	}, tensor.Shape{1, 1, 4, 4})

	out := pool.Forward(input)

	if !out.Shape().Equal(tensor.Shape{1, 1, 2, 2}) {
		t.Fatalf("output shape = %v, want [1 1 2 2]", out.Shape())
	}
	want := []float32{4, 8, -1, 9}
	for i, v := range out.Data() {
		if v != want[i] {
			t.Errorf("out[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestAdaptiveAvgPool2d(t *testing.T) {
	pool := nn.NewAdaptiveAvgPool2d(1, 1)
	input, _ := tensor.FromSlice([]float32{
		1, 2,
		3, 4,

		10, 20,
		30, 40,
	}, tensor.Shape{1, 2, 2, 2})

	out := pool.Forward(input)

	if !out.Shape().Equal(tensor.Shape{1, 2, 1, 1}) {
		t.Fatalf("output shape = %v, want [1 2 1 1]", out.Shape())
	}
	if !floatEqual(out.Data()[0], 2.5, 1e-5) || !floatEqual(out.Data()[1], 25, 1e-4) {
		t.Errorf("averages = %v, want [2.5 25]", out.Data())
	}
}

func TestBatchNorm2d_Identity(t *testing.T) {
	// Fresh layer carries identity statistics: output ~= input.
	bn := nn.NewBatchNorm2d(2)
	input := tensor.Randn(tensor.Shape{1, 2, 3, 3})

	out := bn.Forward(input)
	for i := range input.Data() {
		if !floatEqual(out.Data()[i], input.Data()[i], 1e-3) {
			t.Fatalf("identity batchnorm changed value: %f -> %f", input.Data()[i], out.Data()[i])
		}
	}
}

func TestBatchNorm2d_Normalizes(t *testing.T) {
	bn := nn.NewBatchNorm2d(1)
	sd := bn.StateDict()
	copy(sd["running_mean"].Data(), []float32{2})
	copy(sd["running_var"].Data(), []float32{4})

	input, _ := tensor.FromSlice([]float32{2, 4, 0, 6}, tensor.Shape{1, 1, 2, 2})
	out := bn.Forward(input)

	// (x - 2) / sqrt(4 + eps)
	want := []float32{0, 1, -1, 2}
	for i, v := range out.Data() {
		if !floatEqual(v, want[i], 1e-3) {
			t.Errorf("out[%d] = %f, want %f", i, v, want[i])
		}
	}
}
