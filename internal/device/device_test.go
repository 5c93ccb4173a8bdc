package device_test

import (
	"testing"

	"github.com/bloom-ml/bloom/internal/device"
	"github.com/bloom-ml/bloom/internal/tensor"
)

func TestDetect_CPURequested(t *testing.T) {
	// A CPU request never triggers the adapter probe and never yields GPU.
	if got := device.Detect(false); got != tensor.CPU {
		t.Errorf("Detect(false) = %v, want cpu", got)
	}
}

func TestDetect_GPURequestFallsBack(t *testing.T) {
	// The answer depends on the machine, but it must be consistent with
	// the probe and must never panic, even without a native wgpu library.
	got := device.Detect(true)
	if device.Available() {
		if got != tensor.GPU {
			t.Errorf("adapter available but Detect(true) = %v", got)
		}
		if device.AdapterName() == "" {
			t.Error("adapter available but no adapter name")
		}
	} else {
		if got != tensor.CPU {
			t.Errorf("no adapter but Detect(true) = %v", got)
		}
	}
}
