// Package device decides where the classifier places its model and batches.
//
// The UseGPU configuration flag is a request, not a guarantee: GPU placement
// is granted only when a WebGPU adapter can actually be acquired on this
// machine. Detection is done once per process and cached, since adapter
// enumeration is comparatively expensive.
package device

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/bloom-ml/bloom/internal/tensor"
)

var (
	probeOnce sync.Once
	probeOK   bool
	probeName string
)

// Detect resolves the UseGPU flag to a concrete device. When useGPU is false
// the answer is always CPU; when true, the WebGPU adapter probe decides.
func Detect(useGPU bool) tensor.Device {
	if !useGPU {
		return tensor.CPU
	}
	if Available() {
		return tensor.GPU
	}
	return tensor.CPU
}

// Available reports whether a WebGPU adapter can be acquired.
func Available() bool {
	probeOnce.Do(probe)
	return probeOK
}

// AdapterName returns the detected adapter's name, or "" when no adapter is
// available.
func AdapterName() string {
	probeOnce.Do(probe)
	return probeName
}

// probe attempts to acquire a high-performance adapter. A missing native
// wgpu library panics inside the bindings, so the probe recovers and treats
// that as "no accelerator".
func probe() {
	defer func() {
		if r := recover(); r != nil {
			probeOK = false
			probeName = ""
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil || instance == nil {
		return
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil || adapter == nil {
		return
	}
	defer adapter.Release()

	info, err := adapter.GetInfo()
	if err != nil || info == nil {
		return
	}
	probeOK = true
	probeName = fmt.Sprintf("%s (%v)", info.Device, info.BackendType)
}
