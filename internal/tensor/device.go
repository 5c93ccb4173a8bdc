package tensor

// Device identifies where a tensor is placed.
//
// Placement is a co-location contract: an operation combining two tensors, or
// feeding a tensor through a model, requires both sides to live on the same
// device. The classifier checks this before every forward pass and fails fast
// on a mismatch instead of silently copying data across.
type Device int

const (
	// CPU is the default device for all tensors.
	CPU Device = iota
	// GPU marks tensors placed on the detected accelerator.
	GPU
)

// String returns "cpu" or "gpu".
func (d Device) String() string {
	if d == GPU {
		return "gpu"
	}
	return "cpu"
}
