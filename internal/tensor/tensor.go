// Package tensor implements the float32 tensor type underlying the Bloom
// classifier.
//
// A Tensor is a dense, row-major, float32 multi-dimensional array with an
// explicit device tag. The package provides the small set of operations the
// classifier's model graph needs (matrix multiply, broadcast add, elementwise
// math); everything model-specific lives in the nn package.
package tensor

import "fmt"

// Tensor is a dense float32 array with shape, row-major strides, and a
// placement tag.
//
// Example:
//
//	t := tensor.Zeros(tensor.Shape{3, 4})
//	t.Set(1.5, 0, 2)
//	v := t.At(0, 2)
type Tensor struct {
	shape   Shape
	strides []int
	device  Device
	data    []float32
}

// New allocates a zero-filled tensor of the given shape on the given device.
func New(shape Shape, device Device) (*Tensor, error) {
	if err := shape.validate(); err != nil {
		return nil, err
	}
	return &Tensor{
		shape:   shape.Clone(),
		strides: computeStrides(shape),
		device:  device,
		data:    make([]float32, shape.NumElements()),
	}, nil
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t, err := New(shape, CPU)
	if err != nil {
		return nil, err
	}
	copy(t.data, data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's row-major strides.
func (t *Tensor) Strides() []int {
	return t.strides
}

// Device returns the tensor's placement.
func (t *Tensor) Device() Device {
	return t.device
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the backing slice (zero-copy).
//
// WARNING: modifications to the returned slice modify the tensor.
func (t *Tensor) Data() []float32 {
	return t.data
}

// At returns the element at the given indices.
// Panics if the indices are out of bounds.
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.offset(indices)]
}

// Set writes the element at the given indices.
// Panics if the indices are out of bounds.
func (t *Tensor) Set(value float32, indices ...int) {
	t.data[t.offset(indices)] = value
}

func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for axis %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * t.strides[i]
	}
	return offset
}

// Clone returns a deep copy of the tensor on the same device.
func (t *Tensor) Clone() *Tensor {
	out := &Tensor{
		shape:   t.shape.Clone(),
		strides: computeStrides(t.shape),
		device:  t.device,
		data:    make([]float32, len(t.data)),
	}
	copy(out.data, t.data)
	return out
}

// To returns a copy of the tensor tagged with the given device. If the tensor
// is already placed there, it is returned unchanged.
func (t *Tensor) To(device Device) *Tensor {
	if t.device == device {
		return t
	}
	out := t.Clone()
	out.device = device
	return out
}

// Reshape returns a view of the tensor with a new shape. The number of
// elements must be preserved. The returned tensor shares data with t.
func (t *Tensor) Reshape(dims ...int) *Tensor {
	newShape := Shape(dims)
	if newShape.NumElements() != len(t.data) {
		panic(fmt.Sprintf("cannot reshape %v into %v", t.shape, newShape))
	}
	return &Tensor{
		shape:   newShape.Clone(),
		strides: computeStrides(newShape),
		device:  t.device,
		data:    t.data,
	}
}

// Item returns the value of a one-element tensor.
// Panics if the tensor holds more than one element.
func (t *Tensor) Item() float32 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("Item() requires a one-element tensor, got shape %v", t.shape))
	}
	return t.data[0]
}

// String formats a short description, e.g. "Tensor[3 4] cpu".
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v %s", t.shape, t.device)
}
