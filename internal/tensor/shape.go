package tensor

import (
	"fmt"
	"strings"
)

// Shape describes the dimensions of a tensor.
//
// Shapes are ordered outermost-first, matching the NCHW image layout used
// throughout the library: a batch of RGB images is Shape{N, 3, H, W}.
type Shape []int

// NumElements returns the total number of elements a tensor of this shape
// holds. The empty shape describes a scalar and has one element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i, dim := range s {
		if dim != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// String formats the shape as "[2 3 224 224]".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprintf("%d", dim)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// validate returns an error if any dimension is negative.
func (s Shape) validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("shape %v has negative dimension %d at axis %d", s, dim, i)
		}
	}
	return nil
}

// computeStrides returns row-major strides for the shape.
func computeStrides(s Shape) []int {
	strides := make([]int, len(s))
	stride := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= s[i]
	}
	return strides
}
