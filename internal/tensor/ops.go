package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MatMul computes the matrix product of two 2-D tensors.
//
// [m, k] @ [k, n] = [m, n]. The multiply is delegated to gonum's dense
// matrix kernel; data is widened to float64 for the product and narrowed
// back on the way out.
//
// Panics if either tensor is not 2-D or the inner dimensions disagree.
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	a, b := t.shape, other.shape
	if len(a) != 2 || len(b) != 2 {
		panic(fmt.Sprintf("MatMul: expected 2D tensors, got %v and %v", a, b))
	}
	if a[1] != b[0] {
		panic(fmt.Sprintf("MatMul: inner dimensions disagree: %v @ %v", a, b))
	}

	left := mat.NewDense(a[0], a[1], widen(t.data))
	right := mat.NewDense(b[0], b[1], widen(other.data))

	var product mat.Dense
	product.Mul(left, right)

	out := Zeros(Shape{a[0], b[1]})
	out.device = t.device
	narrow(product.RawMatrix().Data, out.data)
	return out
}

// Transpose returns the transpose of a 2-D tensor as a new tensor.
func (t *Tensor) Transpose() *Tensor {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("Transpose: expected 2D tensor, got %v", t.shape))
	}
	rows, cols := t.shape[0], t.shape[1]
	out := Zeros(Shape{cols, rows})
	out.device = t.device
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.data[c*rows+r] = t.data[r*cols+c]
		}
	}
	return out
}

// Add returns the elementwise sum of two tensors.
//
// Shapes must either match exactly, or other must be broadcastable as a row
// vector: adding [n] or [1, n] to [m, n] adds the vector to every row. This
// covers the bias-add in linear layers.
func (t *Tensor) Add(other *Tensor) *Tensor {
	out := t.Clone()
	switch {
	case t.shape.Equal(other.shape):
		for i, v := range other.data {
			out.data[i] += v
		}
	case len(t.shape) == 2 && broadcastableRow(t.shape, other.shape):
		cols := t.shape[1]
		for i := range out.data {
			out.data[i] += other.data[i%cols]
		}
	default:
		panic(fmt.Sprintf("Add: incompatible shapes %v and %v", t.shape, other.shape))
	}
	return out
}

// MulScalar returns the tensor scaled by a constant.
func (t *Tensor) MulScalar(s float32) *Tensor {
	out := t.Clone()
	for i := range out.data {
		out.data[i] *= s
	}
	return out
}

// AddScalar returns the tensor shifted by a constant.
func (t *Tensor) AddScalar(s float32) *Tensor {
	out := t.Clone()
	for i := range out.data {
		out.data[i] += s
	}
	return out
}

// broadcastableRow reports whether vec is a [n] or [1, n] vector matching the
// trailing dimension of the 2-D shape m.
func broadcastableRow(m, vec Shape) bool {
	switch len(vec) {
	case 1:
		return vec[0] == m[1]
	case 2:
		return vec[0] == 1 && vec[1] == m[1]
	}
	return false
}

func widen(src []float32) []float64 {
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

func narrow(src []float64, dst []float32) {
	for i, v := range src {
		dst[i] = float32(v)
	}
}
