package tensor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Add returns t + other elementwise. Shapes must be equal.
func (t *Tensor) Add(other *Tensor) (*Tensor, error) {
	if err := t.checkSameShape(other, "add"); err != nil {
		return nil, err
	}
	out := ZerosLike(t)
	floats.AddTo(out.data, t.data, other.data)
	return out, nil
}

// Sub returns t - other elementwise. Shapes must be equal.
func (t *Tensor) Sub(other *Tensor) (*Tensor, error) {
	if err := t.checkSameShape(other, "sub"); err != nil {
		return nil, err
	}
	out := ZerosLike(t)
	floats.SubTo(out.data, t.data, other.data)
	return out, nil
}

// Mul returns t ⊙ other (Hadamard product). Shapes must be equal.
func (t *Tensor) Mul(other *Tensor) (*Tensor, error) {
	if err := t.checkSameShape(other, "mul"); err != nil {
		return nil, err
	}
	out := ZerosLike(t)
	floats.MulTo(out.data, t.data, other.data)
	return out, nil
}

// AddInPlace accumulates other into t (t += other). Shapes must be equal.
func (t *Tensor) AddInPlace(other *Tensor) error {
	if err := t.checkSameShape(other, "accumulate"); err != nil {
		return err
	}
	floats.Add(t.data, other.data)
	return nil
}

// AddScaledInPlace computes t += alpha * other. Shapes must be equal.
func (t *Tensor) AddScaledInPlace(alpha float64, other *Tensor) error {
	if err := t.checkSameShape(other, "axpy"); err != nil {
		return err
	}
	floats.AddScaled(t.data, alpha, other.data)
	return nil
}

// Scale returns alpha * t.
func (t *Tensor) Scale(alpha float64) *Tensor {
	out := t.Clone()
	floats.Scale(alpha, out.data)
	return out
}

// Apply returns a tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := ZerosLike(t)
	for i, v := range t.data {
		out.data[i] = fn(v)
	}
	return out
}

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.data)
}

// MatMul returns the matrix product t·other.
//
// Both operands must be rank 2 and t's column count must equal other's row count.
func (t *Tensor) MatMul(other *Tensor) (*Tensor, error) {
	if t.Rank() != 2 || other.Rank() != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "matmul needs rank 2 operands, got %v and %v", t.shape, other.shape)
	}
	if t.shape[1] != other.shape[0] {
		return nil, errors.Wrapf(ErrShapeMismatch, "matmul: %v · %v (inner dimensions %d != %d)",
			t.shape, other.shape, t.shape[1], other.shape[0])
	}
	a, _ := t.dense()
	b, _ := other.dense()
	out := Zeros(Shape{t.shape[0], other.shape[1]})
	dst := mat.NewDense(t.shape[0], other.shape[1], out.data)
	dst.Mul(a, b)
	return out, nil
}

// Transpose returns the transpose of a rank 2 tensor as a new contiguous tensor.
func (t *Tensor) Transpose() (*Tensor, error) {
	if t.Rank() != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "transpose needs rank 2, got %v", t.shape)
	}
	m, _ := t.dense()
	out := Zeros(Shape{t.shape[1], t.shape[0]})
	dst := mat.NewDense(t.shape[1], t.shape[0], out.data)
	dst.Copy(m.T())
	return out, nil
}

// SumRows sums a rank 2 tensor over its rows (axis 0), returning shape [cols].
func (t *Tensor) SumRows() (*Tensor, error) {
	if t.Rank() != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "sum over rows needs rank 2, got %v", t.shape)
	}
	out := Zeros(Shape{t.shape[1]})
	for i := range t.shape[0] {
		floats.Add(out.data, t.Row(i))
	}
	return out, nil
}

// AddRowVector returns t with the rank 1 vector v added to every row of the rank 2 tensor t.
func (t *Tensor) AddRowVector(v *Tensor) (*Tensor, error) {
	if t.Rank() != 2 || v.Rank() != 1 || t.shape[1] != v.shape[0] {
		return nil, errors.Wrapf(ErrShapeMismatch, "add row vector: %v + %v", t.shape, v.shape)
	}
	out := t.Clone()
	for i := range t.shape[0] {
		floats.Add(out.Row(i), v.data)
	}
	return out, nil
}

// ArgMaxRows returns, for each row of a rank 2 tensor, the column index of its largest value.
func (t *Tensor) ArgMaxRows() ([]int, error) {
	if t.Rank() != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "argmax over rows needs rank 2, got %v", t.shape)
	}
	idx := make([]int, t.shape[0])
	for i := range idx {
		idx[i] = floats.MaxIdx(t.Row(i))
	}
	return idx, nil
}

// AllClose reports whether t and other have the same shape and all elements within tol.
func (t *Tensor) AllClose(other *Tensor, tol float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	return floats.EqualApprox(t.data, other.data, tol)
}
