// Package tensor implements the dense float64 n-dimensional array used as the value type of the
// autodiff engine.
//
// Storage is a flat row-major []float64. Matrix kernels (MatMul, Transpose) delegate to
// gonum.org/v1/gonum/mat and elementwise kernels to gonum.org/v1/gonum/floats. Shapes are never
// broadcast: every binary elementwise operation requires identical shapes and fails with
// ErrShapeMismatch otherwise.
//
// Example:
//
//	x, _ := tensor.FromRows([][]float64{{1, 2}})
//	w, _ := tensor.FromRows([][]float64{{1}, {1}})
//	y, _ := x.MatMul(w) // [[3]]
package tensor

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when operand shapes are incompatible for an operation.
var ErrShapeMismatch = errors.New("shape mismatch")

// Tensor is a dense row-major float64 array.
type Tensor struct {
	shape Shape
	data  []float64
}

// New creates a tensor of the given shape backed by data (not copied).
//
// Returns an error if the shape is invalid or len(data) does not match it.
func New(shape Shape, data []float64) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, errors.Wrapf(ErrShapeMismatch, "data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Tensor{shape: shape.Clone(), data: data}, nil
}

// Shape returns the tensor shape. The returned slice must not be modified.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns the underlying row-major storage. Writes are visible to the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Item returns the single value of a one-element tensor.
func (t *Tensor) Item() float64 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("tensor.Item: tensor has %d elements, want 1", len(t.data)))
	}
	return t.data[0]
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(index ...int) float64 {
	return t.data[t.offset(index)]
}

// Set writes the element at the given multi-dimensional index.
func (t *Tensor) Set(value float64, index ...int) {
	t.data[t.offset(index)] = value
}

func (t *Tensor) offset(index []int) int {
	if len(index) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index %v has rank %d, tensor rank is %d", index, len(index), len(t.shape)))
	}
	off := 0
	for i, idx := range index {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", index, t.shape))
		}
		off = off*t.shape[i] + idx
	}
	return off
}

// Row returns a view of row i of a rank 2 tensor.
func (t *Tensor) Row(i int) []float64 {
	rows, cols, ok := t.shape.matrixDims()
	if !ok || i < 0 || i >= rows {
		panic(fmt.Sprintf("tensor.Row: row %d out of range for shape %v", i, t.shape))
	}
	return t.data[i*cols : (i+1)*cols]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// CopyFrom overwrites t's values with src's. Shapes must match.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if err := t.checkSameShape(src, "copy"); err != nil {
		return err
	}
	copy(t.data, src.data)
	return nil
}

// Zero sets every element to 0 in place.
func (t *Tensor) Zero() {
	clear(t.data)
}

// Reshape returns a tensor sharing storage with t under a new shape.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(t.data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "cannot reshape %v into %v", t.shape, shape)
	}
	return &Tensor{shape: shape.Clone(), data: t.data}, nil
}

// dense returns a gonum matrix view sharing t's storage.
func (t *Tensor) dense() (*mat.Dense, error) {
	rows, cols, ok := t.shape.matrixDims()
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "matrix operation needs rank 1 or 2, got shape %v", t.shape)
	}
	return mat.NewDense(rows, cols, t.data), nil
}

func (t *Tensor) checkSameShape(other *Tensor, op string) error {
	if !t.shape.Equal(other.shape) {
		return errors.Wrapf(ErrShapeMismatch, "%s: %v vs %v", op, t.shape, other.shape)
	}
	return nil
}

// String formats the tensor for debugging.
func (t *Tensor) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor%v", []int(t.shape))
	rows, cols, ok := t.shape.matrixDims()
	if !ok {
		fmt.Fprintf(&sb, "%v", t.data)
		return sb.String()
	}
	sb.WriteString("[")
	for i := range rows {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%v", t.data[i*cols:(i+1)*cols])
	}
	sb.WriteString("]")
	return sb.String()
}
