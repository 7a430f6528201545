package tensor

import (
	"math"

	"github.com/pkg/errors"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid: all dimensions > 0 and an element count that fits in
// an int.
func (s Shape) Validate() error {
	n := 1
	for i, dim := range s {
		if dim <= 0 {
			return errors.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
		if n > math.MaxInt/dim {
			return errors.Errorf("shape %v: element count overflows int", []int(s))
		}
		n *= dim
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// matrixDims returns the (rows, cols) view of a shape used by matrix kernels.
// Rank 1 shapes are treated as a single row.
func (s Shape) matrixDims() (rows, cols int, ok bool) {
	switch len(s) {
	case 1:
		return 1, s[0], true
	case 2:
		return s[0], s[1], true
	default:
		return 0, 0, false
	}
}
