package tensor

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// Zeros creates a tensor filled with zeros.
//
// Panics if the shape is invalid; shapes are expected to be validated by callers.
//
// Example:
//
//	t := tensor.Zeros(tensor.Shape{3, 4})
func Zeros(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	return &Tensor{shape: shape.Clone(), data: make([]float64, shape.NumElements())}
}

// ZerosLike creates a zero tensor with the shape of t.
func ZerosLike(t *Tensor) *Tensor {
	return Zeros(t.shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// FromSlice creates a tensor from a copy of data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	buf := make([]float64, len(data))
	copy(buf, data)
	return New(shape, buf)
}

// FromRows creates a rank 2 tensor from equally sized rows.
//
// Example:
//
//	x, err := tensor.FromRows([][]float64{{1, 2}, {3, 4}}) // shape [2, 2]
func FromRows(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("FromRows: empty input")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.Wrapf(ErrShapeMismatch, "FromRows: row %d has %d columns, row 0 has %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return New(Shape{len(rows), cols}, data)
}

// MustFromRows is FromRows that panics on error. Meant for tests and literals.
func MustFromRows(rows [][]float64) *Tensor {
	t, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Uniform creates a tensor with values drawn from U(low, high) using src.
func Uniform(shape Shape, low, high float64, src rand.Source) *Tensor {
	t := Zeros(shape)
	dist := distuv.Uniform{Min: low, Max: high, Src: src}
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}

// Normal creates a tensor with values drawn from N(mu, sigma²) using src.
func Normal(shape Shape, mu, sigma float64, src rand.Source) *Tensor {
	t := Zeros(shape)
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}

// Xavier (Glorot) uniform initialization.
//
// Values are drawn from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))), where
// fan_in and fan_out are the first and last dimensions of shape.
func Xavier(shape Shape, src rand.Source) *Tensor {
	fanIn, fanOut := shape[0], shape[len(shape)-1]
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return Uniform(shape, -bound, bound, src)
}
