// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float64 tensors used by minigrad.
//
// Tensors are row-major, carry their shape and are mutated in place by optimizers. The
// package is intentionally small: element-wise arithmetic, matrix products and the row
// reductions needed by classification losses.
//
// Example:
//
//	x := tensor.MustFromRows([][]float64{{1, 2}, {3, 4}})
//	xt, _ := x.Transpose()
//	y, _ := x.MatMul(xt)
//	fmt.Println(y.Shape()) // [2 2]
package tensor

import (
	"math/rand/v2"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Tensor is a dense float64 tensor.
type Tensor = tensor.Tensor

// Shape describes the dimensions of a tensor.
type Shape = tensor.Shape

// ErrShapeMismatch reports incompatible shapes. Test with errors.Is.
var ErrShapeMismatch = tensor.ErrShapeMismatch

// New creates a tensor of the given shape backed by data (not copied).
func New(shape Shape, data []float64) (*Tensor, error) {
	return tensor.New(shape, data)
}

// FromSlice creates a tensor from a copy of data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// FromRows creates a [len(rows), len(rows[0])] matrix.
func FromRows(rows [][]float64) (*Tensor, error) {
	return tensor.FromRows(rows)
}

// MustFromRows is FromRows that panics on error. For tests and examples.
func MustFromRows(rows [][]float64) *Tensor {
	return tensor.MustFromRows(rows)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return tensor.Ones(shape)
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *Tensor {
	return tensor.Full(shape, value)
}

// Uniform draws values uniformly from [low, high).
func Uniform(shape Shape, low, high float64, src rand.Source) *Tensor {
	return tensor.Uniform(shape, low, high, src)
}

// Normal draws values from N(mu, sigma²).
func Normal(shape Shape, mu, sigma float64, src rand.Source) *Tensor {
	return tensor.Normal(shape, mu, sigma, src)
}

// Xavier uses Xavier/Glorot uniform initialization for a [fanIn, fanOut] weight.
func Xavier(shape Shape, src rand.Source) *Tensor {
	return tensor.Xavier(shape, src)
}
