// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over dynamically built graphs.
//
// A Graph owns named parameters, creates operations from a registry of kinds and records every
// forward call made in training mode. Backward replays the recorded trace in reverse, so a
// variable consumed by several operations receives the sum of their gradient contributions
// before its producer runs.
//
// Example:
//
//	g := autodiff.NewGraph("linear", autodiff.WithSeed(1))
//	affine, _ := g.CreateOperation(autodiff.KindAffine, autodiff.Args{"input_size": 2, "hidden_size": 3}, "")
//	loss, _ := g.CreateOperation(autodiff.KindSoftmaxLoss, nil, "")
//
//	h, _ := affine.Forward(autodiff.NewVariable(x))
//	_, _ = loss.Forward(h)
//	value, _ := loss.(autodiff.LossOperation).Loss(autodiff.NewVariable(labels))
//	_ = g.Backward()
package autodiff

import (
	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/tensor"
)

// Core types.
type (
	// Graph owns parameters, the optimizer hook and the trace of the current pass.
	Graph = autodiff.Graph

	// Variable holds a value, its accumulated gradient and its producer.
	Variable = autodiff.Variable

	// Operation is a differentiable node with paired forward and backward passes.
	Operation = autodiff.Operation

	// LossOperation terminates a chain with a scalar loss.
	LossOperation = autodiff.LossOperation

	// Kind identifies an operation variant in the registry.
	Kind = autodiff.Kind

	// Args carries construction arguments for an operation factory.
	Args = autodiff.Args

	// Factory builds an operation bound to a graph.
	Factory = autodiff.Factory

	// Option configures a Graph.
	Option = autodiff.Option

	// Optimizer updates parameters in place from their gradients.
	Optimizer = autodiff.Optimizer

	// Initializer creates the initial value of a parameter.
	Initializer = autodiff.Initializer
)

// Built-in operation kinds.
const (
	KindAdd         = autodiff.KindAdd
	KindMultiply    = autodiff.KindMultiply
	KindMatMul      = autodiff.KindMatMul
	KindReLU        = autodiff.KindReLU
	KindSigmoid     = autodiff.KindSigmoid
	KindTanh        = autodiff.KindTanh
	KindAffine      = autodiff.KindAffine
	KindSoftmaxLoss = autodiff.KindSoftmaxLoss
	KindSquareLoss  = autodiff.KindSquareLoss
)

// Errors, wrapped with context. Test with errors.Is.
var (
	ErrShapeMismatch    = autodiff.ErrShapeMismatch
	ErrArity            = autodiff.ErrArity
	ErrUnknownOperation = autodiff.ErrUnknownOperation
	ErrInvalidArgument  = autodiff.ErrInvalidArgument
	ErrMissingTarget    = autodiff.ErrMissingTarget
	ErrInvalidTarget    = autodiff.ErrInvalidTarget
	ErrNoOptimizer      = autodiff.ErrNoOptimizer
)

// NewGraph creates an empty graph in training mode.
func NewGraph(name string, opts ...Option) *Graph {
	return autodiff.NewGraph(name, opts...)
}

// NewVariable creates a leaf variable with a zero gradient.
func NewVariable(value *tensor.Tensor) *Variable {
	return autodiff.NewVariable(value)
}

// WithSeed seeds parameter initialization.
func WithSeed(seed uint64) Option {
	return autodiff.WithSeed(seed)
}

// WithInitializer replaces the default parameter initializer.
func WithInitializer(init Initializer) Option {
	return autodiff.WithInitializer(init)
}

// WithOptimizer sets the optimizer used by Graph.Step and Graph.TrainStep.
func WithOptimizer(opt Optimizer) Option {
	return autodiff.WithOptimizer(opt)
}

// RegisterOperation adds an operation kind to the registry. Registering a kind twice fails.
func RegisterOperation(kind Kind, factory Factory) error {
	return autodiff.RegisterOperation(kind, factory)
}

// Kinds returns the registered operation kinds, sorted.
func Kinds() []Kind {
	return autodiff.Kinds()
}
