// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn builds classifiers from autodiff operations.
//
// Models chain operations created on one autodiff.Graph and end with a loss head:
//
//	model, _ := nn.NewMLP(nn.MLPConfig{InputSize: 2, HiddenSize: 8, OutputSize: 2},
//	    autodiff.WithOptimizer(optim.NewSGD(optim.SGDConfig{LR: 0.1})))
//	loss, _ := model.Graph().TrainStep(func() (float64, error) {
//	    if _, err := model.Forward(autodiff.NewVariable(x)); err != nil {
//	        return 0, err
//	    }
//	    return model.Loss(autodiff.NewVariable(y))
//	})
package nn

import (
	"github.com/born-ml/minigrad/autodiff"
	"github.com/born-ml/minigrad/internal/nn"
	"github.com/born-ml/minigrad/tensor"
)

// Model is a trainable classifier bound to one graph.
type Model = nn.Model

// Sequential chains operations and ends with a loss head.
type Sequential = nn.Sequential

// MLPConfig configures NewMLP.
type MLPConfig = nn.MLPConfig

// NewSequential creates a model from ops; the last one must be an autodiff.LossOperation.
func NewSequential(g *autodiff.Graph, ops ...autodiff.Operation) (*Sequential, error) {
	return nn.NewSequential(g, ops...)
}

// NewLinear creates a softmax regression classifier.
func NewLinear(inputSize, outputSize int, opts ...autodiff.Option) (*Sequential, error) {
	return nn.NewLinear(inputSize, outputSize, opts...)
}

// NewMLP creates a one-hidden-layer perceptron classifier.
func NewMLP(cfg MLPConfig, opts ...autodiff.Option) (*Sequential, error) {
	return nn.NewMLP(cfg, opts...)
}

// Predict returns the predicted class of every row of x.
func Predict(m Model, x *tensor.Tensor) ([]int, error) {
	return nn.Predict(m, x)
}
