// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers that update autodiff parameters in place.
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: 0.01})
//	g := autodiff.NewGraph("model", autodiff.WithOptimizer(opt))
package optim

import (
	"github.com/born-ml/minigrad/internal/optim"
)

// Optimizer updates parameters and exposes its state for checkpoints.
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig configures NewSGD.
type SGDConfig = optim.SGDConfig

// Adam is the Adam optimizer with bias correction.
type Adam = optim.Adam

// AdamConfig configures NewAdam.
type AdamConfig = optim.AdamConfig

// NewSGD creates an SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// NewAdam creates an Adam optimizer.
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}
