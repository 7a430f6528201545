// Package optim implements the optimizers applied by autodiff.Graph.Step.
//
// This package provides:
//   - Optimizer interface: autodiff.Optimizer plus learning-rate access and state export
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers read Value() and Grad() of each parameter and update Value() in place. Per-parameter
// state (velocities, moments) is keyed by the *autodiff.Variable, whose identity the graph keeps
// stable across passes.
//
// Example usage:
//
//	g := autodiff.NewGraph("mlp", autodiff.WithOptimizer(optim.NewSGD(optim.SGDConfig{LR: 0.1})))
//	loss, err := g.TrainStep(func() (float64, error) {
//	    if _, err := model.Forward(x); err != nil {
//	        return 0, err
//	    }
//	    return model.Loss(y)
//	})
package optim

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/tensor"
)

// Optimizer is the interface shared by the optimizers of this package.
type Optimizer interface {
	autodiff.Optimizer

	// LR returns the current learning rate.
	LR() float64

	// SetLR updates the learning rate, e.g. from a schedule.
	SetLR(lr float64)

	// StateDict exports the per-parameter state, keyed by "<buffer>.<index in params>".
	StateDict(params []*autodiff.Variable) map[string]*tensor.Tensor

	// LoadStateDict restores state exported by StateDict for the same parameter order.
	LoadStateDict(params []*autodiff.Variable, state map[string]*tensor.Tensor) error
}

var (
	_ Optimizer = (*SGD)(nil)
	_ Optimizer = (*Adam)(nil)
)

func stateKey(buffer string, index int) string {
	return fmt.Sprintf("%s.%d", buffer, index)
}

// exportBuffers copies the buffers of params found in buffers into state.
func exportBuffers(state map[string]*tensor.Tensor, name string, params []*autodiff.Variable,
	buffers map[*autodiff.Variable]*tensor.Tensor) {
	for i, p := range params {
		if buf, found := buffers[p]; found {
			state[stateKey(name, i)] = buf.Clone()
		}
	}
}

// importBuffers reads "<name>.<i>" entries of state into a new buffer map, validating shapes.
func importBuffers(state map[string]*tensor.Tensor, name string,
	params []*autodiff.Variable) (map[*autodiff.Variable]*tensor.Tensor, error) {
	buffers := make(map[*autodiff.Variable]*tensor.Tensor, len(params))
	for i, p := range params {
		buf, found := state[stateKey(name, i)]
		if !found {
			continue
		}
		if !buf.Shape().Equal(p.Shape()) {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch, "%s shape mismatch for parameter %d: expected %v, got %v",
				name, i, p.Shape(), buf.Shape())
		}
		buffers[p] = buf.Clone()
	}
	return buffers, nil
}
