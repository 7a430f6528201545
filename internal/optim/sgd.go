package optim

import (
	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Example:
//
//	sgd := optim.NewSGD(optim.SGDConfig{LR: 0.1, Momentum: 0.9})
//	g.SetOptimizer(sgd)
type SGD struct {
	lr         float64
	momentum   float64
	velocities map[*autodiff.Variable]*tensor.Tensor
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*autodiff.Variable]*tensor.Tensor),
	}
}

// Step updates every parameter in place from its accumulated gradient.
func (s *SGD) Step(params []*autodiff.Variable) error {
	for _, p := range params {
		if s.momentum == 0 {
			if err := p.Value().AddScaledInPlace(-s.lr, p.Grad()); err != nil {
				return err
			}
			continue
		}
		velocity, exists := s.velocities[p]
		if !exists {
			velocity = tensor.ZerosLike(p.Value())
			s.velocities[p] = velocity
		}
		// velocity = momentum * velocity + grad
		v := velocity.Data()
		for i, g := range p.Grad().Data() {
			v[i] = s.momentum*v[i] + g
		}
		if err := p.Value().AddScaledInPlace(-s.lr, velocity); err != nil {
			return err
		}
	}
	return nil
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// StateDict returns the velocity buffers ("velocity.<i>"). Without momentum it is empty.
func (s *SGD) StateDict(params []*autodiff.Variable) map[string]*tensor.Tensor {
	state := make(map[string]*tensor.Tensor)
	if s.momentum == 0 {
		return state
	}
	exportBuffers(state, "velocity", params, s.velocities)
	return state
}

// LoadStateDict restores velocity buffers. Without momentum the state is ignored.
//
// Returns an error if velocity shapes don't match parameter shapes.
func (s *SGD) LoadStateDict(params []*autodiff.Variable, state map[string]*tensor.Tensor) error {
	if s.momentum == 0 {
		return nil
	}
	velocities, err := importBuffers(state, "velocity", params)
	if err != nil {
		return err
	}
	s.velocities = velocities
	return nil
}
