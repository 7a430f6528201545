package optim

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/tensor"
)

// Adam implements the Adam optimizer (Adaptive Moment Estimation).
//
// Update rule:
//
//	m = beta1 * m + (1 - beta1) * grad
//	v = beta2 * v + (1 - beta2) * grad²
//	m_hat = m / (1 - beta1^t)
//	v_hat = v / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int                                   // Timestep for bias correction
	m     map[*autodiff.Variable]*tensor.Tensor // First moment estimates
	v     map[*autodiff.Variable]*tensor.Tensor // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		m:     make(map[*autodiff.Variable]*tensor.Tensor),
		v:     make(map[*autodiff.Variable]*tensor.Tensor),
	}
}

// Step performs a single optimization step with bias-corrected moments.
func (a *Adam) Step(params []*autodiff.Variable) error {
	a.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for _, p := range params {
		m, exists := a.m[p]
		if !exists {
			m = tensor.ZerosLike(p.Value())
			a.m[p] = m
		}
		v, exists := a.v[p]
		if !exists {
			v = tensor.ZerosLike(p.Value())
			a.v[p] = v
		}
		if !m.Shape().Equal(p.Shape()) || !p.Grad().Shape().Equal(p.Shape()) {
			return errors.Wrapf(tensor.ErrShapeMismatch, "adam: parameter %v, moment %v", p.Shape(), m.Shape())
		}

		mData, vData, values := m.Data(), v.Data(), p.Value().Data()
		for i, g := range p.Grad().Data() {
			mData[i] = a.beta1*mData[i] + (1-a.beta1)*g
			vData[i] = a.beta2*vData[i] + (1-a.beta2)*g*g
			mHat := mData[i] / biasCorrection1
			vHat := vData[i] / biasCorrection2
			values[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
	return nil
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// Timestep returns the number of steps taken.
func (a *Adam) Timestep() int {
	return a.t
}

// StateDict returns the moment buffers ("m.<i>", "v.<i>") and the timestep ("step", a scalar).
func (a *Adam) StateDict(params []*autodiff.Variable) map[string]*tensor.Tensor {
	state := make(map[string]*tensor.Tensor)
	exportBuffers(state, "m", params, a.m)
	exportBuffers(state, "v", params, a.v)
	state["step"] = tensor.Full(tensor.Shape{1}, float64(a.t))
	return state
}

// LoadStateDict restores the moment buffers and the timestep.
func (a *Adam) LoadStateDict(params []*autodiff.Variable, state map[string]*tensor.Tensor) error {
	m, err := importBuffers(state, "m", params)
	if err != nil {
		return err
	}
	v, err := importBuffers(state, "v", params)
	if err != nil {
		return err
	}
	a.m, a.v = m, v
	if step, found := state["step"]; found && step.Len() == 1 {
		a.t = int(step.Data()[0])
	}
	return nil
}
