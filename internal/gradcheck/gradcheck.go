// Package gradcheck compares gradients computed by back-propagation with central finite
// differences of the same objective.
package gradcheck

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"k8s.io/klog/v2"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/nn"
	"github.com/born-ml/minigrad/internal/tensor"
)

// Config controls the finite-difference step and the acceptance tolerance.
type Config struct {
	Step      float64 // Finite-difference step (default: 1e-6)
	Tolerance float64 // Maximum relative difference accepted by Result.Passed (default: 1e-4)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Step: 1e-6, Tolerance: 1e-4}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Step <= 0 {
		c.Step = d.Step
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	return c
}

// Objective runs a forward pass ending with a LossOperation.Loss call and returns the loss.
type Objective func() (float64, error)

// Result holds both gradients of one variable.
type Result struct {
	Name       string
	Analytic   []float64
	Numeric    []float64
	MaxAbsDiff float64
	MaxRelDiff float64 // |a − n| / max(1, |a|, |n|)
	Tolerance  float64
}

// OK reports whether every element agrees within tol (relative, see MaxRelDiff).
func (r *Result) OK(tol float64) bool {
	return r.MaxRelDiff <= tol
}

// Passed reports OK with the configured tolerance.
func (r *Result) Passed() bool {
	return r.OK(r.Tolerance)
}

// Gradient checks the gradient of objective with respect to wrt.
//
// The analytic gradient comes from one training-mode pass: the graph trace is cleared, parameter
// gradients and wrt's gradient are zeroed, objective runs and g.Backward propagates. The numeric
// gradient perturbs wrt's value in place and evaluates objective in evaluation mode. The value and
// the training mode of g are restored; the gradients of the analytic pass are left in place.
func Gradient(g *autodiff.Graph, objective Objective, wrt *autodiff.Variable, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	wasTraining := g.Training()
	defer g.SetTraining(wasTraining)

	// Analytic.
	g.SetTraining(true)
	g.Clear()
	g.ZeroGrad()
	wrt.ZeroGrad()
	if _, err := objective(); err != nil {
		g.Clear()
		return nil, errors.WithMessage(err, "gradcheck: analytic pass")
	}
	if err := g.Backward(); err != nil {
		return nil, errors.WithMessage(err, "gradcheck: backward")
	}
	analytic := append([]float64(nil), wrt.Grad().Data()...)

	// Numeric.
	g.SetTraining(false)
	values := wrt.Value().Data()
	origin := append([]float64(nil), values...)
	defer copy(values, origin)

	var firstErr error
	f := func(x []float64) float64 {
		copy(values, x)
		loss, err := objective()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return loss
	}
	numeric := fd.Gradient(nil, f, origin, &fd.Settings{Formula: fd.Central, Step: cfg.Step})
	if firstErr != nil {
		return nil, errors.WithMessage(firstErr, "gradcheck: numeric pass")
	}

	r := &Result{Analytic: analytic, Numeric: numeric, Tolerance: cfg.Tolerance}
	for i := range analytic {
		a, n := analytic[i], numeric[i]
		diff := math.Abs(a - n)
		r.MaxAbsDiff = math.Max(r.MaxAbsDiff, diff)
		r.MaxRelDiff = math.Max(r.MaxRelDiff, diff/math.Max(1, math.Max(math.Abs(a), math.Abs(n))))
	}
	return r, nil
}

// CheckModel checks every parameter of m for the batch (x, y). Results follow the parameter
// registration order and carry the parameter names.
func CheckModel(m nn.Model, x, y *tensor.Tensor, cfg Config) ([]*Result, error) {
	g := m.Graph()
	objective := func() (float64, error) {
		if _, err := m.Forward(autodiff.NewVariable(x)); err != nil {
			return 0, err
		}
		return m.Loss(autodiff.NewVariable(y))
	}
	names := g.ParameterNames()
	results := make([]*Result, 0, len(names))
	for i, p := range g.Parameters() {
		r, err := Gradient(g, objective, p, cfg)
		if err != nil {
			return nil, errors.WithMessagef(err, "parameter %q", names[i])
		}
		r.Name = names[i]
		klog.V(1).Infof("gradcheck %s %v: max abs diff %.3g, max rel diff %.3g", r.Name, p.Shape(), r.MaxAbsDiff, r.MaxRelDiff)
		results = append(results, r)
	}
	return results, nil
}
