package gradcheck_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/gradcheck"
	"github.com/born-ml/minigrad/internal/nn"
	"github.com/born-ml/minigrad/internal/tensor"
)

func leaf(rows [][]float64) *autodiff.Variable {
	return autodiff.NewVariable(tensor.MustFromRows(rows))
}

func mustOp(t *testing.T, g *autodiff.Graph, kind autodiff.Kind, args autodiff.Args) autodiff.Operation {
	t.Helper()
	op, err := g.CreateOperation(kind, args, "")
	require.NoError(t, err)
	return op
}

// withSquareLoss terminates forward with a square loss against a constant target.
func withSquareLoss(t *testing.T, g *autodiff.Graph, forward func() (*autodiff.Variable, error)) gradcheck.Objective {
	t.Helper()
	head := mustOp(t, g, autodiff.KindSquareLoss, nil).(autodiff.LossOperation)
	return func() (float64, error) {
		out, err := forward()
		if err != nil {
			return 0, err
		}
		if _, err := head.Forward(out); err != nil {
			return 0, err
		}
		return head.Loss(autodiff.NewVariable(tensor.Full(out.Shape(), 0.25)))
	}
}

// TestGradient_Operations checks every built-in operation against finite differences.
func TestGradient_Operations(t *testing.T) {
	a := [][]float64{{0.5, -1.2, 0.3}, {1.1, 0.7, -0.4}}
	b := [][]float64{{-0.3, 0.8, 1.5}, {0.2, -0.6, 0.9}}
	c := [][]float64{{0.1, 0.2, -0.3, 0.4}, {0.5, -0.6, 0.7, 0.8}, {-0.9, 1.0, 0.2, -0.1}}

	tests := []struct {
		name  string
		build func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable)
	}{
		{"add", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			x, y := leaf(a), leaf(b)
			op := mustOp(t, g, autodiff.KindAdd, nil)
			// x appears twice: its gradient doubles.
			return withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x, y, x) }), []*autodiff.Variable{x, y}
		}},
		{"multiply", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			x, y := leaf(a), leaf(b)
			op := mustOp(t, g, autodiff.KindMultiply, nil)
			return withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x, y) }), []*autodiff.Variable{x, y}
		}},
		{"matmul", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			x, y := leaf(a), leaf(c)
			op := mustOp(t, g, autodiff.KindMatMul, nil)
			return withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x, y) }), []*autodiff.Variable{x, y}
		}},
		{"relu", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			x := leaf(a)
			op := mustOp(t, g, autodiff.KindReLU, nil)
			return withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x) }), []*autodiff.Variable{x}
		}},
		{"sigmoid", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			x := leaf(a)
			op := mustOp(t, g, autodiff.KindSigmoid, nil)
			return withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x) }), []*autodiff.Variable{x}
		}},
		{"tanh", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			x := leaf(a)
			op := mustOp(t, g, autodiff.KindTanh, nil)
			return withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x) }), []*autodiff.Variable{x}
		}},
		{"affine", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			x := leaf(a)
			op := mustOp(t, g, autodiff.KindAffine, autodiff.Args{"input_size": 3, "hidden_size": 4})
			bias, err := tensor.FromSlice([]float64{0.1, -0.2, 0.3, 0}, tensor.Shape{4})
			require.NoError(t, err)
			require.NoError(t, g.Parameters()[1].Value().CopyFrom(bias))
			wrt := append([]*autodiff.Variable{x}, g.Parameters()...)
			return withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x) }), wrt
		}},
		{"softmax_loss", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			logits := leaf(c)
			head := mustOp(t, g, autodiff.KindSoftmaxLoss, nil).(autodiff.LossOperation)
			target := autodiff.NewVariable(tensor.MustFromRows([][]float64{{0, 3, 1}}))
			return func() (float64, error) {
				if _, err := head.Forward(logits); err != nil {
					return 0, err
				}
				return head.Loss(target)
			}, []*autodiff.Variable{logits}
		}},
		{"chain", func(t *testing.T, g *autodiff.Graph) (gradcheck.Objective, []*autodiff.Variable) {
			// tanh(x·y) + sigmoid(x·y): the matmul output fans out to two consumers.
			x, y := leaf(a), leaf(c)
			mm := mustOp(t, g, autodiff.KindMatMul, nil)
			th := mustOp(t, g, autodiff.KindTanh, nil)
			sg := mustOp(t, g, autodiff.KindSigmoid, nil)
			add := mustOp(t, g, autodiff.KindAdd, nil)
			return withSquareLoss(t, g, func() (*autodiff.Variable, error) {
				h, err := mm.Forward(x, y)
				if err != nil {
					return nil, err
				}
				u, err := th.Forward(h)
				if err != nil {
					return nil, err
				}
				v, err := sg.Forward(h)
				if err != nil {
					return nil, err
				}
				return add.Forward(u, v)
			}), []*autodiff.Variable{x, y}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := autodiff.NewGraph(tt.name, autodiff.WithSeed(1))
			objective, wrts := tt.build(t, g)
			for i, wrt := range wrts {
				r, err := gradcheck.Gradient(g, objective, wrt, gradcheck.Config{})
				require.NoError(t, err)
				assert.Truef(t, r.Passed(), "operand %d: analytic %v, numeric %v", i, r.Analytic, r.Numeric)
				assert.Equal(t, 0, g.TraceLen())
			}
		})
	}
}

// TestGradient_Restores tests that the checked value and the graph mode are restored.
func TestGradient_Restores(t *testing.T) {
	g := autodiff.NewGraph("restore")
	g.SetTraining(false)
	x := leaf([][]float64{{0.3, -0.7}})
	before := x.Value().Clone()
	op := mustOp(t, g, autodiff.KindSigmoid, nil)

	r, err := gradcheck.Gradient(g, withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x) }), x, gradcheck.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, r.Passed())
	assert.True(t, x.Value().AllClose(before, 0))
	assert.False(t, g.Training())
}

// TestGradient_ObjectiveError tests that objective errors are reported.
func TestGradient_ObjectiveError(t *testing.T) {
	g := autodiff.NewGraph("failing")
	x := leaf([][]float64{{1, 2}})
	op := mustOp(t, g, autodiff.KindMatMul, nil)
	objective := withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x, x) })

	_, err := gradcheck.Gradient(g, objective, x, gradcheck.Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, autodiff.ErrShapeMismatch))
	assert.Equal(t, 0, g.TraceLen())
}

// TestCheckModel tests whole models.
func TestCheckModel(t *testing.T) {
	x := tensor.MustFromRows([][]float64{{0.2, -1.3}, {1.7, 0.4}, {-0.5, 0.9}})
	y := tensor.MustFromRows([][]float64{{1, 0, 2}})

	linear, err := nn.NewLinear(2, 3, autodiff.WithSeed(2))
	require.NoError(t, err)
	mlp, err := nn.NewMLP(nn.MLPConfig{InputSize: 2, HiddenSize: 4, OutputSize: 3, Activation: autodiff.KindTanh}, autodiff.WithSeed(2))
	require.NoError(t, err)

	for _, model := range []nn.Model{linear, mlp} {
		results, err := gradcheck.CheckModel(model, x, y, gradcheck.Config{})
		require.NoError(t, err)
		require.Len(t, results, len(model.Graph().Parameters()))
		for _, r := range results {
			assert.Truef(t, r.Passed(), "%s: max rel diff %g", r.Name, r.MaxRelDiff)
		}
		assert.Equal(t, model.Graph().ParameterNames()[0], results[0].Name)
	}
}

const kindBrokenScale autodiff.Kind = "gradcheck_broken_scale"

// brokenScale computes 2x but back-propagates 3·out.grad.
type brokenScale struct {
	name   string
	graph  *autodiff.Graph
	input  *autodiff.Variable
	output *autodiff.Variable
}

func init() {
	err := autodiff.RegisterOperation(kindBrokenScale, func(g *autodiff.Graph, name string, _ autodiff.Args) (autodiff.Operation, error) {
		return &brokenScale{name: name, graph: g}, nil
	})
	if err != nil {
		panic(err)
	}
}

func (op *brokenScale) Name() string                 { return op.name }
func (op *brokenScale) Kind() autodiff.Kind          { return kindBrokenScale }
func (op *brokenScale) Inputs() []*autodiff.Variable { return []*autodiff.Variable{op.input} }
func (op *brokenScale) Output() *autodiff.Variable   { return op.output }

func (op *brokenScale) Forward(inputs ...*autodiff.Variable) (*autodiff.Variable, error) {
	if len(inputs) != 1 {
		return nil, autodiff.ErrArity
	}
	op.input = inputs[0]
	op.output = autodiff.NewVariable(inputs[0].Value().Scale(2))
	if op.graph.Training() {
		op.graph.Record(op)
	}
	return op.output, nil
}

func (op *brokenScale) Backward() error {
	return op.input.AccumulateGradient(op.output.Grad().Scale(3))
}

// TestGradient_DetectsBrokenOperation tests that a wrong backward is reported.
func TestGradient_DetectsBrokenOperation(t *testing.T) {
	g := autodiff.NewGraph("broken")
	x := leaf([][]float64{{0.5, -0.5, 1}})
	op := mustOp(t, g, kindBrokenScale, nil)
	assert.Equal(t, "gradcheck_broken_scale_0", op.Name())

	r, err := gradcheck.Gradient(g, withSquareLoss(t, g, func() (*autodiff.Variable, error) { return op.Forward(x) }), x, gradcheck.Config{})
	require.NoError(t, err)
	assert.False(t, r.Passed())
	assert.False(t, r.OK(0.1))
	assert.True(t, r.OK(1))
	// Analytic is 1.5 times the numeric gradient.
	for i := range r.Numeric {
		assert.InDelta(t, 1.5*r.Numeric[i], r.Analytic[i], 1e-6)
	}
}
