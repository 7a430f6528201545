package autodiff

import "math"

// SigmoidOp is the logistic function σ(x) = 1/(1+e^-x).
//
// Backward: x.grad += out.grad ⊙ σ ⊙ (1 − σ), computed from the cached output.
type SigmoidOp struct {
	node
}

func newSigmoid(g *Graph, name string, _ Args) (Operation, error) {
	return &SigmoidOp{node: node{name: name, kind: KindSigmoid, graph: g}}, nil
}

// Forward returns σ(x).
func (op *SigmoidOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 1, 1); err != nil {
		return nil, err
	}
	out := inputs[0].Value().Apply(func(v float64) float64 {
		return 1.0 / (1.0 + math.Exp(-v))
	})
	return op.commit(op, inputs, out), nil
}

// Backward accumulates the sigmoid derivative.
func (op *SigmoidOp) Backward() error {
	if !op.begin() {
		return nil
	}
	local := op.output.Value().Apply(func(s float64) float64 {
		return s * (1 - s)
	})
	return activationBackward(&op.node, local)
}
