package autodiff

import "math"

// TanhOp is the hyperbolic tangent.
//
// Backward: x.grad += out.grad ⊙ (1 − tanh²), computed from the cached output.
type TanhOp struct {
	node
}

func newTanh(g *Graph, name string, _ Args) (Operation, error) {
	return &TanhOp{node: node{name: name, kind: KindTanh, graph: g}}, nil
}

// Forward returns tanh(x).
func (op *TanhOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 1, 1); err != nil {
		return nil, err
	}
	return op.commit(op, inputs, inputs[0].Value().Apply(math.Tanh)), nil
}

// Backward accumulates the tanh derivative.
func (op *TanhOp) Backward() error {
	if !op.begin() {
		return nil
	}
	local := op.output.Value().Apply(func(t float64) float64 {
		return 1 - t*t
	})
	return activationBackward(&op.node, local)
}
