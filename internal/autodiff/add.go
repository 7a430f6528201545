package autodiff

import "github.com/born-ml/minigrad/internal/tensor"

// AddOp sums one or more operands of identical shape elementwise.
//
// Backward: every input receives the output gradient unchanged.
type AddOp struct {
	node
}

func newAdd(g *Graph, name string, _ Args) (Operation, error) {
	return &AddOp{node: node{name: name, kind: KindAdd, graph: g}}, nil
}

// Forward returns the elementwise sum of inputs.
func (op *AddOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 1, -1); err != nil {
		return nil, err
	}
	shape := inputs[0].Shape()
	for i, in := range inputs[1:] {
		if !in.Shape().Equal(shape) {
			return nil, op.shapeError("operand %d has shape %v, operand 0 has %v", i+1, in.Shape(), shape)
		}
	}
	sum := tensor.Zeros(shape)
	for _, in := range inputs {
		_ = sum.AddInPlace(in.Value()) // shapes checked above
	}
	return op.commit(op, inputs, sum), nil
}

// Backward passes the output gradient to every input.
func (op *AddOp) Backward() error {
	if !op.begin() {
		return nil
	}
	for _, in := range op.inputs {
		if err := in.AccumulateGradient(op.output.Grad()); err != nil {
			return err
		}
	}
	return op.propagate()
}
