package autodiff

// MultiplyOp is the elementwise (Hadamard) product of two operands of identical shape.
//
// Backward:
//   - x.grad += out.grad ⊙ y
//   - y.grad += out.grad ⊙ x
type MultiplyOp struct {
	node
	x, y *Variable
}

func newMultiply(g *Graph, name string, _ Args) (Operation, error) {
	return &MultiplyOp{node: node{name: name, kind: KindMultiply, graph: g}}, nil
}

// Forward returns x ⊙ y.
func (op *MultiplyOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 2, 2); err != nil {
		return nil, err
	}
	x, y := inputs[0], inputs[1]
	value, err := x.Value().Mul(y.Value())
	if err != nil {
		return nil, op.shapeError("%v ⊙ %v", x.Shape(), y.Shape())
	}
	op.x, op.y = x, y
	return op.commit(op, inputs, value), nil
}

// Backward computes the product-rule contributions.
func (op *MultiplyOp) Backward() error {
	if !op.begin() {
		return nil
	}
	grad := op.output.Grad()
	dx, err := grad.Mul(op.y.Value())
	if err != nil {
		return err
	}
	dy, err := grad.Mul(op.x.Value())
	if err != nil {
		return err
	}
	if err := op.x.AccumulateGradient(dx); err != nil {
		return err
	}
	if err := op.y.AccumulateGradient(dy); err != nil {
		return err
	}
	return op.propagate()
}
