package autodiff

// MatMulOp is the matrix product of two rank 2 operands.
//
// Backward:
//   - x.grad += out.grad · yᵗ
//   - y.grad += xᵗ · out.grad
type MatMulOp struct {
	node
	x, y *Variable
}

func newMatMul(g *Graph, name string, _ Args) (Operation, error) {
	return &MatMulOp{node: node{name: name, kind: KindMatMul, graph: g}}, nil
}

// Forward returns x · y. Requires x.cols == y.rows.
func (op *MatMulOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 2, 2); err != nil {
		return nil, err
	}
	x, y := inputs[0], inputs[1]
	value, err := x.Value().MatMul(y.Value())
	if err != nil {
		return nil, op.shapeError("%v · %v", x.Shape(), y.Shape())
	}
	op.x, op.y = x, y
	return op.commit(op, inputs, value), nil
}

// Backward computes gradients for both operands.
func (op *MatMulOp) Backward() error {
	if !op.begin() {
		return nil
	}
	grad := op.output.Grad()
	yT, err := op.y.Value().Transpose()
	if err != nil {
		return err
	}
	dx, err := grad.MatMul(yT)
	if err != nil {
		return err
	}
	xT, err := op.x.Value().Transpose()
	if err != nil {
		return err
	}
	dy, err := xT.MatMul(grad)
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
