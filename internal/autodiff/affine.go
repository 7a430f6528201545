package autodiff

import "github.com/born-ml/minigrad/internal/tensor"

// AffineOp is a fully connected layer: out = x·W + b, with b added to every row.
//
// The weight W [input_size, hidden_size] and bias b [hidden_size] are graph parameters named
// "<name>_W" and "<name>_b"; they are created (or reused) when the operation is created.
//
// Backward:
//   - x.grad += out.grad · Wᵗ
//   - W.grad += xᵗ · out.grad
//   - b.grad += column sums of out.grad
type AffineOp struct {
	node
	inputSize  int
	hiddenSize int
	weight     *Variable
	bias       *Variable
}

// newAffine reads the "input_size" and "hidden_size" arguments.
func newAffine(g *Graph, name string, args Args) (Operation, error) {
	inputSize, err := args.Int("input_size")
	if err != nil {
		return nil, err
	}
	hiddenSize, err := args.Int("hidden_size")
	if err != nil {
		return nil, err
	}
	weight, err := g.Parameter(name+"_W", tensor.Shape{inputSize, hiddenSize})
	if err != nil {
		return nil, err
	}
	bias, err := g.Parameter(name+"_b", tensor.Shape{hiddenSize})
	if err != nil {
		return nil, err
	}
	return &AffineOp{
		node:       node{name: name, kind: KindAffine, graph: g},
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		weight:     weight,
		bias:       bias,
	}, nil
}

// Weight returns the W parameter.
func (op *AffineOp) Weight() *Variable {
	return op.weight
}

// Bias returns the b parameter.
func (op *AffineOp) Bias() *Variable {
	return op.bias
}

// Forward returns x·W + b for x of shape [batch, input_size].
func (op *AffineOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 1, 1); err != nil {
		return nil, err
	}
	x := inputs[0]
	shape := x.Shape()
	if shape.Rank() != 2 || shape[1] != op.inputSize {
		return nil, op.shapeError("input %v, want [batch, %d]", shape, op.inputSize)
	}
	xw, err := x.Value().MatMul(op.weight.Value())
	if err != nil {
		return nil, op.shapeError("%v · %v", shape, op.weight.Shape())
	}
	out, err := xw.AddRowVector(op.bias.Value())
	if err != nil {
		return nil, op.shapeError("bias %v", op.bias.Shape())
	}
	return op.commit(op, inputs, out), nil
}

// Backward accumulates gradients into x, W and b, then propagates into x.
func (op *AffineOp) Backward() error {
	if !op.begin() {
		return nil
	}
	x := op.inputs[0]
	grad := op.output.Grad()

	wT, err := op.weight.Value().Transpose()
	if err != nil {
		return err
	}
	dx, err := grad.MatMul(wT)
	if err != nil {
		return err
	}
	xT, err := x.Value().Transpose()
	if err != nil {
		return err
	}
	dw, err := xT.MatMul(grad)
	if err != nil {
		return err
	}
	db, err := grad.SumRows()
	if err != nil {
		return err
	}

	if err := x.AccumulateGradient(dx); err != nil {
		return err
	}
	if err := op.weight.AccumulateGradient(dw); err != nil {
		return err
	}
	if err := op.bias.AccumulateGradient(db); err != nil {
		return err
	}
	return op.propagate()
}
