package autodiff

import "github.com/born-ml/minigrad/internal/tensor"

// ReLUOp is the rectified linear unit max(x, 0).
//
// Forward caches the mask of non-positive inputs; backward passes the output gradient through
// everywhere else.
type ReLUOp struct {
	node
	mask []bool // true where x <= 0
}

func newReLU(g *Graph, name string, _ Args) (Operation, error) {
	return &ReLUOp{node: node{name: name, kind: KindReLU, graph: g}}, nil
}

// Forward returns max(x, 0).
func (op *ReLUOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 1, 1); err != nil {
		return nil, err
	}
	x := inputs[0].Value()
	out := x.Clone()
	mask := make([]bool, x.Len())
	data := out.Data()
	for i, v := range data {
		if v <= 0 {
			mask[i] = true
			data[i] = 0
		}
	}
	op.mask = mask
	return op.commit(op, inputs, out), nil
}

// Backward accumulates out.grad with masked entries zeroed.
func (op *ReLUOp) Backward() error {
	if !op.begin() {
		return nil
	}
	delta := op.output.Grad().Clone()
	data := delta.Data()
	for i, masked := range op.mask {
		if masked {
			data[i] = 0
		}
	}
	if err := op.inputs[0].AccumulateGradient(delta); err != nil {
		return err
	}
	return op.propagate()
}

// activationBackward accumulates out.grad ⊙ local into x and propagates.
func activationBackward(n *node, local *tensor.Tensor) error {
	delta, err := n.output.Grad().Mul(local)
	if err != nil {
		return err
	}
	if err := n.inputs[0].AccumulateGradient(delta); err != nil {
		return err
	}
	return n.propagate()
}
