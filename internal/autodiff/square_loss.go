package autodiff

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// SquareLossOp scores predictions with half the squared error, averaged over the batch (first
// dimension): 0.5·Σ(pred − target)² / batch.
//
// Forward output is a copy of the prediction. Backward ignores the output gradient and
// accumulates pred.grad += (pred − target) / batch.
type SquareLossOp struct {
	node
	diff *tensor.Tensor
}

func newSquareLoss(g *Graph, name string, _ Args) (Operation, error) {
	return &SquareLossOp{node: node{name: name, kind: KindSquareLoss, graph: g}}, nil
}

// Forward returns a copy of the prediction.
func (op *SquareLossOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 1, 1); err != nil {
		return nil, err
	}
	pred := inputs[0].Value()
	if pred.Rank() == 0 {
		return nil, op.shapeError("prediction must have a batch dimension, got %v", pred.Shape())
	}
	op.diff = nil
	return op.commit(op, inputs, pred.Clone()), nil
}

// Loss records target (same shape as the prediction) and returns the loss.
func (op *SquareLossOp) Loss(target *Variable) (float64, error) {
	if op.output == nil {
		return 0, errors.Wrapf(ErrMissingTarget, "%s", op.describe("Loss called before Forward"))
	}
	if target == nil {
		return 0, errors.Wrapf(ErrInvalidTarget, "%s", op.describe("nil target"))
	}
	diff, err := op.output.Value().Sub(target.Value())
	if err != nil {
		return 0, op.shapeError("target %v, prediction %v", target.Shape(), op.output.Shape())
	}
	op.diff = diff
	var sq float64
	for _, d := range diff.Data() {
		sq += d * d
	}
	return 0.5 * sq / float64(op.batch()), nil
}

func (op *SquareLossOp) batch() int {
	return op.output.Shape()[0]
}

// Backward accumulates (pred − target)/batch into the prediction.
func (op *SquareLossOp) Backward() error {
	if op.diff == nil {
		return errors.Wrapf(ErrMissingTarget, "%s", op.describe("Backward called without Loss"))
	}
	if !op.begin() {
		return nil
	}
	if err := op.inputs[0].AccumulateGradient(op.diff.Scale(1 / float64(op.batch()))); err != nil {
		return err
	}
	return op.propagate()
}
