package autodiff

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// SoftmaxLossOp turns logits [batch, classes] into class probabilities and scores them with the
// mean cross-entropy against integer class targets.
//
// Forward output is the probability matrix (row softmax, max-shifted). Loss takes the targets
// as a [batch] variable of class indices. Backward ignores the output gradient and accumulates
//
//	logits.grad += (p − onehot(target)) / batch
type SoftmaxLossOp struct {
	node
	logProbs *tensor.Tensor
	probs    *tensor.Tensor
	target   []int
}

func newSoftmaxLoss(g *Graph, name string, _ Args) (Operation, error) {
	return &SoftmaxLossOp{node: node{name: name, kind: KindSoftmaxLoss, graph: g}}, nil
}

// Forward returns the row-wise softmax of the logits.
func (op *SoftmaxLossOp) Forward(inputs ...*Variable) (*Variable, error) {
	if err := op.checkArity(inputs, 1, 1); err != nil {
		return nil, err
	}
	logits := inputs[0].Value()
	if logits.Rank() != 2 {
		return nil, op.shapeError("logits %v, want [batch, classes]", logits.Shape())
	}
	logProbs := logits.Clone()
	for i := range logits.Shape()[0] {
		row := logProbs.Row(i)
		maxVal := math.Inf(-1)
		for _, v := range row {
			maxVal = math.Max(maxVal, v)
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(v - maxVal)
		}
		logZ := maxVal + math.Log(sumExp)
		for j := range row {
			row[j] -= logZ
		}
	}
	op.logProbs = logProbs
	op.probs = logProbs.Apply(math.Exp)
	op.target = nil
	return op.commit(op, inputs, op.probs.Clone()), nil
}

// Loss records the class-index targets and returns the mean cross-entropy.
func (op *SoftmaxLossOp) Loss(target *Variable) (float64, error) {
	if op.logProbs == nil {
		return 0, errors.Wrapf(ErrMissingTarget, "%s", op.describe("Loss called before Forward"))
	}
	if target == nil {
		return 0, errors.Wrapf(ErrInvalidTarget, "%s", op.describe("nil target"))
	}
	batch, classes := op.logProbs.Shape()[0], op.logProbs.Shape()[1]
	if target.Value().Len() != batch || target.Shape().Rank() > 2 {
		return 0, op.shapeError("target %v, want [%d] class indices", target.Shape(), batch)
	}
	labels := make([]int, batch)
	var loss float64
	for i, v := range target.Value().Data() {
		label := int(v)
		if float64(label) != v || label < 0 || label >= classes {
			return 0, errors.Wrapf(ErrInvalidTarget, "%s", op.describe("target[%d]=%v is not a class index in [0, %d)", i, v, classes))
		}
		labels[i] = label
		loss -= op.logProbs.At(i, label)
	}
	op.target = labels
	return loss / float64(batch), nil
}

// Backward accumulates the cross-entropy gradient into the logits.
func (op *SoftmaxLossOp) Backward() error {
	if op.target == nil {
		return errors.Wrapf(ErrMissingTarget, "%s", op.describe("Backward called without Loss"))
	}
	if !op.begin() {
		return nil
	}
	batch := op.probs.Shape()[0]
	delta := op.probs.Clone()
	for i, label := range op.target {
		delta.Set(delta.At(i, label)-1, i, label)
	}
	if err := op.inputs[0].AccumulateGradient(delta.Scale(1 / float64(batch))); err != nil {
		return err
	}
	return op.propagate()
}
