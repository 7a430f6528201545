// Package nn builds trainable models on top of the autodiff engine.
//
// This package provides:
//   - Model interface: what the trainer and gradient checker drive
//   - Sequential: a chain of graph operations terminated by a loss operation
//   - NewLinear: affine layer + softmax loss (a linear classifier)
//   - NewMLP: affine → activation → affine + softmax loss
//
// Every model owns its Graph, so parameters, trace and optimizer are per model.
package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/tensor"
)

// Model is a differentiable network with a loss head.
//
// A training step is Forward, Loss, Backward, then an optimizer update (Graph().Step), or all of
// it at once with Graph().TrainStep.
type Model interface {
	// Graph returns the graph owning the model's parameters and trace.
	Graph() *autodiff.Graph

	// Forward runs the network on a [batch, features] input and returns the loss head's output
	// (class probabilities for softmax models).
	Forward(x *autodiff.Variable) (*autodiff.Variable, error)

	// Loss scores the last Forward against target.
	Loss(target *autodiff.Variable) (float64, error)

	// Backward back-propagates the last Forward/Loss through the graph.
	Backward() error

	// Clone builds an independent copy (new graph) with the same parameter values.
	Clone() (Model, error)
}

// Predict runs Forward in evaluation mode and returns the arg-max class of every row.
func Predict(m Model, x *tensor.Tensor) ([]int, error) {
	g := m.Graph()
	wasTraining := g.Training()
	g.SetTraining(false)
	defer g.SetTraining(wasTraining)

	out, err := m.Forward(autodiff.NewVariable(x))
	if err != nil {
		return nil, err
	}
	return out.Value().ArgMaxRows()
}

// Sequential chains operations of one graph; the last one must be a loss operation.
//
// Example:
//
//	g := autodiff.NewGraph("net")
//	fc, _ := g.CreateOperation(autodiff.KindAffine, autodiff.Args{"input_size": 4, "hidden_size": 3}, "")
//	head, _ := g.CreateOperation(autodiff.KindSoftmaxLoss, nil, "")
//	model, _ := nn.NewSequential(g, fc, head)
type Sequential struct {
	graph  *autodiff.Graph
	layers []autodiff.Operation
	head   autodiff.LossOperation

	rebuild func() (*Sequential, error)
}

// NewSequential creates a Sequential model from operations created on g.
func NewSequential(g *autodiff.Graph, ops ...autodiff.Operation) (*Sequential, error) {
	if len(ops) == 0 {
		return nil, errors.Wrap(autodiff.ErrInvalidArgument, "NewSequential: no operations")
	}
	head, ok := ops[len(ops)-1].(autodiff.LossOperation)
	if !ok {
		return nil, errors.Wrapf(autodiff.ErrInvalidArgument, "NewSequential: last operation %q is not a loss", ops[len(ops)-1].Name())
	}
	return &Sequential{
		graph:  g,
		layers: ops[:len(ops)-1],
		head:   head,
	}, nil
}

// Graph implements Model.
func (s *Sequential) Graph() *autodiff.Graph {
	return s.graph
}

// Layers returns the operations before the loss head.
func (s *Sequential) Layers() []autodiff.Operation {
	return s.layers
}

// Head returns the loss operation.
func (s *Sequential) Head() autodiff.LossOperation {
	return s.head
}

// Forward implements Model.
func (s *Sequential) Forward(x *autodiff.Variable) (*autodiff.Variable, error) {
	h := x
	for _, op := range s.layers {
		var err error
		if h, err = op.Forward(h); err != nil {
			return nil, err
		}
	}
	return s.head.Forward(h)
}

// Loss implements Model.
func (s *Sequential) Loss(target *autodiff.Variable) (float64, error) {
	return s.head.Loss(target)
}

// Backward implements Model.
func (s *Sequential) Backward() error {
	return s.graph.Backward()
}

// Clone implements Model. Only models built by NewLinear or NewMLP can be cloned.
func (s *Sequential) Clone() (Model, error) {
	if s.rebuild == nil {
		return nil, errors.New("Clone: model was not built by a constructor of this package")
	}
	clone, err := s.rebuild()
	if err != nil {
		return nil, err
	}
	if err := clone.graph.CopyParametersFrom(s.graph); err != nil {
		return nil, err
	}
	clone.graph.SetTraining(s.graph.Training())
	return clone, nil
}
