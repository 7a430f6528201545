package autodiff

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Kind identifies an operation variant in the registry.
type Kind string

// Built-in operation kinds.
const (
	KindAdd         Kind = "add"
	KindMultiply    Kind = "multiply"
	KindMatMul      Kind = "matmul"
	KindReLU        Kind = "relu"
	KindSigmoid     Kind = "sigmoid"
	KindTanh        Kind = "tanh"
	KindAffine      Kind = "affine"
	KindSoftmaxLoss Kind = "softmax_loss"
	KindSquareLoss  Kind = "square_loss"
)

// Operation is a differentiable node with paired forward and backward passes.
//
// An operation instance is created once per logical graph position (see Graph.CreateOperation)
// and reused across passes. Forward overwrites the captured inputs, output and cached
// intermediates, so one instance must not be used by concurrent or interleaved passes.
type Operation interface {
	// Name returns the unique name given by the graph (e.g. "affine_0").
	Name() string

	// Kind returns the registered variant of this operation.
	Kind() Kind

	// Forward validates its operands, computes the output variable and, in training mode,
	// records the operation on the graph trace. No state is mutated when it fails.
	Forward(inputs ...*Variable) (*Variable, error)

	// Backward accumulates gradient contributions into the inputs captured by the last Forward
	// and propagates into them. It runs at most once per forward pass.
	Backward() error

	// Inputs returns the inputs captured by the last Forward.
	Inputs() []*Variable

	// Output returns the output produced by the last Forward.
	Output() *Variable
}

// LossOperation is an operation that terminates a chain with a scalar loss.
//
// Its backward seeds the gradient from the target passed to Loss instead of reading the output
// gradient.
type LossOperation interface {
	Operation

	// Loss records target for the next backward and returns the scalar loss of the last Forward.
	Loss(target *Variable) (float64, error)
}

// Args carries construction arguments for an operation factory.
type Args map[string]any

// Int returns a positive integer argument.
func (a Args) Int(key string) (int, error) {
	raw, ok := a[key]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidArgument, "missing argument %q", key)
	}
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != float64(int(v)) {
			return 0, errors.Wrapf(ErrInvalidArgument, "argument %q=%v is not an integer", key, v)
		}
		n = int(v)
	default:
		return 0, errors.Wrapf(ErrInvalidArgument, "argument %q has type %T, want int", key, raw)
	}
	if n <= 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "argument %q=%d must be > 0", key, n)
	}
	return n, nil
}

// node holds the state shared by every operation variant.
type node struct {
	name   string
	kind   Kind
	graph  *Graph
	inputs []*Variable
	output *Variable
	done   bool
}

// Name implements Operation.
func (n *node) Name() string { return n.name }

// Kind implements Operation.
func (n *node) Kind() Kind { return n.kind }

// Inputs implements Operation.
func (n *node) Inputs() []*Variable { return n.inputs }

// Output implements Operation.
func (n *node) Output() *Variable { return n.output }

func (n *node) String() string { return fmt.Sprintf("%s(%s)", n.kind, n.name) }

func (n *node) describe(format string, args ...any) string {
	return n.name + ": " + fmt.Sprintf(format, args...)
}

// checkArity validates the operand count.
func (n *node) checkArity(inputs []*Variable, minimum, maximum int) error {
	if len(inputs) < minimum || (maximum >= 0 && len(inputs) > maximum) {
		if minimum == maximum {
			return errors.Wrapf(ErrArity, "%s", n.describe("got %d operands, want %d", len(inputs), minimum))
		}
		return errors.Wrapf(ErrArity, "%s", n.describe("got %d operands, want at least %d", len(inputs), minimum))
	}
	for i, in := range inputs {
		if in == nil {
			return errors.Wrapf(ErrInvalidArgument, "%s", n.describe("operand %d is nil", i))
		}
	}
	return nil
}

// shapeError wraps ErrShapeMismatch with the operation name.
func (n *node) shapeError(format string, args ...any) error {
	return errors.Wrapf(ErrShapeMismatch, "%s", n.describe(format, args...))
}

// commit finishes a successful forward: it captures the inputs, builds the output variable,
// bumps the pending counter of each distinct input and records self on the graph trace.
// It must only be called after every validation has passed.
func (n *node) commit(self Operation, inputs []*Variable, value *tensor.Tensor) *Variable {
	n.inputs = append([]*Variable(nil), inputs...)
	n.output = newOutputVariable(value, self)
	n.done = false
	for _, in := range distinct(inputs) {
		in.pending++
	}
	if n.graph != nil && n.graph.Training() {
		n.graph.Record(self)
	}
	return n.output
}

// begin marks the operation as back-propagated; it returns false if that already happened in
// this pass or if no forward ran.
func (n *node) begin() bool {
	if n.done || n.output == nil {
		return false
	}
	n.done = true
	return true
}

// propagate runs Backward on every distinct input, after gradients were accumulated.
func (n *node) propagate() error {
	for _, in := range distinct(n.inputs) {
		if err := in.Backward(); err != nil {
			return err
		}
	}
	return nil
}

// distinct returns inputs without repeated variables, keeping first-occurrence order.
func distinct(inputs []*Variable) []*Variable {
	if len(inputs) < 2 {
		return inputs
	}
	seen := make(map[*Variable]struct{}, len(inputs))
	out := make([]*Variable, 0, len(inputs))
	for _, in := range inputs {
		if _, ok := seen[in]; ok {
			continue
		}
		seen[in] = struct{}{}
		out = append(out, in)
	}
	return out
}
