package autodiff

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Variable is a node of the computation graph: a value, its accumulated gradient and the
// operation that produced it.
//
// Leaf variables (inputs, parameters) have no producer and keep their final gradient for the
// caller or optimizer to read. Internal variables are created by Operation.Forward.
//
// The pending-consumer counter gates propagation under fan-out: every distinct operation that
// consumes the variable increments it during forward, and every Backward call from a consumer
// decrements it. Propagation into the producer happens once, when the counter reaches zero.
type Variable struct {
	value    *tensor.Tensor
	grad     *tensor.Tensor
	producer Operation
	pending  int
}

// NewVariable creates a leaf variable wrapping value. The gradient starts at zero.
func NewVariable(value *tensor.Tensor) *Variable {
	return &Variable{
		value: value,
		grad:  tensor.ZerosLike(value),
	}
}

func newOutputVariable(value *tensor.Tensor, producer Operation) *Variable {
	v := NewVariable(value)
	v.producer = producer
	return v
}

// Value returns the tensor value. Optimizers update it in place.
func (v *Variable) Value() *tensor.Tensor {
	return v.value
}

// Grad returns the accumulated gradient.
func (v *Variable) Grad() *tensor.Tensor {
	return v.grad
}

// Shape returns the shape of the value.
func (v *Variable) Shape() tensor.Shape {
	return v.value.Shape()
}

// Producer returns the operation that created v, or nil for a leaf.
func (v *Variable) Producer() Operation {
	return v.producer
}

// IsLeaf reports whether v has no producer.
func (v *Variable) IsLeaf() bool {
	return v.producer == nil
}

// PendingConsumers returns the number of consumers that have not yet propagated a gradient.
func (v *Variable) PendingConsumers() int {
	return v.pending
}

// AccumulateGradient adds delta into the gradient. Fails with ErrShapeMismatch, without
// mutating, if shapes differ.
func (v *Variable) AccumulateGradient(delta *tensor.Tensor) error {
	if err := v.grad.AddInPlace(delta); err != nil {
		return errors.WithMessage(err, "accumulate gradient")
	}
	return nil
}

// SetGrad overwrites the gradient with a copy of g. Used to seed backward from a non-loss output.
func (v *Variable) SetGrad(g *tensor.Tensor) error {
	if err := v.grad.CopyFrom(g); err != nil {
		return errors.WithMessage(err, "set gradient")
	}
	return nil
}

// ZeroGrad resets the gradient to zero in place.
func (v *Variable) ZeroGrad() {
	v.grad.Zero()
}

// Backward propagates into the producer once all consumers have contributed.
//
// For a leaf it does nothing. Otherwise it decrements the pending counter and, when the counter
// is zero, runs the producer's backward. Calling Backward on a variable with no pending
// consumers (typically the final output) runs the producer immediately.
func (v *Variable) Backward() error {
	if v.producer == nil {
		return nil
	}
	if v.pending > 0 {
		v.pending--
	}
	if v.pending > 0 {
		return nil
	}
	return v.producer.Backward()
}
