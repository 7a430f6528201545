package autodiff

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Errors returned by the engine. They are wrapped with context, test with errors.Is.
var (
	// ErrShapeMismatch reports incompatible operand or parameter shapes.
	ErrShapeMismatch = tensor.ErrShapeMismatch

	// ErrArity reports a forward call with the wrong number of operands.
	ErrArity = errors.New("wrong number of operands")

	// ErrUnknownOperation reports a factory request for an unregistered operation kind.
	ErrUnknownOperation = errors.New("unknown operation kind")

	// ErrInvalidArgument reports a missing or malformed operation argument.
	ErrInvalidArgument = errors.New("invalid operation argument")

	// ErrMissingTarget reports a loss backward without a prior Loss call.
	ErrMissingTarget = errors.New("loss target not set")

	// ErrInvalidTarget reports a class-index target outside [0, classes).
	ErrInvalidTarget = errors.New("invalid loss target")

	// ErrNoOptimizer reports Step on a graph without an optimizer.
	ErrNoOptimizer = errors.New("graph has no optimizer")
)
