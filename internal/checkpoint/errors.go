package checkpoint

import (
	"fmt"

	"github.com/pkg/errors"
)

// Common errors.
var (
	ErrInvalidHeader     = errors.New("invalid safetensors header")
	ErrHeaderTooLarge    = errors.New("header exceeds maximum size")
	ErrInvalidTensorName = errors.New("invalid tensor name")
	ErrUnsupportedDType  = errors.New("unsupported dtype")
	ErrOutOfBounds       = errors.New("tensor extends beyond data section")
	ErrOffsetOverlap     = errors.New("tensor offsets overlap")
	ErrChecksumMismatch  = errors.New("checksum mismatch: file may be corrupted")
)

// ValidationError provides detailed information about validation failures. It unwraps to one of
// the sentinel errors above.
type ValidationError struct {
	Err     error  // Sentinel error
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%v: tensors %q and %q: %s", e.Err, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%v: tensor %q: %s", e.Err, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Details)
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
