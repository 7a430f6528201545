package checkpoint

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// ValidateTensorName rejects empty or overlong names and names with path separators, "..", or
// null bytes.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Err: ErrInvalidTensorName, Details: "empty name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name[:32] + "...",
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.Contains(name, ".."):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains '..'"}
	case strings.ContainsAny(name, "/\\"):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains path separator (/ or \\)"}
	case strings.Contains(name, "\x00"):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains null byte"}
	case name == metadataKey:
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "reserved"}
	}
	return nil
}

// validateOffsets checks for out-of-bounds and overlapping tensor regions.
func validateOffsets(entries []entry, dataSize int64) error {
	if len(entries) > MaxTensorCount {
		return &ValidationError{Err: ErrInvalidHeader, Details: fmt.Sprintf("%d tensors, max %d", len(entries), MaxTensorCount)}
	}
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b entry) int {
		return cmp.Compare(a.begin(), b.begin())
	})
	for i, e := range sorted {
		begin, end := e.begin(), e.end()
		if begin < 0 || end < begin {
			return &ValidationError{Err: ErrOutOfBounds, Tensor: e.name, Details: fmt.Sprintf("offsets [%d, %d)", begin, end)}
		}
		if end > dataSize {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  e.name,
				Details: fmt.Sprintf("end offset %d > data size %d", end, dataSize),
			}
		}
		if i < len(sorted)-1 && end > sorted[i+1].begin() {
			next := sorted[i+1]
			return &ValidationError{
				Err:     ErrOffsetOverlap,
				Tensor:  e.name,
				Tensor2: next.name,
				Details: fmt.Sprintf("regions [%d, %d) and [%d, %d) overlap", begin, end, next.begin(), next.end()),
			}
		}
	}
	return nil
}
