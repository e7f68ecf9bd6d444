package hnsw

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacity is matched by every *ErrCapacityExceeded via errors.Is.
	ErrCapacity = errors.New("index capacity exceeded")

	// ErrCorrupt is returned when a serialized graph fails validation.
	ErrCorrupt = errors.New("corrupt index data")

	// ErrNonFinite is returned for vectors holding NaN or infinite components.
	ErrNonFinite = errors.New("vector has non-finite components")
)

// ErrCapacityExceeded is returned when a batch would push the number of
// stored labels past the configured capacity. The batch is rejected as a
// whole; nothing is inserted.
type ErrCapacityExceeded struct {
	Requested int // Requested is the number of new labels in the batch.
	Current   int // Current is the number of labels already stored.
	Max       int // Max is the configured capacity.
}

func (e *ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("cannot insert %d elements. current: %d, max: %d", e.Requested, e.Current, e.Max)
}

// Is reports whether target is ErrCapacity.
func (e *ErrCapacityExceeded) Is(target error) bool { return target == ErrCapacity }

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}
