package vecstore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecstore/hnsw"
)

var (
	// ErrCapacity is matched by every *ErrCapacityExceeded via errors.Is.
	ErrCapacity = hnsw.ErrCapacity

	// ErrNonFinite is returned for vectors holding NaN or infinite components.
	ErrNonFinite = hnsw.ErrNonFinite

	// ErrInconsistent is returned when the registry, the index and the
	// metadata overlay disagree about a label. It indicates an internal fault.
	ErrInconsistent = errors.New("vecstore: registry and index are inconsistent")

	// ErrNotFound is returned by Get for unknown identifiers.
	ErrNotFound = errors.New("vecstore: identifier not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("vecstore: store is closed")

	// ErrInvalidNamespace is returned by Open for names that cannot be used
	// as a snapshot name.
	ErrInvalidNamespace = errors.New("vecstore: invalid namespace")
)

// ErrCapacityExceeded reports an upsert that would exceed the namespace capacity.
type ErrCapacityExceeded = hnsw.ErrCapacityExceeded

// ErrDimensionMismatch reports a vector of the wrong dimension.
type ErrDimensionMismatch = hnsw.ErrDimensionMismatch

// ErrInvalidDimension reports an embedder with a non-positive dimension.
type ErrInvalidDimension = hnsw.ErrInvalidDimension

// ErrEmbedding wraps a failure of the embedding collaborator. Nothing was
// mutated when it is returned.
type ErrEmbedding struct {
	Count int   // Count is the number of texts that were to be embedded.
	Cause error // Cause is the underlying error.
}

func (e *ErrEmbedding) Error() string {
	return fmt.Sprintf("vecstore: embedding %d texts: %v", e.Count, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ErrEmbedding) Unwrap() error {
	return e.Cause
}
