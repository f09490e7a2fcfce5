package ingest

import "errors"

var (
	// ErrInvalidMaxAttempts indicates a retry policy with a non-positive
	// attempt count.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrTaskNotFound indicates the registry has no task with the given ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrSourceRequired indicates a loader was constructed without a
	// catalog source.
	ErrSourceRequired = errors.New("catalog source is required")

	// ErrStoreRequired indicates a loader was constructed without a
	// vector store.
	ErrStoreRequired = errors.New("vector store is required")
)
