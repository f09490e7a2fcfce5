package reconcile

import "errors"

var (
	// ErrStoreRequired indicates a reconciler was constructed without a
	// vector store.
	ErrStoreRequired = errors.New("vector store is required")

	// ErrSourceRequired indicates a reconciler was constructed without a
	// catalog source.
	ErrSourceRequired = errors.New("catalog source is required")
)
