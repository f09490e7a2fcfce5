package search

import "errors"

var (
	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrEmptyQuery is returned for blank search queries.
	ErrEmptyQuery = errors.New("query must not be empty")
)
