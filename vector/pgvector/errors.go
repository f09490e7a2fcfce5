package pgvector

import "errors"

var (
	// ErrEmbedderRequired indicates the store was constructed without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
