package vector

import "context"

// Store is the write/search/delete capability of a vector database.
// Implementations must be thread-safe for concurrent use.
//
// Errors returned by a Store should carry a Kind (see StoreError) so that
// callers can distinguish transient network failures from persistent ones.
type Store interface {
	// AddDocuments embeds and writes a batch of documents in one operation.
	AddDocuments(ctx context.Context, docs []Document) error

	// SimilaritySearch returns up to topK documents ranked by semantic
	// similarity to the query text. The ranking is approximate: callers
	// that need an exact match must filter the candidates themselves.
	SimilaritySearch(ctx context.Context, query string, topK int) ([]Document, error)

	// DeleteDocuments removes documents by their store IDs.
	DeleteDocuments(ctx context.Context, ids []string) error

	// Close releases resources held by the store.
	Close() error
}
