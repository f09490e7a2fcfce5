package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/vecsync/vector"
)

const defaultTopK = 5

// Searcher answers free-text product queries from the vector store.
type Searcher struct {
	store  vector.Store
	logger *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSearcher creates a new searcher over the given store.
func NewSearcher(store vector.Store, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	s := &Searcher{
		store:  store,
		logger: slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Query returns up to topK documents relevant to the query text.
// A non-positive topK uses the default result count.
func (s *Searcher) Query(ctx context.Context, query string, topK int) ([]vector.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	docs, err := s.store.SimilaritySearch(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search completed", "query", query, "hits", len(docs))
	return docs, nil
}
