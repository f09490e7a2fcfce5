package catalog

import (
	"context"

	"github.com/poiesic/vecsync/core"
)

// PageQuery describes one page request against the catalog service.
type PageQuery struct {
	PageNo    int
	PageSize  int
	SortBy    string
	Ascending bool
}

// Page is one page of catalog items. TotalItems and TotalPages are zero
// when the upstream response does not report them.
type Page struct {
	Items      []*core.CatalogItem
	TotalItems int64
	TotalPages int
}

// Source provides read access to the external catalog service.
// Implementations must be thread-safe for concurrent use.
//
// Source carries no retry logic. Transient failures surface to the caller,
// which decides whether a failed page is fatal or requeued.
type Source interface {
	// FetchPage retrieves one page of catalog items.
	// An empty Items slice signals end-of-data. A page shorter than the
	// requested size is also an end-of-data signal.
	FetchPage(ctx context.Context, query PageQuery) (*Page, error)

	// FetchItem retrieves a single catalog item by ID.
	// Returns ErrItemNotFound if the item does not exist upstream.
	FetchItem(ctx context.Context, id int64) (*core.CatalogItem, error)
}
