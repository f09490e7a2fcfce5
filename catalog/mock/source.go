package mock

import (
	"context"
	"sync"

	"github.com/poiesic/vecsync/catalog"
	"github.com/poiesic/vecsync/core"
)

// MockSource is a test double for catalog.Source.
// It allows custom behavior injection via function fields; without them it
// serves pages from the Items slice using the requested page size.
type MockSource struct {
	// Items is the full backing data set served by the default behavior.
	Items []*core.CatalogItem

	// ReportTotals controls whether default pages carry total counts.
	ReportTotals bool

	// FetchPageFunc is called by FetchPage if set.
	FetchPageFunc func(ctx context.Context, query catalog.PageQuery) (*catalog.Page, error)

	// FetchItemFunc is called by FetchItem if set.
	FetchItemFunc func(ctx context.Context, id int64) (*core.CatalogItem, error)

	mu        sync.Mutex
	pageCalls []int
	itemCalls []int64
}

var _ catalog.Source = (*MockSource)(nil)

// NewMockSource creates a mock source backed by the given items.
func NewMockSource(items []*core.CatalogItem) *MockSource {
	return &MockSource{Items: items, ReportTotals: true}
}

// FetchPage serves one page of the backing items.
func (m *MockSource) FetchPage(ctx context.Context, query catalog.PageQuery) (*catalog.Page, error) {
	m.mu.Lock()
	m.pageCalls = append(m.pageCalls, query.PageNo)
	m.mu.Unlock()

	if m.FetchPageFunc != nil {
		return m.FetchPageFunc(ctx, query)
	}

	start := (query.PageNo - 1) * query.PageSize
	if start < 0 || start >= len(m.Items) {
		return &catalog.Page{}, nil
	}
	end := start + query.PageSize
	if end > len(m.Items) {
		end = len(m.Items)
	}

	page := &catalog.Page{Items: m.Items[start:end]}
	if m.ReportTotals {
		page.TotalItems = int64(len(m.Items))
		page.TotalPages = (len(m.Items) + query.PageSize - 1) / query.PageSize
	}
	return page, nil
}

// FetchItem looks up an item by ID in the backing slice.
func (m *MockSource) FetchItem(ctx context.Context, id int64) (*core.CatalogItem, error) {
	m.mu.Lock()
	m.itemCalls = append(m.itemCalls, id)
	m.mu.Unlock()

	if m.FetchItemFunc != nil {
		return m.FetchItemFunc(ctx, id)
	}

	for _, item := range m.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, catalog.ErrItemNotFound
}

// PageCalls returns the page numbers requested so far.
func (m *MockSource) PageCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.pageCalls))
	copy(out, m.pageCalls)
	return out
}

// ItemCalls returns the item IDs requested so far.
func (m *MockSource) ItemCalls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.itemCalls))
	copy(out, m.itemCalls)
	return out
}
