package mock

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/poiesic/vecsync/vector"
)

// MockStore is an in-memory test double for vector.Store.
// It allows custom behavior injection via function fields; without them it
// stores documents in a map and serves searches with a crude ranking that
// puts documents whose metadata id appears in the query first. That keeps
// the search approximate, the way a real store is, so callers exercising
// exact-match filtering are tested honestly.
type MockStore struct {
	// AddDocumentsFunc is called by AddDocuments if set.
	AddDocumentsFunc func(ctx context.Context, docs []vector.Document) error

	// SimilaritySearchFunc is called by SimilaritySearch if set.
	SimilaritySearchFunc func(ctx context.Context, query string, topK int) ([]vector.Document, error)

	// DeleteDocumentsFunc is called by DeleteDocuments if set.
	DeleteDocumentsFunc func(ctx context.Context, ids []string) error

	mu          sync.Mutex
	docs        map[string]vector.Document
	order       []string
	addCalls    int
	deleteCalls int
	deletedIDs  []string
}

var _ vector.Store = (*MockStore)(nil)

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{docs: make(map[string]vector.Document)}
}

// AddDocuments stores the documents, generating IDs for documents without one.
func (m *MockStore) AddDocuments(ctx context.Context, docs []vector.Document) error {
	m.mu.Lock()
	m.addCalls++
	m.mu.Unlock()

	if m.AddDocumentsFunc != nil {
		return m.AddDocumentsFunc(ctx, docs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = "doc-" + strconv.Itoa(len(m.order)+1)
		}
		if _, exists := m.docs[doc.ID]; !exists {
			m.order = append(m.order, doc.ID)
		}
		m.docs[doc.ID] = doc
	}
	return nil
}

// SimilaritySearch returns up to topK stored documents, id-matching first.
func (m *MockStore) SimilaritySearch(ctx context.Context, query string, topK int) ([]vector.Document, error) {
	if m.SimilaritySearchFunc != nil {
		return m.SimilaritySearchFunc(ctx, query, topK)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched, rest []vector.Document
	for _, id := range m.order {
		doc, ok := m.docs[id]
		if !ok {
			continue
		}
		metaID := doc.MetadataID()
		if metaID != "" && strings.Contains(query, metaID) {
			matched = append(matched, doc)
		} else {
			rest = append(rest, doc)
		}
	}

	out := append(matched, rest...)
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// DeleteDocuments removes documents by store ID.
func (m *MockStore) DeleteDocuments(ctx context.Context, ids []string) error {
	m.mu.Lock()
	m.deleteCalls++
	m.deletedIDs = append(m.deletedIDs, ids...)
	m.mu.Unlock()

	if m.DeleteDocumentsFunc != nil {
		return m.DeleteDocumentsFunc(ctx, ids)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
		for i, ordered := range m.order {
			if ordered == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Documents returns all stored documents in insertion order.
func (m *MockStore) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]vector.Document, 0, len(m.docs))
	for _, id := range m.order {
		if doc, ok := m.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out
}

// DocumentsByMetadataID returns stored documents whose metadata id equals itemID.
func (m *MockStore) DocumentsByMetadataID(itemID string) []vector.Document {
	var out []vector.Document
	for _, doc := range m.Documents() {
		if doc.MetadataID() == itemID {
			out = append(out, doc)
		}
	}
	return out
}

// AddCalls returns how many times AddDocuments was called.
func (m *MockStore) AddCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addCalls
}

// DeleteCalls returns how many times DeleteDocuments was called.
func (m *MockStore) DeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCalls
}

// DeletedIDs returns every store ID passed to DeleteDocuments so far.
func (m *MockStore) DeletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deletedIDs))
	copy(out, m.deletedIDs)
	return out
}
