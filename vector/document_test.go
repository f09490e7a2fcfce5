package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vecsync/core"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }

func TestDocumentFromItemFullRecord(t *testing.T) {
	item := &core.CatalogItem{
		ID:           42,
		Name:         "Trail Runner",
		Category:     strPtr("Shoes"),
		Brand:        strPtr("Acme"),
		Price:        int64Ptr(8999),
		Stock:        intPtr(12),
		Spec:         strPtr("Sizes 36-46"),
		Sold:         intPtr(310),
		CommentCount: intPtr(57),
	}

	doc := DocumentFromItem(item)

	assert.Contains(t, doc.Content, "Product name: Trail Runner")
	assert.Contains(t, doc.Content, "Category: Shoes")
	assert.Contains(t, doc.Content, "Brand: Acme")
	assert.Contains(t, doc.Content, "Price: 8999")
	assert.Contains(t, doc.Content, "Specification: Sizes 36-46")
	assert.Contains(t, doc.Content, "Stock: 12")
	assert.Contains(t, doc.Content, "Sold: 310")
	assert.Contains(t, doc.Content, "Comments: 57")

	assert.Equal(t, "42", doc.Metadata["id"])
	assert.Equal(t, "Trail Runner", doc.Metadata["name"])
	assert.Equal(t, "Acme", doc.Metadata["brand"])
	assert.Equal(t, int64(8999), doc.Metadata["price"])
	assert.Equal(t, DocTypeProduct, doc.Metadata["type"])
	assert.Equal(t, "42", doc.MetadataID())
}

func TestDocumentFromItemDegenerateRecord(t *testing.T) {
	item := &core.CatalogItem{ID: 7, Name: "Mystery Box"}

	doc := DocumentFromItem(item)
	assert.Equal(t, "Product name: Mystery Box", doc.Content)

	// Every metadata key is present, absent fields as nil.
	for _, key := range []string{"category", "brand", "price", "stock", "image", "spec", "sold", "commentCount", "isAD", "status"} {
		require.Contains(t, doc.Metadata, key)
		assert.Nil(t, doc.Metadata[key], "key %s should be nil", key)
	}
	assert.Equal(t, "7", doc.Metadata["id"])
}

func TestDocumentFromItemDeterministicID(t *testing.T) {
	item := &core.CatalogItem{ID: 7, Name: "Widget", Brand: strPtr("Acme")}

	first := DocumentFromItem(item)
	second := DocumentFromItem(item)
	assert.Equal(t, first.ID, second.ID, "unchanged item maps to the same document")

	item.Brand = strPtr("Other")
	changed := DocumentFromItem(item)
	assert.NotEqual(t, first.ID, changed.ID, "content change produces a new document ID")
}

func TestDocumentFromItemIDDistinguishesItems(t *testing.T) {
	a := DocumentFromItem(&core.CatalogItem{ID: 1, Name: "Same"})
	b := DocumentFromItem(&core.CatalogItem{ID: 2, Name: "Same"})
	assert.NotEqual(t, a.ID, b.ID, "identical content on different items must not collide")
}

func TestMetadataID(t *testing.T) {
	doc := Document{Metadata: map[string]any{"id": "42"}}
	assert.Equal(t, "42", doc.MetadataID())

	assert.Empty(t, Document{}.MetadataID())
	assert.Empty(t, Document{Metadata: map[string]any{"id": 42}}.MetadataID())
}
