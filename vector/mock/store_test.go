package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vecsync/vector"
)

func TestDeleteThenReAddKeepsSingleEntry(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	doc := vector.Document{
		ID:       "27e20615599f660e",
		Content:  "Item: widget",
		Metadata: map[string]any{"id": "42"},
	}
	require.NoError(t, store.AddDocuments(ctx, []vector.Document{doc}))
	require.NoError(t, store.DeleteDocuments(ctx, []string{doc.ID}))
	assert.Empty(t, store.Documents())

	// Re-adding the same content-addressed ID must not leave a stale
	// ordering entry behind.
	require.NoError(t, store.AddDocuments(ctx, []vector.Document{doc}))
	assert.Len(t, store.Documents(), 1)
	assert.Len(t, store.DocumentsByMetadataID("42"), 1)
}

func TestDeleteUnknownIDIsHarmless(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, []vector.Document{{ID: "a", Content: "x"}}))
	require.NoError(t, store.DeleteDocuments(ctx, []string{"missing"}))
	assert.Len(t, store.Documents(), 1)
}
