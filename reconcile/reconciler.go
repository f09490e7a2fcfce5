// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/poiesic/vecsync/catalog"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/vector"
)

// staleSearchTopK bounds the lookup for documents belonging to an item.
// One item maps to one document today; the headroom covers documents
// left behind by older content revisions.
const staleSearchTopK = 10

// Reconciler applies single-item catalog changes to the vector store.
type Reconciler struct {
	store  vector.Store
	source catalog.Source
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given store and source.
func NewReconciler(store vector.Store, source catalog.Source) (*Reconciler, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if source == nil {
		return nil, ErrSourceRequired
	}
	return &Reconciler{
		store:  store,
		source: source,
		logger: slog.Default().With("component", "reconciler"),
	}, nil
}

// Apply routes an event to its handler by event type.
func (r *Reconciler) Apply(ctx context.Context, event *core.SyncEvent) error {
	if err := core.ValidateSyncEvent(event); err != nil {
		return err
	}

	switch event.EventType {
	case core.EventCreate:
		return r.HandleCreate(ctx, event)
	case core.EventUpdate:
		return r.HandleUpdate(ctx, event)
	case core.EventDelete:
		return r.HandleDelete(ctx, event)
	default:
		return fmt.Errorf("%w: %s", core.ErrUnknownEventType, event.EventType)
	}
}

// HandleCreate indexes the item named by the event. When the event does
// not carry the item payload, it is fetched from the catalog; an item
// that no longer exists there is skipped with a warning, since a
// deletion has evidently overtaken this event.
func (r *Reconciler) HandleCreate(ctx context.Context, event *core.SyncEvent) error {
	item := event.Item
	if item == nil {
		fetched, err := r.source.FetchItem(ctx, event.ItemID)
		if err != nil {
			r.logger.Warn("item not retrievable, skipping event",
				"itemId", event.ItemID, "eventType", event.EventType, "error", err)
			return nil
		}
		item = fetched
	}
	if item == nil {
		r.logger.Warn("item missing from catalog, skipping event",
			"itemId", event.ItemID, "eventType", event.EventType)
		return nil
	}

	doc := vector.DocumentFromItem(item)
	if err := r.store.AddDocuments(ctx, []vector.Document{doc}); err != nil {
		return fmt.Errorf("failed to index item %d: %w", event.ItemID, err)
	}
	r.logger.Info("item indexed", "itemId", event.ItemID, "documentId", doc.ID)
	return nil
}

// HandleUpdate replaces the item's documents with a fresh one. Stale
// document removal is best-effort; the add is what must succeed.
func (r *Reconciler) HandleUpdate(ctx context.Context, event *core.SyncEvent) error {
	r.deleteItemDocuments(ctx, event.ItemID)
	return r.HandleCreate(ctx, event)
}

// HandleDelete removes the item's documents from the store. Failures
// are logged and swallowed so a missing document never poisons the
// event stream.
func (r *Reconciler) HandleDelete(ctx context.Context, event *core.SyncEvent) error {
	r.deleteItemDocuments(ctx, event.ItemID)
	return nil
}

// BatchSync indexes a slice of items in one store write.
func (r *Reconciler) BatchSync(ctx context.Context, items []*core.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]vector.Document, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		docs = append(docs, vector.DocumentFromItem(item))
	}
	if err := r.store.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to index batch of %d items: %w", len(docs), err)
	}
	r.logger.Info("batch indexed", "items", len(docs))
	return nil
}

// deleteItemDocuments finds and removes documents whose metadata id
// matches the item. The search query is a hint; the metadata filter is
// what decides membership.
func (r *Reconciler) deleteItemDocuments(ctx context.Context, itemID int64) {
	wantID := strconv.FormatInt(itemID, 10)

	docs, err := r.store.SimilaritySearch(ctx, "id:"+wantID, staleSearchTopK)
	if err != nil {
		r.logger.Warn("stale document lookup failed", "itemId", itemID, "error", err)
		return
	}

	var ids []string
	for _, doc := range docs {
		if doc.MetadataID() == wantID {
			ids = append(ids, doc.ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	if err := r.store.DeleteDocuments(ctx, ids); err != nil {
		r.logger.Warn("stale document removal failed", "itemId", itemID, "documents", len(ids), "error", err)
		return
	}
	r.logger.Info("stale documents removed", "itemId", itemID, "documents", len(ids))
}
