package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amqp "github.com/rabbitmq/amqp091-go"

	catalogmock "github.com/poiesic/vecsync/catalog/mock"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/reconcile"
	"github.com/poiesic/vecsync/vector"
	vectormock "github.com/poiesic/vecsync/vector/mock"
)

// fakeAcknowledger records how a delivery was settled.
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func newTestListener(t *testing.T) (*Listener, *vectormock.MockStore) {
	t.Helper()
	store := vectormock.NewMockStore()
	source := catalogmock.NewMockSource(nil)
	reconciler, err := reconcile.NewReconciler(store, source)
	require.NoError(t, err)
	return NewListener(nil, reconciler), store
}

func delivery(t *testing.T, key string, retries int, event *core.SyncEvent) (amqp.Delivery, *fakeAcknowledger) {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	ack := &fakeAcknowledger{}
	return amqp.Delivery{
		Acknowledger: ack,
		RoutingKey:   key,
		Headers:      amqp.Table{RetryCountHeader: int32(retries)},
		Body:         body,
	}, ack
}

func TestHandleAcksSuccessfulEvent(t *testing.T) {
	listener, store := newTestListener(t)

	item := &core.CatalogItem{ID: 7, Name: "Widget"}
	d, ack := delivery(t, CreateKey, 0, core.NewSyncEvent(7, core.EventCreate, item))
	listener.handle(context.Background(), d)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.Len(t, store.DocumentsByMetadataID("7"), 1)
}

func TestHandleRequeuesFailureWithinBudget(t *testing.T) {
	listener, store := newTestListener(t)
	store.AddDocumentsFunc = func(ctx context.Context, docs []vector.Document) error {
		return errors.New("store unavailable")
	}

	item := &core.CatalogItem{ID: 7, Name: "Widget"}
	d, ack := delivery(t, CreateKey, 2, core.NewSyncEvent(7, core.EventCreate, item))
	listener.handle(context.Background(), d)

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue, "failures below the retry budget are requeued")
}

func TestHandleDropsExhaustedFailure(t *testing.T) {
	listener, store := newTestListener(t)
	store.AddDocumentsFunc = func(ctx context.Context, docs []vector.Document) error {
		return errors.New("store unavailable")
	}

	item := &core.CatalogItem{ID: 7, Name: "Widget"}
	d, ack := delivery(t, CreateKey, MaxDeliveryRetries, core.NewSyncEvent(7, core.EventCreate, item))
	listener.handle(context.Background(), d)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "exhausted messages are dropped, not requeued")
}

func TestHandleUpdateOnUpsertKey(t *testing.T) {
	listener, store := newTestListener(t)
	ctx := context.Background()

	item := &core.CatalogItem{ID: 7, Name: "Widget"}
	d, _ := delivery(t, CreateKey, 0, core.NewSyncEvent(7, core.EventCreate, item))
	listener.handle(ctx, d)

	updated := &core.CatalogItem{ID: 7, Name: "Widget v2"}
	d, ack := delivery(t, CreateKey, 0, core.NewSyncEvent(7, core.EventUpdate, updated))
	listener.handle(ctx, d)

	assert.True(t, ack.acked)
	docs := store.DocumentsByMetadataID("7")
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Widget v2")
}

func TestHandleUnknownEventTypeOnUpsertKeyTreatedAsCreate(t *testing.T) {
	listener, store := newTestListener(t)

	item := &core.CatalogItem{ID: 7, Name: "Widget"}
	event := &core.SyncEvent{ItemID: 7, EventType: "UPSERT", Item: item}
	d, ack := delivery(t, CreateKey, 0, event)
	listener.handle(context.Background(), d)

	assert.True(t, ack.acked)
	assert.Len(t, store.DocumentsByMetadataID("7"), 1)
}

func TestHandleDeleteKey(t *testing.T) {
	listener, store := newTestListener(t)
	ctx := context.Background()

	item := &core.CatalogItem{ID: 7, Name: "Widget"}
	d, _ := delivery(t, CreateKey, 0, core.NewSyncEvent(7, core.EventCreate, item))
	listener.handle(ctx, d)

	d, ack := delivery(t, DeleteKey, 0, core.NewSyncEvent(7, core.EventDelete, nil))
	listener.handle(ctx, d)

	assert.True(t, ack.acked)
	assert.Empty(t, store.DocumentsByMetadataID("7"))
}

func TestHandleUnknownRoutingKeyIsDropped(t *testing.T) {
	listener, _ := newTestListener(t)

	d, ack := delivery(t, "item.reprice", 0, core.NewSyncEvent(7, core.EventCreate, nil))
	listener.handle(context.Background(), d)

	assert.True(t, ack.acked, "unroutable events are acked away")
}

func TestHandleUndecodableBodyIsDropped(t *testing.T) {
	listener, _ := newTestListener(t)

	ack := &fakeAcknowledger{}
	d := amqp.Delivery{
		Acknowledger: ack,
		RoutingKey:   CreateKey,
		Body:         []byte("not json"),
	}
	listener.handle(context.Background(), d)

	assert.True(t, ack.acked)
}

func TestDecide(t *testing.T) {
	assert.True(t, decide(0))
	assert.True(t, decide(2))
	assert.False(t, decide(3))
	assert.False(t, decide(10))
}

func TestRetryCountCoercions(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 0, retryCount(amqp.Table{}))
	assert.Equal(t, 2, retryCount(amqp.Table{RetryCountHeader: 2}))
	assert.Equal(t, 2, retryCount(amqp.Table{RetryCountHeader: int32(2)}))
	assert.Equal(t, 2, retryCount(amqp.Table{RetryCountHeader: int64(2)}))
	assert.Equal(t, 0, retryCount(amqp.Table{RetryCountHeader: "2"}))
}
