package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vecsync/catalog"
	catalogmock "github.com/poiesic/vecsync/catalog/mock"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/vector"
	vectormock "github.com/poiesic/vecsync/vector/mock"
)

func makeItems(n int) []*core.CatalogItem {
	items := make([]*core.CatalogItem, n)
	for i := range items {
		items[i] = &core.CatalogItem{
			ID:   int64(i + 1),
			Name: fmt.Sprintf("Product %d", i+1),
		}
	}
	return items
}

func newTestLoader(t *testing.T, source catalog.Source, store vector.Store, opts ...LoaderOption) (*Loader, *Registry) {
	t.Helper()
	registry := NewRegistry()
	committer := fastCommitter(store, registry)
	opts = append([]LoaderOption{WithBatchDelay(0)}, opts...)
	loader, err := NewLoader(source, committer, registry, opts...)
	require.NoError(t, err)
	return loader, registry
}

func TestLoaderRequiresDependencies(t *testing.T) {
	registry := NewRegistry()
	committer := fastCommitter(vectormock.NewMockStore(), registry)

	_, err := NewLoader(nil, committer, registry)
	assert.ErrorIs(t, err, ErrSourceRequired)

	_, err = NewLoader(catalogmock.NewMockSource(nil), nil, registry)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestLoaderFullRun(t *testing.T) {
	source := catalogmock.NewMockSource(makeItems(25))
	store := vectormock.NewMockStore()
	loader, registry := newTestLoader(t, source, store,
		WithPageSize(10), WithBatchSize(3))

	taskID, err := loader.Run(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	// Pages of 10, 10, 5 split into batches of 3: 4 + 4 + 2 writes.
	assert.Equal(t, 10, store.AddCalls())
	assert.Len(t, store.Documents(), 25)

	progress, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, progress.Status)
	assert.Equal(t, 25, progress.ProcessedItems)
	assert.Equal(t, 25, progress.TotalItems)
	assert.Equal(t, 3, progress.TotalPages)
}

func TestLoaderEmptyCatalog(t *testing.T) {
	source := catalogmock.NewMockSource(nil)
	store := vectormock.NewMockStore()
	loader, registry := newTestLoader(t, source, store)

	taskID, err := loader.Run(context.Background(), "")
	require.NoError(t, err)

	progress, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, progress.Status)
	assert.Zero(t, progress.ProcessedItems)
	assert.Zero(t, store.AddCalls())
}

func TestLoaderFetchFailureFailsTask(t *testing.T) {
	source := catalogmock.NewMockSource(makeItems(30))
	fetchErr := errors.New("catalog unavailable")
	source.FetchPageFunc = func(ctx context.Context, query catalog.PageQuery) (*catalog.Page, error) {
		if query.PageNo >= 2 {
			return nil, fetchErr
		}
		return &catalog.Page{Items: source.Items[:query.PageSize]}, nil
	}
	store := vectormock.NewMockStore()
	loader, registry := newTestLoader(t, source, store, WithPageSize(10))

	taskID, err := loader.Run(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)

	progress, gerr := registry.Get(context.Background(), taskID)
	require.NoError(t, gerr)
	assert.Equal(t, core.TaskFailed, progress.Status)
	assert.NotEmpty(t, progress.ErrorMessage)
	assert.Equal(t, 2, progress.CurrentPage, "failed page is preserved for resume")
	assert.Equal(t, 10, progress.ProcessedItems, "first page was committed")
}

func TestLoaderResume(t *testing.T) {
	source := catalogmock.NewMockSource(makeItems(30))
	store := vectormock.NewMockStore()
	loader, registry := newTestLoader(t, source, store, WithPageSize(10))

	// Simulate a prior interrupted run that finished page 1.
	registry.GetOrCreate(context.Background(), "resume-task")
	require.NoError(t, registry.Update(context.Background(), "resume-task", func(p *core.LoadProgress) {
		p.Status = core.TaskFailed
		p.CurrentPage = 2
		p.ProcessedItems = 10
		p.ErrorMessage = "task interrupted"
	}))

	taskID, err := loader.Run(context.Background(), "resume-task")
	require.NoError(t, err)
	assert.Equal(t, "resume-task", taskID)

	// Pages 2 and 3 only.
	assert.NotContains(t, source.PageCalls(), 1)
	assert.Len(t, store.Documents(), 20)

	progress, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, progress.Status)
	assert.Equal(t, 30, progress.ProcessedItems)
	assert.Empty(t, progress.ErrorMessage)
}

func TestLoaderCompletedTaskIsNoOp(t *testing.T) {
	source := catalogmock.NewMockSource(makeItems(5))
	store := vectormock.NewMockStore()
	loader, registry := newTestLoader(t, source, store)

	registry.GetOrCreate(context.Background(), "done-task")
	require.NoError(t, registry.Update(context.Background(), "done-task", func(p *core.LoadProgress) {
		p.Status = core.TaskCompleted
	}))

	_, err := loader.Run(context.Background(), "done-task")
	require.NoError(t, err)
	assert.Empty(t, source.PageCalls())
}

func TestLoaderPauseStopsAtPageBoundary(t *testing.T) {
	source := catalogmock.NewMockSource(makeItems(50))
	store := vectormock.NewMockStore()
	loader, registry := newTestLoader(t, source, store, WithPageSize(10))

	// Pause the task after the first page is fetched.
	taskID := "pause-task"
	registry.GetOrCreate(context.Background(), taskID)
	source.FetchPageFunc = func(ctx context.Context, query catalog.PageQuery) (*catalog.Page, error) {
		if query.PageNo == 1 {
			require.NoError(t, registry.Pause(ctx, taskID))
		}
		start := (query.PageNo - 1) * query.PageSize
		return &catalog.Page{Items: source.Items[start : start+query.PageSize]}, nil
	}

	_, err := loader.Run(context.Background(), taskID)
	require.NoError(t, err)

	progress, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskPaused, progress.Status)
	assert.Equal(t, 10, progress.ProcessedItems, "page in flight completes before pausing")
	assert.Equal(t, 2, progress.CurrentPage)
}

func TestLoaderContextCancellation(t *testing.T) {
	source := catalogmock.NewMockSource(makeItems(50))
	store := vectormock.NewMockStore()
	loader, registry := newTestLoader(t, source, store, WithPageSize(10))

	ctx, cancel := context.WithCancel(context.Background())
	source.FetchPageFunc = func(fctx context.Context, query catalog.PageQuery) (*catalog.Page, error) {
		if query.PageNo == 2 {
			cancel()
		}
		start := (query.PageNo - 1) * query.PageSize
		return &catalog.Page{Items: source.Items[start : start+query.PageSize]}, nil
	}

	taskID, err := loader.Run(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	progress, gerr := registry.Get(context.Background(), taskID)
	require.NoError(t, gerr)
	assert.Equal(t, core.TaskFailed, progress.Status)
	assert.Equal(t, "task interrupted", progress.ErrorMessage)
}

func TestLoaderSkipsDroppedBatchesButContinues(t *testing.T) {
	source := catalogmock.NewMockSource(makeItems(20))
	store := vectormock.NewMockStore()
	registry := NewRegistry()

	// Every write fails persistently, even per-document.
	store.AddDocumentsFunc = func(ctx context.Context, docs []vector.Document) error {
		return vector.Persistent("add", errors.New("index corrupted"))
	}

	committer := NewCommitter(store, registry,
		WithPersistentPolicy(Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Backoff: BackoffLinear}),
		WithItemPolicy(Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Backoff: BackoffLinear}),
		WithItemDelay(0),
	)
	loader, err := NewLoader(source, committer, registry, WithPageSize(10), WithBatchDelay(0))
	require.NoError(t, err)

	taskID, err := loader.Run(context.Background(), "")
	require.NoError(t, err, "write failures degrade, they do not abort")

	progress, err := registry.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, progress.Status)
	assert.Zero(t, progress.ProcessedItems)
}
