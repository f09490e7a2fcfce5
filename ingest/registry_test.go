package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage/badger"
)

func TestRegistryGetOrCreate(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	progress := registry.GetOrCreate(ctx, "task-1")
	require.NotNil(t, progress)
	assert.Equal(t, "task-1", progress.TaskID)
	assert.Equal(t, core.TaskRunning, progress.Status)
	assert.Equal(t, 1, progress.CurrentPage)

	// Second call returns the same record.
	again := registry.GetOrCreate(ctx, "task-1")
	assert.Equal(t, progress.TaskID, again.TaskID)
}

func TestRegistryGetOrCreateReturnsCopy(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	progress := registry.GetOrCreate(ctx, "task-1")
	progress.CurrentPage = 99

	stored, err := registry.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentPage, "mutating the returned copy must not affect the registry")
}

func TestRegistryUpdate(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()
	registry.GetOrCreate(ctx, "task-1")

	err := registry.Update(ctx, "task-1", func(p *core.LoadProgress) {
		p.CurrentPage = 5
		p.ProcessedItems = 400
	})
	require.NoError(t, err)

	progress, err := registry.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 5, progress.CurrentPage)
	assert.Equal(t, 400, progress.ProcessedItems)
	assert.False(t, progress.LastUpdateTime.IsZero())
}

func TestRegistryUpdateUnknownTask(t *testing.T) {
	registry := NewRegistry()
	err := registry.Update(context.Background(), "nope", func(*core.LoadProgress) {})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRegistryAddProcessedConcurrent(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()
	registry.GetOrCreate(ctx, "task-1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				registry.AddProcessed(ctx, "task-1", 1)
			}
		}()
	}
	wg.Wait()

	progress, err := registry.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, 100, progress.ProcessedItems)
}

func TestRegistryPause(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()
	registry.GetOrCreate(ctx, "task-1")

	require.NoError(t, registry.Pause(ctx, "task-1"))
	assert.True(t, registry.IsPaused("task-1"))

	// Pausing a non-running task is a no-op.
	require.NoError(t, registry.Update(ctx, "task-1", func(p *core.LoadProgress) {
		p.Status = core.TaskCompleted
	}))
	require.NoError(t, registry.Pause(ctx, "task-1"))

	progress, err := registry.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, progress.Status)
}

func TestRegistryPauseLoadsStoredTask(t *testing.T) {
	repo, _, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	stored := core.NewLoadProgress("stored-task")
	require.NoError(t, repo.SaveProgress(ctx, stored))

	// A fresh registry can pause a task it has only on disk.
	registry := NewRegistry(WithRepository(repo))
	require.NoError(t, registry.Pause(ctx, "stored-task"))
	assert.True(t, registry.IsPaused("stored-task"))

	assert.ErrorIs(t, registry.Pause(ctx, "no-such-task"), ErrTaskNotFound)
}

func TestRegistryRemove(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()
	registry.GetOrCreate(ctx, "task-1")

	require.NoError(t, registry.Remove(ctx, "task-1"))
	_, err := registry.Get(ctx, "task-1")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRegistryPersistsThroughRepository(t *testing.T) {
	repo, _, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	registry := NewRegistry(WithRepository(repo))
	registry.GetOrCreate(ctx, "task-1")
	require.NoError(t, registry.Update(ctx, "task-1", func(p *core.LoadProgress) {
		p.CurrentPage = 12
		p.ProcessedItems = 550
	}))

	// A fresh registry on the same repository sees the stored record.
	resumed := NewRegistry(WithRepository(repo))
	progress := resumed.GetOrCreate(ctx, "task-1")
	assert.Equal(t, 12, progress.CurrentPage)
	assert.Equal(t, 550, progress.ProcessedItems)
}

func TestRegistryListIncludesStoredTasks(t *testing.T) {
	repo, _, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	stored := core.NewLoadProgress("stored-task")
	require.NoError(t, repo.SaveProgress(ctx, stored))

	registry := NewRegistry(WithRepository(repo))
	registry.GetOrCreate(ctx, "live-task")

	records, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
}
