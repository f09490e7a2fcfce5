package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage"
)

// Registry tracks progress for ingestion tasks. All reads return
// defensive copies. When a ProgressRepository is attached, every update
// is persisted best-effort so tasks survive process restarts.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*core.LoadProgress
	repo   storage.ProgressRepository
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRepository attaches a persistence backend to the registry.
func WithRepository(repo storage.ProgressRepository) RegistryOption {
	return func(r *Registry) {
		r.repo = repo
	}
}

// NewRegistry creates an empty task registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tasks:  make(map[string]*core.LoadProgress),
		logger: slog.Default().With("component", "task_registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the tracked progress for a task, loading it from
// the repository on a miss and creating a fresh record if none exists.
func (r *Registry) GetOrCreate(ctx context.Context, taskID string) *core.LoadProgress {
	r.mu.Lock()
	defer r.mu.Unlock()

	if progress, ok := r.tasks[taskID]; ok {
		return progress.Clone()
	}

	if r.repo != nil {
		stored, err := r.repo.LoadProgress(ctx, taskID)
		if err == nil {
			r.tasks[taskID] = stored
			return stored.Clone()
		}
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("failed to load stored progress", "taskId", taskID, "error", err)
		}
	}

	progress := core.NewLoadProgress(taskID)
	r.tasks[taskID] = progress
	return progress.Clone()
}

// Update applies fn to the tracked progress under the registry lock,
// stamps LastUpdateTime, and persists the result if a repository is
// attached. Returns ErrTaskNotFound for unknown tasks.
func (r *Registry) Update(ctx context.Context, taskID string, fn func(*core.LoadProgress)) error {
	r.mu.Lock()
	progress, ok := r.tasks[taskID]
	if !ok {
		r.mu.Unlock()
		return ErrTaskNotFound
	}
	fn(progress)
	progress.LastUpdateTime = time.Now()
	snapshot := progress.Clone()
	r.mu.Unlock()

	r.persist(ctx, snapshot)
	return nil
}

// AddProcessed increments the processed item counter for a task.
func (r *Registry) AddProcessed(ctx context.Context, taskID string, count int) error {
	return r.Update(ctx, taskID, func(p *core.LoadProgress) {
		p.ProcessedItems += count
	})
}

// Touch refreshes a task's LastUpdateTime without other changes.
func (r *Registry) Touch(ctx context.Context, taskID string) error {
	return r.Update(ctx, taskID, func(*core.LoadProgress) {})
}

// Get returns a copy of the tracked progress, falling back to the
// repository for tasks not currently in memory.
func (r *Registry) Get(ctx context.Context, taskID string) (*core.LoadProgress, error) {
	r.mu.RLock()
	progress, ok := r.tasks[taskID]
	if ok {
		defer r.mu.RUnlock()
		return progress.Clone(), nil
	}
	r.mu.RUnlock()

	if r.repo != nil {
		stored, err := r.repo.LoadProgress(ctx, taskID)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrTaskNotFound
}

// List returns copies of all tracked progress records. When a
// repository is attached, persisted tasks not currently in memory are
// included as well.
func (r *Registry) List(ctx context.Context) ([]*core.LoadProgress, error) {
	r.mu.RLock()
	records := make([]*core.LoadProgress, 0, len(r.tasks))
	seen := make(map[string]bool, len(r.tasks))
	for id, progress := range r.tasks {
		records = append(records, progress.Clone())
		seen[id] = true
	}
	r.mu.RUnlock()

	if r.repo != nil {
		stored, err := r.repo.ListProgress(ctx)
		if err != nil {
			return nil, err
		}
		for _, progress := range stored {
			if !seen[progress.TaskID] {
				records = append(records, progress)
			}
		}
	}
	return records, nil
}

// Remove drops a task from the registry and deletes its persisted record.
func (r *Registry) Remove(ctx context.Context, taskID string) error {
	r.mu.Lock()
	delete(r.tasks, taskID)
	r.mu.Unlock()

	if r.repo != nil {
		if err := r.repo.DeleteProgress(ctx, taskID); err != nil {
			return err
		}
	}
	return nil
}

// Pause marks a running task as paused. Loaders observe the flag at
// page boundaries and stop cleanly. Pausing a task that is not running
// is a no-op. Persisted tasks not yet in memory are loaded first, so
// Pause works right after a restart.
func (r *Registry) Pause(ctx context.Context, taskID string) error {
	if !r.ensureTracked(ctx, taskID) {
		return ErrTaskNotFound
	}
	return r.Update(ctx, taskID, func(p *core.LoadProgress) {
		if p.Status == core.TaskRunning {
			p.Status = core.TaskPaused
		}
	})
}

// ensureTracked pulls a persisted task into memory if it is not already
// tracked, reporting whether the task is known afterwards.
func (r *Registry) ensureTracked(ctx context.Context, taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[taskID]; ok {
		return true
	}
	if r.repo == nil {
		return false
	}
	stored, err := r.repo.LoadProgress(ctx, taskID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("failed to load stored progress", "taskId", taskID, "error", err)
		}
		return false
	}
	r.tasks[taskID] = stored
	return true
}

// IsPaused reports whether a task has been marked paused.
func (r *Registry) IsPaused(taskID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	progress, ok := r.tasks[taskID]
	return ok && progress.Status == core.TaskPaused
}

func (r *Registry) persist(ctx context.Context, progress *core.LoadProgress) {
	if r.repo == nil {
		return
	}
	if err := r.repo.SaveProgress(ctx, progress); err != nil {
		r.logger.Warn("failed to persist progress", "taskId", progress.TaskID, "error", err)
	}
}
