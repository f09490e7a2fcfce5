package storage

import (
	"context"

	"github.com/poiesic/vecsync/core"
)

// ProgressRepository persists ingestion task progress so that resume works
// across process restarts. Implementations must be thread-safe.
type ProgressRepository interface {
	// SaveProgress writes or overwrites the progress record for its task ID.
	SaveProgress(ctx context.Context, progress *core.LoadProgress) error

	// LoadProgress retrieves the progress record for a task.
	// Returns ErrNotFound if no record exists.
	LoadProgress(ctx context.Context, taskID string) (*core.LoadProgress, error)

	// ListProgress retrieves all persisted progress records.
	ListProgress(ctx context.Context) ([]*core.LoadProgress, error)

	// DeleteProgress removes the progress record for a task.
	// Deleting a missing record is not an error.
	DeleteProgress(ctx context.Context, taskID string) error

	// Close closes the storage backend and releases resources.
	Close() error
}
