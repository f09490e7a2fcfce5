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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/storage"
)

const progressKeyPrefix = "progress:"

// ProgressRepository stores load progress records in BadgerDB.
type ProgressRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.ProgressRepository = (*ProgressRepository)(nil)

// NewProgressRepository creates a progress repository on the given backend.
func NewProgressRepository(backend *Backend) *ProgressRepository {
	return &ProgressRepository{
		backend: backend,
		logger:  slog.Default().With("component", "progress_repository"),
	}
}

func progressKey(taskID string) []byte {
	return []byte(progressKeyPrefix + taskID)
}

// SaveProgress writes or overwrites the progress record for its task ID.
func (r *ProgressRepository) SaveProgress(ctx context.Context, progress *core.LoadProgress) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if progress == nil || progress.TaskID == "" {
		return fmt.Errorf("progress record requires a task ID")
	}

	data, err := storage.MarshalProgress(progress)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(progressKey(progress.TaskID), data); err != nil {
			return fmt.Errorf("failed to save progress for task %s: %w", progress.TaskID, err)
		}
		return tx.Commit()
	}, true)
}

// LoadProgress retrieves the progress record for a task.
func (r *ProgressRepository) LoadProgress(ctx context.Context, taskID string) (*core.LoadProgress, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var progress *core.LoadProgress
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(progressKey(taskID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			progress, err = storage.UnmarshalProgress(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// ListProgress retrieves all persisted progress records.
func (r *ProgressRepository) ListProgress(ctx context.Context) ([]*core.LoadProgress, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var records []*core.LoadProgress
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(progressKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				progress, err := storage.UnmarshalProgress(val)
				if err != nil {
					return err
				}
				records = append(records, progress)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteProgress removes the progress record for a task.
// Deleting a missing record is not an error.
func (r *ProgressRepository) DeleteProgress(ctx context.Context, taskID string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(progressKey(taskID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return fmt.Errorf("failed to delete progress for task %s: %w", taskID, err)
		}
		return tx.Commit()
	}, true)
}

// Close closes the underlying storage backend.
func (r *ProgressRepository) Close() error {
	return r.backend.Close()
}
