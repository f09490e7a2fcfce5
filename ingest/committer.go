package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/vecsync/vector"
)

const defaultItemDelay = 800 * time.Millisecond

// CommitResult reports the outcome of writing one batch.
type CommitResult struct {
	// Succeeded is the number of documents that reached the store.
	Succeeded int
	// AllSucceeded is true when no document was dropped.
	AllSucceeded bool
}

// Committer writes document batches to the vector store with retry and
// degradation. A batch that keeps failing after its retry budget is
// split into per-document writes so one bad document cannot sink the
// rest. Transient failures (connection resets, timeouts) and persistent
// failures carry separate retry budgets.
type Committer struct {
	store      vector.Store
	registry   *Registry
	transient  Policy
	persistent Policy
	item       Policy
	itemDelay  time.Duration
	logger     *slog.Logger
}

// CommitterOption configures a Committer.
type CommitterOption func(*Committer)

// WithTransientPolicy overrides the retry schedule for transient
// batch failures.
func WithTransientPolicy(p Policy) CommitterOption {
	return func(c *Committer) { c.transient = p }
}

// WithPersistentPolicy overrides the retry schedule for non-transient
// batch failures.
func WithPersistentPolicy(p Policy) CommitterOption {
	return func(c *Committer) { c.persistent = p }
}

// WithItemPolicy overrides the per-document retry schedule used in
// degraded mode.
func WithItemPolicy(p Policy) CommitterOption {
	return func(c *Committer) { c.item = p }
}

// WithItemDelay overrides the pause between per-document writes in
// degraded mode.
func WithItemDelay(d time.Duration) CommitterOption {
	return func(c *Committer) { c.itemDelay = d }
}

// NewCommitter creates a committer with the default retry schedules:
// three exponential attempts from 2s for transient failures, five
// linear attempts from 1s for persistent ones, and three linear
// attempts per document in degraded mode.
func NewCommitter(store vector.Store, registry *Registry, opts ...CommitterOption) *Committer {
	c := &Committer{
		store:      store,
		registry:   registry,
		transient:  Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, Backoff: BackoffExponential},
		persistent: Policy{MaxAttempts: 5, BaseDelay: time.Second, Backoff: BackoffLinear},
		item:       Policy{MaxAttempts: 3, BaseDelay: time.Second, Backoff: BackoffLinear},
		itemDelay:  defaultItemDelay,
		logger:     slog.Default().With("component", "committer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Commit writes a batch of documents, retrying and then degrading to
// per-document writes on repeated failure. The returned error is
// non-nil only for context cancellation; write failures are absorbed
// into the result so callers keep loading.
func (c *Committer) Commit(ctx context.Context, taskID string, docs []vector.Document) (CommitResult, error) {
	if len(docs) == 0 {
		return CommitResult{AllSucceeded: true}, nil
	}

	transientAttempts := 0
	persistentAttempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return CommitResult{}, err
		}

		err := c.store.AddDocuments(ctx, docs)
		if err == nil {
			if cerr := c.registry.AddProcessed(ctx, taskID, len(docs)); cerr != nil {
				c.logger.Warn("failed to record progress", "taskId", taskID, "error", cerr)
			}
			return CommitResult{Succeeded: len(docs), AllSucceeded: true}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return CommitResult{}, err
		}

		var attempt int
		var policy Policy
		if vector.IsTransient(err) {
			transientAttempts++
			attempt, policy = transientAttempts, c.transient
			c.logger.Warn("batch write failed with transient error",
				"taskId", taskID, "attempt", attempt, "maxAttempts", policy.MaxAttempts, "error", err)
		} else {
			persistentAttempts++
			attempt, policy = persistentAttempts, c.persistent
			c.logger.Warn("batch write failed",
				"taskId", taskID, "attempt", attempt, "maxAttempts", policy.MaxAttempts, "error", err)
		}

		if attempt >= policy.MaxAttempts {
			c.logger.Warn("batch retries exhausted, degrading to per-document writes",
				"taskId", taskID, "documents", len(docs))
			return c.commitEach(ctx, taskID, docs)
		}

		if err := sleepCtx(ctx, policy.Delay(attempt)); err != nil {
			return CommitResult{}, err
		}
	}
}

// commitEach writes documents one at a time, crediting each success
// individually so a partial batch still advances the task.
func (c *Committer) commitEach(ctx context.Context, taskID string, docs []vector.Document) (CommitResult, error) {
	var result CommitResult
	for i, doc := range docs {
		err := c.item.Do(ctx, func() error {
			return c.store.AddDocuments(ctx, []vector.Document{doc})
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
		if err != nil {
			c.logger.Warn("document dropped after retries",
				"taskId", taskID, "documentId", doc.ID, "error", err)
			continue
		}

		result.Succeeded++
		if cerr := c.registry.AddProcessed(ctx, taskID, 1); cerr != nil {
			c.logger.Warn("failed to record progress", "taskId", taskID, "error", cerr)
		}

		if i < len(docs)-1 {
			if err := sleepCtx(ctx, c.itemDelay); err != nil {
				return result, err
			}
		}
	}
	result.AllSucceeded = result.Succeeded == len(docs)
	return result, nil
}
