package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/vecsync/catalog"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/vector"
)

const (
	defaultPageSize   = 100
	defaultBatchSize  = 10
	defaultBatchDelay = time.Second
)

// Loader walks the catalog page by page and writes each page to the
// vector store in fixed-size batches. Progress is reported through the
// registry after every page so the task can be paused, observed, and
// resumed.
type Loader struct {
	source     catalog.Source
	committer  *Committer
	registry   *Registry
	pageSize   int
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPageSize sets the number of items fetched per catalog page.
func WithPageSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithBatchSize sets the number of documents per vector store write.
func WithBatchSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between batch writes.
func WithBatchDelay(d time.Duration) LoaderOption {
	return func(l *Loader) { l.batchDelay = d }
}

// NewLoader creates a sequential catalog loader.
func NewLoader(source catalog.Source, committer *Committer, registry *Registry, opts ...LoaderOption) (*Loader, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if committer == nil {
		return nil, ErrStoreRequired
	}
	l := &Loader{
		source:     source,
		committer:  committer,
		registry:   registry,
		pageSize:   defaultPageSize,
		batchSize:  defaultBatchSize,
		batchDelay: defaultBatchDelay,
		logger:     slog.Default().With("component", "loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run loads the catalog into the vector store. An empty taskID starts a
// fresh task; a known taskID resumes from its recorded page. Returns
// the task ID so callers can observe or pause the run.
func (l *Loader) Run(ctx context.Context, taskID string) (string, error) {
	if taskID == "" {
		taskID = uuid.NewString()
	}

	progress := l.registry.GetOrCreate(ctx, taskID)
	if progress.Status == core.TaskCompleted {
		l.logger.Info("task already completed, nothing to do", "taskId", taskID)
		return taskID, nil
	}

	startPage := progress.CurrentPage
	if err := l.registry.Update(ctx, taskID, func(p *core.LoadProgress) {
		p.Status = core.TaskRunning
		p.BatchSize = l.batchSize
		p.ErrorMessage = ""
	}); err != nil {
		return taskID, err
	}

	l.logger.Info("starting sequential load",
		"taskId", taskID, "startPage", startPage, "pageSize", l.pageSize, "batchSize", l.batchSize)

	for pageNo := startPage; ; pageNo++ {
		if err := ctx.Err(); err != nil {
			return taskID, l.fail(taskID, err)
		}
		if l.registry.IsPaused(taskID) {
			l.logger.Info("task paused, stopping at page boundary", "taskId", taskID, "page", pageNo)
			return taskID, nil
		}

		page, err := l.source.FetchPage(ctx, catalog.PageQuery{PageNo: pageNo, PageSize: l.pageSize})
		if err != nil {
			return taskID, l.fail(taskID, fmt.Errorf("failed to fetch page %d: %w", pageNo, err))
		}
		if len(page.Items) == 0 {
			break
		}

		l.recordTotals(ctx, taskID, page)

		if err := l.loadPage(ctx, taskID, page.Items); err != nil {
			return taskID, l.fail(taskID, err)
		}

		if uerr := l.registry.Update(ctx, taskID, func(p *core.LoadProgress) {
			p.CurrentPage = pageNo + 1
		}); uerr != nil {
			l.logger.Warn("failed to advance page counter", "taskId", taskID, "error", uerr)
		}

		if len(page.Items) < l.pageSize {
			break
		}
	}

	if err := l.registry.Update(ctx, taskID, func(p *core.LoadProgress) {
		p.Status = core.TaskCompleted
	}); err != nil {
		return taskID, err
	}
	l.logger.Info("sequential load completed", "taskId", taskID)
	return taskID, nil
}

// loadPage writes one page of items in batches of batchSize.
func (l *Loader) loadPage(ctx context.Context, taskID string, items []*core.CatalogItem) error {
	docs := make([]vector.Document, 0, len(items))
	for _, item := range items {
		docs = append(docs, vector.DocumentFromItem(item))
	}

	for start := 0; start < len(docs); start += l.batchSize {
		end := min(start+l.batchSize, len(docs))
		result, err := l.committer.Commit(ctx, taskID, docs[start:end])
		if err != nil {
			return err
		}
		if result.Succeeded == 0 {
			l.logger.Warn("entire batch dropped", "taskId", taskID, "batchStart", start, "batchSize", end-start)
		}

		if err := sleepCtx(ctx, l.batchDelay); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) recordTotals(ctx context.Context, taskID string, page *catalog.Page) {
	if page.TotalItems <= 0 && page.TotalPages <= 0 {
		return
	}
	if err := l.registry.Update(ctx, taskID, func(p *core.LoadProgress) {
		if page.TotalItems > 0 {
			p.TotalItems = int(page.TotalItems)
		}
		if page.TotalPages > 0 {
			p.TotalPages = page.TotalPages
		}
	}); err != nil {
		l.logger.Warn("failed to record totals", "taskId", taskID, "error", err)
	}
}

// fail marks the task FAILED, preserving its current page so a later
// run resumes where this one stopped.
func (l *Loader) fail(taskID string, cause error) error {
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		msg = "task interrupted"
	}
	if err := l.registry.Update(context.Background(), taskID, func(p *core.LoadProgress) {
		p.Status = core.TaskFailed
		p.ErrorMessage = msg
	}); err != nil {
		l.logger.Warn("failed to record failure", "taskId", taskID, "error", err)
	}
	l.logger.Error("load failed", "taskId", taskID, "error", cause)
	return cause
}
