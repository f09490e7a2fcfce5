package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/vecsync/catalog"
	"github.com/poiesic/vecsync/core"
	"github.com/poiesic/vecsync/vector"
)

const (
	defaultParallelPageSize  = 50
	defaultParallelBatchSize = 5
	defaultWorkers           = 3
	defaultWriteConcurrency  = 3
	defaultTotalPagesGuess   = 100
)

// ParallelLoader loads the catalog with a pool of page workers. Pages
// are distributed through a queue; each fetched page is split into
// batches that fan out onto a shared write pool, with a semaphore
// bounding concurrent vector store writes. A page whose fetch fails is
// requeued once, then skipped.
type ParallelLoader struct {
	source           catalog.Source
	committer        *Committer
	registry         *Registry
	pageSize         int
	batchSize        int
	workers          int
	writeConcurrency int
	totalPagesGuess  int
	logger           *slog.Logger
}

// ParallelOption configures a ParallelLoader.
type ParallelOption func(*ParallelLoader)

// WithParallelPageSize sets the number of items fetched per page.
func WithParallelPageSize(n int) ParallelOption {
	return func(l *ParallelLoader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithParallelBatchSize sets the number of documents per store write.
func WithParallelBatchSize(n int) ParallelOption {
	return func(l *ParallelLoader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithWorkers sets the number of concurrent page workers.
func WithWorkers(n int) ParallelOption {
	return func(l *ParallelLoader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithWriteConcurrency bounds the number of in-flight vector store
// writes across all workers.
func WithWriteConcurrency(n int) ParallelOption {
	return func(l *ParallelLoader) {
		if n > 0 {
			l.writeConcurrency = n
		}
	}
}

// NewParallelLoader creates a concurrent catalog loader.
func NewParallelLoader(source catalog.Source, committer *Committer, registry *Registry, opts ...ParallelOption) (*ParallelLoader, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if committer == nil {
		return nil, ErrStoreRequired
	}
	l := &ParallelLoader{
		source:           source,
		committer:        committer,
		registry:         registry,
		pageSize:         defaultParallelPageSize,
		batchSize:        defaultParallelBatchSize,
		workers:          defaultWorkers,
		writeConcurrency: defaultWriteConcurrency,
		totalPagesGuess:  defaultTotalPagesGuess,
		logger:           slog.Default().With("component", "parallel_loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run loads the catalog concurrently. An empty taskID starts a fresh
// task; a known taskID resumes from its recorded page. Returns the
// task ID so callers can observe or pause the run.
func (l *ParallelLoader) Run(ctx context.Context, taskID string) (string, error) {
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

	totalPages, err := l.discoverTotalPages(ctx, taskID)
	if err != nil {
		return taskID, l.fail(taskID, err)
	}

	l.logger.Info("starting parallel load",
		"taskId", taskID, "startPage", startPage, "totalPages", totalPages,
		"workers", l.workers, "writeConcurrency", l.writeConcurrency)

	pagePool, err := ants.NewPool(l.workers)
	if err != nil {
		return taskID, l.fail(taskID, err)
	}
	defer pagePool.Release()

	writePool, err := ants.NewPool(l.writeConcurrency * 2)
	if err != nil {
		return taskID, l.fail(taskID, err)
	}
	defer writePool.Release()

	// Extra capacity leaves room for single requeues of failed pages.
	queue := make(chan int, totalPages+l.workers)
	for pageNo := startPage; pageNo <= totalPages; pageNo++ {
		queue <- pageNo
	}

	writeSlots := make(chan struct{}, l.writeConcurrency)
	var requeuedMu sync.Mutex
	requeued := make(map[int]bool)

	paused := false
	var wg sync.WaitGroup
	for len(queue) > 0 {
		pageNo := <-queue
		if ctx.Err() != nil {
			break
		}
		if l.registry.IsPaused(taskID) {
			paused = true
			break
		}

		wg.Add(1)
		page := pageNo
		if err := pagePool.Submit(func() {
			defer wg.Done()
			l.loadPage(ctx, taskID, page, queue, writePool, writeSlots, &requeuedMu, requeued)
		}); err != nil {
			wg.Done()
			l.logger.Error("failed to submit page to pool", "taskId", taskID, "page", page, "error", err)
		}

		// Wait out the drain of the last in-flight pages so their
		// requeues are observed before the queue is declared empty.
		if len(queue) == 0 {
			wg.Wait()
		}
	}
	wg.Wait()

	if paused {
		l.logger.Info("task paused, workers drained", "taskId", taskID)
		return taskID, nil
	}
	if ctx.Err() != nil {
		return taskID, l.fail(taskID, ctx.Err())
	}

	if err := l.registry.Update(ctx, taskID, func(p *core.LoadProgress) {
		p.Status = core.TaskCompleted
	}); err != nil {
		return taskID, err
	}
	l.logger.Info("parallel load completed", "taskId", taskID)
	return taskID, nil
}

// loadPage fetches one page and writes its batches through the shared
// write pool. A fetch failure requeues the page once.
func (l *ParallelLoader) loadPage(ctx context.Context, taskID string, pageNo int, queue chan int, writePool *ants.Pool, writeSlots chan struct{}, requeuedMu *sync.Mutex, requeued map[int]bool) {
	page, err := l.source.FetchPage(ctx, catalog.PageQuery{PageNo: pageNo, PageSize: l.pageSize})
	if err != nil {
		requeuedMu.Lock()
		already := requeued[pageNo]
		requeued[pageNo] = true
		requeuedMu.Unlock()

		if already {
			l.logger.Error("page failed twice, skipping", "taskId", taskID, "page", pageNo, "error", err)
			return
		}
		l.logger.Warn("page fetch failed, requeueing once", "taskId", taskID, "page", pageNo, "error", err)
		select {
		case queue <- pageNo:
		default:
			l.logger.Error("requeue dropped, queue full", "taskId", taskID, "page", pageNo)
		}
		return
	}
	if len(page.Items) == 0 {
		return
	}

	docs := make([]vector.Document, 0, len(page.Items))
	for _, item := range page.Items {
		docs = append(docs, vector.DocumentFromItem(item))
	}

	var pageWG sync.WaitGroup
	for start := 0; start < len(docs); start += l.batchSize {
		end := min(start+l.batchSize, len(docs))
		batch := docs[start:end]

		pageWG.Add(1)
		if err := writePool.Submit(func() {
			defer pageWG.Done()

			select {
			case writeSlots <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-writeSlots }()

			if _, cerr := l.committer.Commit(ctx, taskID, batch); cerr != nil && !errors.Is(cerr, context.Canceled) {
				l.logger.Error("batch commit failed", "taskId", taskID, "page", pageNo, "error", cerr)
			}
		}); err != nil {
			pageWG.Done()
			l.logger.Error("failed to submit batch to pool", "taskId", taskID, "page", pageNo, "error", err)
		}
	}
	pageWG.Wait()

	// Pages finish out of order, so the page counter only moves forward.
	if err := l.registry.Update(ctx, taskID, func(p *core.LoadProgress) {
		if pageNo+1 > p.CurrentPage {
			p.CurrentPage = pageNo + 1
		}
	}); err != nil {
		l.logger.Warn("failed to advance page counter", "taskId", taskID, "error", err)
	}
}

// discoverTotalPages fetches the first page to learn the catalog size.
// Sources that do not report totals get a fixed fallback.
func (l *ParallelLoader) discoverTotalPages(ctx context.Context, taskID string) (int, error) {
	page, err := l.source.FetchPage(ctx, catalog.PageQuery{PageNo: 1, PageSize: l.pageSize})
	if err != nil {
		return 0, fmt.Errorf("failed to discover catalog size: %w", err)
	}

	totalPages := page.TotalPages
	if totalPages <= 0 {
		if page.TotalItems > 0 {
			totalPages = int((page.TotalItems + int64(l.pageSize) - 1) / int64(l.pageSize))
		} else {
			totalPages = l.totalPagesGuess
			l.logger.Warn("source reports no totals, using fallback page count",
				"taskId", taskID, "totalPages", totalPages)
		}
	}

	if err := l.registry.Update(ctx, taskID, func(p *core.LoadProgress) {
		p.TotalPages = totalPages
		if page.TotalItems > 0 {
			p.TotalItems = int(page.TotalItems)
		}
	}); err != nil {
		l.logger.Warn("failed to record totals", "taskId", taskID, "error", err)
	}
	return totalPages, nil
}

func (l *ParallelLoader) fail(taskID string, cause error) error {
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
	l.logger.Error("parallel load failed", "taskId", taskID, "error", cause)
	return cause
}
