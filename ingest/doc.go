// Package ingest implements bulk catalog loading into the vector store.
//
// Two loaders are provided. Loader walks catalog pages sequentially and
// favors predictable ordering and gentle backpressure. ParallelLoader
// fans pages out to a worker pool and bounds concurrent vector store
// writes with a semaphore. Both loaders report through a shared
// Registry, which tracks per-task LoadProgress and can persist it
// through a storage.ProgressRepository so interrupted tasks resume
// where they left off.
//
// Write failures degrade rather than abort: a failing batch is retried
// with backoff, then split into per-document commits so one poison
// document cannot sink its whole batch.
package ingest
