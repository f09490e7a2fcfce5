package core

import "time"

// TaskStatus is the lifecycle state of an ingestion task.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "RUNNING"
	TaskPaused    TaskStatus = "PAUSED"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// LoadProgress tracks one ingestion task. TotalPages and TotalItems stay
// zero until the upstream page response reports them. ProcessedItems is
// only incremented after a confirmed successful write, never speculatively.
type LoadProgress struct {
	TaskID         string     `json:"taskId"`
	Status         TaskStatus `json:"status"`
	CurrentPage    int        `json:"currentPage"`
	TotalPages     int        `json:"totalPages,omitempty"`
	ProcessedItems int        `json:"processedItems"`
	TotalItems     int        `json:"totalItems,omitempty"`
	BatchSize      int        `json:"batchSize"`
	StartTime      time.Time  `json:"startTime"`
	LastUpdateTime time.Time  `json:"lastUpdateTime"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
}

// NewLoadProgress creates a RUNNING progress record positioned at page 1.
func NewLoadProgress(taskID string) *LoadProgress {
	now := time.Now().UTC()
	return &LoadProgress{
		TaskID:         taskID,
		Status:         TaskRunning,
		CurrentPage:    1,
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Clone returns a copy so that readers never observe concurrent mutation.
func (p *LoadProgress) Clone() *LoadProgress {
	cp := *p
	return &cp
}
