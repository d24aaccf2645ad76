// Package domain holds the core QuoteFlow types.
// A Task tracks one asynchronous quotation workflow:
// dispatch → queued → processing → completed | failed.
package domain

import (
	"fmt"
	"sync"
	"time"
)

// TaskStatus tracks task lifecycle.
type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one tracked quotation workflow. A single executor goroutine owns
// all writes for a given task; status queries read concurrently, so every
// access goes through the methods below.
type Task struct {
	mu sync.RWMutex

	id          string
	status      TaskStatus
	params      QuotationRequest
	progress    string
	result      *QuotationResult
	err         string
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
}

// NewTask constructs a queued task. Called by the registry only.
func NewTask(id string, params QuotationRequest) *Task {
	return &Task{
		id:        id,
		status:    TaskQueued,
		params:    params,
		createdAt: time.Now(),
	}
}

// ID returns the tracking id.
func (t *Task) ID() string { return t.id }

// Params returns the request payload stored at dispatch time.
func (t *Task) Params() QuotationRequest {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.params
}

// Status returns the current lifecycle status.
func (t *Task) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Start marks the task processing and records the start time.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TaskQueued {
		return // terminal states are absorbing; processing is entered once
	}
	t.status = TaskProcessing
	t.startedAt = time.Now()
}

// UpdateProgress overwrites the progress message. Progress is the latest
// step description, not a history.
func (t *Task) UpdateProgress(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == TaskCompleted || t.status == TaskFailed {
		return
	}
	t.progress = message
}

// Complete marks the task completed with its result.
func (t *Task) Complete(result *QuotationResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == TaskCompleted || t.status == TaskFailed {
		return
	}
	t.status = TaskCompleted
	t.result = result
	t.completedAt = time.Now()
}

// Fail marks the task failed with a kind+message error string.
func (t *Task) Fail(errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == TaskCompleted || t.status == TaskFailed {
		return
	}
	t.status = TaskFailed
	t.err = errMsg
	t.completedAt = time.Now()
}

// IsTerminal returns true once the task has reached completed or failed.
func (t *Task) IsTerminal() bool {
	s := t.Status()
	return s == TaskCompleted || s == TaskFailed
}

// CompletedAt returns the terminal timestamp (zero while non-terminal).
func (t *Task) CompletedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completedAt
}

// Elapsed returns time from creation to completion, or to now while the
// task is still in flight.
func (t *Task) Elapsed() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	end := t.completedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(t.createdAt)
}

// TaskView is a consistent read snapshot of a task, used for JSON
// serialization at the status endpoint and for audit records.
type TaskView struct {
	TrackingID  string           `json:"tracking_id"`
	Status      TaskStatus       `json:"status"`
	Progress    string           `json:"progress,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	ElapsedTime string           `json:"elapsed_time"`
	Result      *QuotationResult `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// View captures the task under a single read lock.
func (t *Task) View() TaskView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	end := t.completedAt
	if end.IsZero() {
		end = time.Now()
	}

	v := TaskView{
		TrackingID:  t.id,
		Status:      t.status,
		Progress:    t.progress,
		CreatedAt:   t.createdAt,
		ElapsedTime: fmt.Sprintf("%.2fs", end.Sub(t.createdAt).Seconds()),
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		v.StartedAt = &started
	}
	if !t.completedAt.IsZero() {
		completed := t.completedAt
		v.CompletedAt = &completed
	}
	switch t.status {
	case TaskCompleted:
		v.Result = t.result
	case TaskFailed:
		v.Error = t.err
	}
	return v
}
