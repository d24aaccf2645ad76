// Package tracker is the in-memory task registry. One Registry is created
// at process start and shared by every request handler; task state is
// process-local and not persisted across restarts.
package tracker

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/servibot/quoteflow/internal/domain"
)

// Registry is a keyed store of task records. The map itself is guarded by
// a mutex; individual records carry their own locking for field updates.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tasks: make(map[string]*domain.Task)}
}

// NewTrackingID generates a fresh tracking id, "quot_" plus 12 hex chars.
func NewTrackingID() string {
	u := uuid.New()
	return "quot_" + hex.EncodeToString(u[:6])
}

// Create constructs a queued task under the given id and stores it.
// Callers pass a freshly generated id; an id collision would overwrite.
func (r *Registry) Create(id string, params domain.QuotationRequest) *domain.Task {
	task := domain.NewTask(id, params)
	r.mu.Lock()
	r.tasks[id] = task
	r.mu.Unlock()
	return task
}

// Get looks up a task by tracking id.
func (r *Registry) Get(id string) (*domain.Task, bool) {
	r.mu.RLock()
	task, ok := r.tasks[id]
	r.mu.RUnlock()
	return task, ok
}

// Exists reports whether a tracking id is known.
func (r *Registry) Exists(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Cleanup removes terminal tasks whose completion is older than maxAge and
// returns how many were removed. Non-terminal tasks are never candidates,
// regardless of age. Callers are responsible for scheduling this.
func (r *Registry) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, task := range r.tasks {
		completedAt := task.CompletedAt()
		if completedAt.IsZero() {
			continue
		}
		if completedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}
