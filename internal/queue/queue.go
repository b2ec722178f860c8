// Package queue tracks download tasks in insertion order and hands out
// pending work by priority.
package queue

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Priority orders pending work. Smaller values are more urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityIdle   Priority = 3 // discovery enqueues at this level
)

// Task is a point-in-time view of one tracked asset download.
type Task struct {
	ID        string    `json:"id"`
	Priority  Priority  `json:"priority"`
	Status    Status    `json:"status"`
	LocalPath string    `json:"local_path,omitempty"`
	Error     string    `json:"error,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Queue holds tasks keyed by asset id. Entries are kept in insertion order;
// only terminal entries are ever removed, and only by Prune.
type Queue struct {
	mu    sync.Mutex
	tasks []*Task
	index map[string]*Task
	log   *slog.Logger
	now   func() time.Time
}

// New creates an empty queue.
func New(log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		index: make(map[string]*Task),
		log:   log,
		now:   time.Now,
	}
}

// Enqueue adds a pending task for id unless the id is already tracked,
// whatever its status. It reports whether a task was inserted.
func (q *Queue) Enqueue(id string, priority Priority) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[id]; ok {
		return false
	}

	now := q.now()
	t := &Task{
		ID:        id,
		Priority:  priority,
		Status:    StatusPending,
		AddedAt:   now,
		UpdatedAt: now,
	}
	q.tasks = append(q.tasks, t)
	q.index[id] = t
	return true
}

// NextPending returns the pending task with the smallest priority.
// Equal priorities are resolved by insertion order.
func (q *Queue) NextPending() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := q.nextPendingLocked()
	if t == nil {
		return Task{}, false
	}
	return *t, true
}

// ClaimNext selects the next pending task and moves it to downloading in a
// single step, so no other caller can observe or claim it as pending.
func (q *Queue) ClaimNext() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := q.nextPendingLocked()
	if t == nil {
		return Task{}, false
	}
	t.Status = StatusDownloading
	t.UpdatedAt = q.now()
	return *t, true
}

func (q *Queue) nextPendingLocked() *Task {
	var best *Task
	for _, t := range q.tasks {
		if t.Status != StatusPending {
			continue
		}
		// strict less-than keeps the earliest inserted on ties
		if best == nil || t.Priority < best.Priority {
			best = t
		}
	}
	return best
}

// HasPending reports whether any task is waiting to be downloaded.
func (q *Queue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nextPendingLocked() != nil
}

// Update moves a task to a new status. localPath is recorded only when the
// task completes. Unknown ids and backward transitions are logged and
// returned as errors; the queue is left unchanged.
func (q *Queue) Update(id string, to Status, localPath string) error {
	return q.update(id, to, localPath, "")
}

// MarkFailed moves a downloading task to failed and records the reason.
func (q *Queue) MarkFailed(id string, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return q.update(id, StatusFailed, "", reason)
}

func (q *Queue) update(id string, to Status, localPath, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.index[id]
	if !ok {
		q.log.Warn("update for unknown task", "asset_id", id, "status", to)
		return fmt.Errorf("update %s: %w", id, ErrUnknownTask)
	}
	if !t.Status.CanTransitionTo(to) {
		q.log.Warn("rejected status transition", "asset_id", id, "from", t.Status, "to", to)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}

	t.Status = to
	t.UpdatedAt = q.now()
	if to == StatusCompleted {
		t.LocalPath = localPath
	}
	if to == StatusFailed {
		t.Error = reason
	}
	return nil
}

// Get returns a copy of the task for id.
func (q *Queue) Get(id string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.index[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Snapshot returns a copy of every task in insertion order.
func (q *Queue) Snapshot() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Task, len(q.tasks))
	for i, t := range q.tasks {
		out[i] = *t
	}
	return out
}

// Counts returns the number of tasks in each status.
func (q *Queue) Counts() map[Status]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := map[Status]int{
		StatusPending:     0,
		StatusDownloading: 0,
		StatusCompleted:   0,
		StatusFailed:      0,
	}
	for _, t := range q.tasks {
		counts[t.Status]++
	}
	return counts
}

// Prune drops completed and failed tasks whose last transition is older
// than olderThan, returning how many were removed. A pruned id may be
// enqueued again afterwards.
func (q *Queue) Prune(olderThan time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-olderThan)
	kept := q.tasks[:0]
	removed := 0
	for _, t := range q.tasks {
		if t.Status.IsTerminal() && t.UpdatedAt.Before(cutoff) {
			delete(q.index, t.ID)
			removed++
			continue
		}
		kept = append(kept, t)
	}
	// clear the tail so dropped tasks can be collected
	for i := len(kept); i < len(q.tasks); i++ {
		q.tasks[i] = nil
	}
	q.tasks = kept
	return removed
}
