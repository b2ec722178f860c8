package v1

import (
	"context"
	"errors"

	"github.com/vmunix/prefetch/internal/assets"
	"github.com/vmunix/prefetch/internal/events"
	"github.com/vmunix/prefetch/internal/queue"
)

//go:generate mockgen -source=deps.go -destination=mocks/mock_deps.go -package=mocks

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// Scheduler is the control surface the API drives.
type Scheduler interface {
	Enqueue(ctx context.Context, id string, priority queue.Priority) bool
	Start(ctx context.Context)
	Pause(ctx context.Context)
	Admitted() bool
	Busy() bool
	Snapshot() []queue.Task
	Task(id string) (queue.Task, bool)
	Counts() map[queue.Status]int
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Scheduler Scheduler

	// Optional dependencies (nil if not configured)
	EventLog *events.EventLog // event audit log
	Bus      *events.Bus      // live event stream
	Assets   *assets.Index    // local asset index
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Scheduler == nil {
		return errors.New("scheduler is required")
	}
	return nil
}
