package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vmunix/prefetch/internal/events"
	"github.com/vmunix/prefetch/internal/metrics"
	"github.com/vmunix/prefetch/internal/queue"
)

// queueState pairs the task queue with snapshot publication. Every mutation
// and the snapshot that follows it happen under one lock, so observers see
// snapshots in mutation order.
type queueState struct {
	mu  sync.Mutex
	q   *queue.Queue
	bus *events.Bus
	log *slog.Logger
}

// mutate runs fn against the queue and, if fn reports a change, publishes a
// fresh snapshot.
func (s *queueState) mutate(ctx context.Context, fn func(q *queue.Queue) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fn(s.q) {
		return false
	}

	evt := &events.QueueChanged{
		BaseEvent: events.NewBaseEvent(events.EventQueueChanged, events.EntityScheduler, events.SchedulerID),
		Tasks:     s.q.Snapshot(),
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.log.Error("failed to publish QueueChanged event", "error", err)
	}
	for status, n := range s.q.Counts() {
		metrics.QueueTasks.WithLabelValues(string(status)).Set(float64(n))
	}
	return true
}

// admission holds the admitted flag. Setting the flag and publishing the
// matching event are serialized so the event stream follows the state.
type admission struct {
	mu       sync.Mutex
	admitted bool
	bus      *events.Bus
	log      *slog.Logger
}

func (a *admission) get() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.admitted
}

// set records v and always publishes, even when v equals the current state.
func (a *admission) set(ctx context.Context, v bool, source string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.admitted
	a.admitted = v
	metrics.SetAdmitted(v)

	evt := &events.AdmissionChanged{
		BaseEvent: events.NewBaseEvent(events.EventAdmissionChanged, events.EntityScheduler, events.SchedulerID),
		Admitted:  v,
		Source:    source,
	}
	if err := a.bus.Publish(ctx, evt); err != nil {
		a.log.Error("failed to publish AdmissionChanged event", "error", err)
	}
	if prev != v {
		a.log.Info("admission changed", "admitted", v, "source", source)
	}
}
