// Package scheduler downloads catalog assets in the background, one at a
// time, while the network is judged fast enough or idle downloading has
// been started by hand.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/prefetch/internal/assets"
	"github.com/vmunix/prefetch/internal/catalog"
	"github.com/vmunix/prefetch/internal/events"
	"github.com/vmunix/prefetch/internal/metrics"
	"github.com/vmunix/prefetch/internal/probe"
	"github.com/vmunix/prefetch/internal/queue"
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultInterval  = 60 * time.Second
	DefaultBatchSize = 10
)

// Config controls discovery and execution.
type Config struct {
	Interval     time.Duration // discovery period
	BatchSize    int           // candidates requested per tick
	Retention    time.Duration // terminal tasks older than this are pruned; 0 keeps them
	FetchTimeout time.Duration // per-transfer deadline; 0 disables
	RunOnStart   bool          // tick once immediately when Run starts
}

// Scheduler owns the task queue and admission state and drives discovery
// and the executor.
type Scheduler struct {
	cfg    Config
	queue  *queue.Queue
	state  *queueState
	adm    *admission
	exec   *Executor
	store  assets.Store
	source catalog.Source
	prober probe.Prober
	bus    *events.Bus
	log    *slog.Logger

	trigger chan struct{}
}

// New creates a scheduler. prober may be nil, in which case admission only
// changes through Start and Pause.
func New(cfg Config, store assets.Store, source catalog.Source, prober probe.Prober, bus *events.Bus, log *slog.Logger) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("asset store is required")
	}
	if source == nil {
		return nil, errors.New("catalog source is required")
	}
	if bus == nil {
		return nil, errors.New("event bus is required")
	}
	if log == nil {
		log = slog.Default()
	}
	execLog := log.With("component", "executor")
	log = log.With("component", "scheduler")
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	q := queue.New(log)
	state := &queueState{q: q, bus: bus, log: log}
	adm := &admission{bus: bus, log: log}
	metrics.SetAdmitted(false)

	return &Scheduler{
		cfg:    cfg,
		queue:  q,
		state:  state,
		adm:    adm,
		store:  store,
		source: source,
		prober: prober,
		bus:    bus,
		log:    log,
		exec: &Executor{
			state:   state,
			adm:     adm,
			store:   store,
			bus:     bus,
			timeout: cfg.FetchTimeout,
			log:     execLog,
		},
		trigger: make(chan struct{}, 1),
	}, nil
}

// Run starts the discovery loop and the executor and blocks until ctx is
// canceled. Canceling ctx also cancels an in-flight transfer.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", "interval", s.cfg.Interval, "batch_size", s.cfg.BatchSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.runExecutor(ctx)
		return nil
	})
	g.Go(func() error {
		s.runDiscovery(ctx)
		return nil
	})

	err := g.Wait()
	s.log.Info("scheduler stopped")
	return err
}

// runExecutor runs a cycle each time the trigger fires.
func (s *Scheduler) runExecutor(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.exec.RunCycle(ctx)
		}
	}
}

// kick wakes the executor. Triggers coalesce: one pending wakeup is enough
// because a cycle drains everything it can.
func (s *Scheduler) kick() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Enqueue adds id at the given priority unless it is already tracked.
// It reports whether a task was inserted.
func (s *Scheduler) Enqueue(ctx context.Context, id string, priority queue.Priority) bool {
	inserted := s.state.mutate(ctx, func(q *queue.Queue) bool {
		return q.Enqueue(id, priority)
	})
	if !inserted {
		return false
	}

	metrics.TasksEnqueued.Inc()
	s.log.Debug("task enqueued", "asset_id", id, "priority", priority)
	evt := &events.TaskEnqueued{
		BaseEvent: events.NewBaseEvent(events.EventTaskEnqueued, events.EntityAsset, id),
		AssetID:   id,
		Priority:  priority,
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.log.Error("failed to publish TaskEnqueued event", "asset_id", id, "error", err)
	}
	s.kick()
	return true
}

// Start forces idle downloading on until the next probe or Pause.
func (s *Scheduler) Start(ctx context.Context) {
	s.adm.set(ctx, true, events.SourceManual)
	s.kick()
}

// Pause withholds admission. A transfer already running is not interrupted.
func (s *Scheduler) Pause(ctx context.Context) {
	s.adm.set(ctx, false, events.SourceManual)
}

// Admitted reports the current admission state.
func (s *Scheduler) Admitted() bool {
	return s.adm.get()
}

// Busy reports whether a transfer cycle is running.
func (s *Scheduler) Busy() bool {
	return s.exec.InFlight()
}

// Snapshot returns a copy of the queue in insertion order.
func (s *Scheduler) Snapshot() []queue.Task {
	return s.queue.Snapshot()
}

// Task returns the tracked task for id.
func (s *Scheduler) Task(id string) (queue.Task, bool) {
	return s.queue.Get(id)
}

// Counts returns the number of tasks per status.
func (s *Scheduler) Counts() map[queue.Status]int {
	return s.queue.Counts()
}

// RunCycle drives the executor directly. Run normally does this on every
// enqueue and admission change.
func (s *Scheduler) RunCycle(ctx context.Context) {
	s.exec.RunCycle(ctx)
}

// AdmissionSignal subscribes to admission changes. Each event is an
// *events.AdmissionChanged.
func (s *Scheduler) AdmissionSignal(buffer int) <-chan events.Event {
	return s.bus.Subscribe(events.EventAdmissionChanged, buffer)
}

// CompletionSignal subscribes to successful downloads. Each event is an
// *events.DownloadCompleted.
func (s *Scheduler) CompletionSignal(buffer int) <-chan events.Event {
	return s.bus.Subscribe(events.EventDownloadCompleted, buffer)
}

// QueueSignal subscribes to queue snapshots. Each event is an
// *events.QueueChanged.
func (s *Scheduler) QueueSignal(buffer int) <-chan events.Event {
	return s.bus.Subscribe(events.EventQueueChanged, buffer)
}

// Unsubscribe releases a channel returned by one of the signal methods.
func (s *Scheduler) Unsubscribe(ch <-chan events.Event) {
	s.bus.Unsubscribe(ch)
}
