package scheduler

import (
	"context"
	"time"

	"github.com/vmunix/prefetch/internal/events"
	"github.com/vmunix/prefetch/internal/metrics"
	"github.com/vmunix/prefetch/internal/queue"
)

// runDiscovery ticks every cfg.Interval until ctx is canceled. Tick errors
// are logged and never stop the loop.
func (s *Scheduler) runDiscovery(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if s.cfg.RunOnStart {
		s.Tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one discovery pass: refresh admission from the probe, prune
// expired terminal tasks, then enqueue catalog candidates that are not yet
// stored locally.
func (s *Scheduler) Tick(ctx context.Context) {
	metrics.DiscoveryTicks.Inc()

	if s.prober != nil {
		admitted := s.prober.Measure(ctx)
		s.adm.set(ctx, admitted, events.SourceProbe)
		if admitted {
			s.kick()
		}
	}

	pruned := s.prune(ctx)

	ids, err := s.source.ListCandidates(ctx, s.cfg.BatchSize)
	if err != nil {
		metrics.DiscoveryErrors.WithLabelValues("catalog").Inc()
		s.log.Warn("failed to list candidates", "error", err)
		return
	}

	enqueued := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		exists, err := s.store.Exists(ctx, id)
		if err != nil {
			metrics.DiscoveryErrors.WithLabelValues("exists").Inc()
			s.log.Warn("failed to check asset", "asset_id", id, "error", err)
			continue
		}
		if exists {
			continue
		}
		if s.Enqueue(ctx, id, queue.PriorityIdle) {
			enqueued++
		}
	}

	s.log.Debug("discovery tick", "candidates", len(ids), "enqueued", enqueued, "pruned", pruned)
	evt := &events.DiscoveryCompleted{
		BaseEvent:  events.NewBaseEvent(events.EventDiscoveryCompleted, events.EntityScheduler, events.SchedulerID),
		Candidates: len(ids),
		Enqueued:   enqueued,
		Pruned:     pruned,
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.log.Error("failed to publish DiscoveryCompleted event", "error", err)
	}
}

func (s *Scheduler) prune(ctx context.Context) int {
	if s.cfg.Retention <= 0 {
		return 0
	}
	var n int
	s.state.mutate(ctx, func(q *queue.Queue) bool {
		n = q.Prune(s.cfg.Retention)
		return n > 0
	})
	if n > 0 {
		metrics.TasksPruned.Add(float64(n))
		s.log.Debug("pruned terminal tasks", "count", n)
	}
	return n
}
