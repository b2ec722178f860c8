package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vmunix/prefetch/internal/assets"
	"github.com/vmunix/prefetch/internal/events"
	"github.com/vmunix/prefetch/internal/metrics"
	"github.com/vmunix/prefetch/internal/queue"
)

// Executor runs at most one transfer at a time, draining pending tasks while
// admission holds.
type Executor struct {
	state    *queueState
	adm      *admission
	store    assets.Store
	bus      *events.Bus
	timeout  time.Duration
	log      *slog.Logger
	inFlight atomic.Bool
}

// InFlight reports whether a cycle is currently running.
func (e *Executor) InFlight() bool {
	return e.inFlight.Load()
}

// RunCycle downloads pending tasks one after another until the queue has no
// pending work, admission is withdrawn, or ctx is done. It returns at once
// if another cycle is already running.
//
// Pausing only stops the next claim; a transfer already started runs to
// completion.
func (e *Executor) RunCycle(ctx context.Context) {
	if !e.adm.get() || !e.state.q.HasPending() {
		return
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer e.inFlight.Store(false)

	for ctx.Err() == nil && e.adm.get() {
		if !e.runOne(ctx) {
			return
		}
	}
}

// runOne claims and downloads a single task. It reports false when nothing
// was pending or admission was withdrawn before the claim.
func (e *Executor) runOne(ctx context.Context) bool {
	var task queue.Task
	claimed := e.state.mutate(ctx, func(q *queue.Queue) bool {
		// lock order is state then admission; admission.set never takes state
		if !e.adm.get() {
			return false
		}
		var ok bool
		task, ok = q.ClaimNext()
		return ok
	})
	if !claimed {
		return false
	}

	log := e.log.With("asset_id", task.ID)
	log.Debug("download started", "priority", task.Priority)
	e.publish(ctx, &events.DownloadStarted{
		BaseEvent: events.NewBaseEvent(events.EventDownloadStarted, events.EntityAsset, task.ID),
		AssetID:   task.ID,
	})
	metrics.DownloadsTotal.Inc()

	start := time.Now()
	localPath, err := e.fetch(ctx, task.ID)
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		e.state.mutate(ctx, func(q *queue.Queue) bool {
			return q.MarkFailed(task.ID, err) == nil
		})
		metrics.DownloadsFailed.Inc()
		log.Warn("download failed", "error", err)
		e.publish(ctx, &events.DownloadFailed{
			BaseEvent: events.NewBaseEvent(events.EventDownloadFailed, events.EntityAsset, task.ID),
			AssetID:   task.ID,
			Reason:    err.Error(),
		})
		return true
	}

	completed := e.state.mutate(ctx, func(q *queue.Queue) bool {
		return q.Update(task.ID, queue.StatusCompleted, localPath) == nil
	})
	if !completed {
		return true
	}
	metrics.DownloadsSuccess.Inc()
	log.Info("download completed", "path", localPath, "duration", time.Since(start).Round(time.Millisecond))

	// the completed snapshot is already out; observers may now read the file
	e.publish(ctx, &events.DownloadCompleted{
		BaseEvent: events.NewBaseEvent(events.EventDownloadCompleted, events.EntityAsset, task.ID),
		AssetID:   task.ID,
		LocalPath: localPath,
	})
	return true
}

func (e *Executor) fetch(ctx context.Context, id string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.store.Fetch(ctx, id)
}

func (e *Executor) publish(ctx context.Context, evt events.Event) {
	if err := e.bus.Publish(ctx, evt); err != nil {
		e.log.Error("failed to publish event", "type", evt.EventType(), "error", err)
	}
}
