// Package server wires the scheduler, its collaborators and the HTTP API
// into one process.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	v1 "github.com/vmunix/prefetch/internal/api/v1"
	"github.com/vmunix/prefetch/internal/assets"
	"github.com/vmunix/prefetch/internal/catalog"
	"github.com/vmunix/prefetch/internal/config"
	"github.com/vmunix/prefetch/internal/events"
	"github.com/vmunix/prefetch/internal/probe"
	"github.com/vmunix/prefetch/internal/scheduler"
)

// Config for the runner.
type Config struct {
	Addr           string // HTTP listen address; empty disables the API
	AssetDir       string
	MaxAssetSize   int64
	CatalogURL     string
	CatalogTimeout time.Duration
	Probe          *probe.Config // nil disables the admission probe
	Scheduler      scheduler.Config
	EventRetention time.Duration // 0 keeps every event
}

// ConfigFrom maps a loaded config file onto a runner Config.
func ConfigFrom(cfg *config.Config) Config {
	rc := Config{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		AssetDir:       cfg.Storage.Dir,
		MaxAssetSize:   cfg.Storage.MaxSizeBytes,
		CatalogURL:     cfg.Catalog.URL,
		CatalogTimeout: cfg.Catalog.Timeout,
		Scheduler: scheduler.Config{
			Interval:     cfg.Discovery.Interval,
			BatchSize:    cfg.Discovery.BatchSize,
			Retention:    cfg.Queue.Retention,
			FetchTimeout: cfg.Download.Timeout,
			RunOnStart:   cfg.Discovery.RunOnStart,
		},
		EventRetention: cfg.Database.EventRetention,
	}
	if cfg.Probe.Enabled {
		rc.Probe = &probe.Config{
			Endpoint:  cfg.Probe.URL,
			Threshold: cfg.Probe.Threshold,
			Timeout:   cfg.Probe.Timeout,
		}
	}
	return rc
}

// Runner manages the long-running components.
type Runner struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

// NewRunner creates a new runner.
func NewRunner(db *sql.DB, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// Run starts all components.
// It blocks until the context is canceled or a component fails.
func (r *Runner) Run(ctx context.Context) error {
	// Create event bus with persistence; snapshots are too chatty to keep
	eventLog := events.NewEventLog(r.db)
	bus := events.NewBus(eventLog, r.logger.With("component", "bus"))
	defer func() { _ = bus.Close() }()
	bus.SkipPersist(events.EventQueueChanged)

	// Collaborators
	index := assets.NewIndex(r.db)
	store, err := assets.NewLocalStore(assets.Config{
		Dir:     r.config.AssetDir,
		MaxSize: r.config.MaxAssetSize,
	}, index, r.logger)
	if err != nil {
		return fmt.Errorf("asset store: %w", err)
	}
	source := catalog.NewClient(r.config.CatalogURL, r.config.CatalogTimeout, r.logger)

	var prober probe.Prober
	if r.config.Probe != nil {
		prober = probe.NewHTTPProbe(*r.config.Probe, r.logger)
	}

	sched, err := scheduler.New(r.config.Scheduler, store, source, prober, bus, r.logger)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	// Everything that can fail is set up before the first goroutine starts.
	var (
		srv *http.Server
		ln  net.Listener
	)
	if r.config.Addr != "" {
		api, err := v1.NewWithDeps(v1.ServerDeps{
			Scheduler: sched,
			EventLog:  eventLog,
			Bus:       bus,
			Assets:    store.Index(),
		}, r.logger)
		if err != nil {
			return fmt.Errorf("api: %w", err)
		}
		ln, err = net.Listen("tcp", r.config.Addr)
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		srv = &http.Server{
			Handler:           v1.NewRouter(api),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	// Use errgroup to manage component lifecycle
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	g.Go(func() error {
		r.pruneEvents(ctx, eventLog)
		return nil
	})

	if srv != nil {
		// streams end when the runner stops
		srv.BaseContext = func(net.Listener) context.Context { return ctx }

		g.Go(func() error {
			r.logger.Info("http server listening", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			// Graceful HTTP shutdown with 30s timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// pruneEvents trims the persisted event log once an hour.
func (r *Runner) pruneEvents(ctx context.Context, log *events.EventLog) {
	if r.config.EventRetention <= 0 {
		return
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	prune := func() {
		n, err := log.Prune(r.config.EventRetention)
		if err != nil {
			r.logger.Error("failed to prune event log", "error", err)
			return
		}
		if n > 0 {
			r.logger.Info("pruned event log", "deleted", n)
		}
	}

	prune()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
