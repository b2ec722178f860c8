// Package metrics defines the Prometheus collectors exported by the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prefetch_tasks_enqueued_total",
		Help: "Total number of tasks accepted into the queue",
	})

	QueueTasks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prefetch_queue_tasks",
		Help: "Number of tracked tasks by status",
	}, []string{"status"})

	TasksPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prefetch_tasks_pruned_total",
		Help: "Total number of terminal tasks dropped after the retention window",
	})

	DownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prefetch_downloads_total",
		Help: "Total number of download attempts",
	})

	DownloadsSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prefetch_downloads_success_total",
		Help: "Total number of successful downloads",
	})

	DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prefetch_downloads_failed_total",
		Help: "Total number of failed downloads",
	})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prefetch_download_duration_seconds",
		Help:    "Download duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prefetch_download_bytes_total",
		Help: "Total bytes written to the asset cache",
	})

	Admitted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prefetch_admitted",
		Help: "1 when idle downloading is admitted, 0 otherwise",
	})

	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prefetch_probe_duration_seconds",
		Help:    "Latency of the network admission probe",
		Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
	})

	ProbeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prefetch_probe_results_total",
		Help: "Admission probe verdicts by result",
	}, []string{"result"}) // fast, slow, error

	DiscoveryTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prefetch_discovery_ticks_total",
		Help: "Total number of discovery ticks",
	})

	DiscoveryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prefetch_discovery_errors_total",
		Help: "Discovery failures by stage",
	}, []string{"stage"}) // catalog, exists
)

// SetAdmitted records the current admission state.
func SetAdmitted(admitted bool) {
	if admitted {
		Admitted.Set(1)
		return
	}
	Admitted.Set(0)
}
