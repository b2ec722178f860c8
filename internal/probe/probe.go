// Package probe decides whether the network is fast enough for idle downloads.
//
// The check is a single timed request against a fixed endpoint. It is a
// coarse liveness and latency signal, not a bandwidth measurement.
package probe

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/vmunix/prefetch/internal/metrics"
)

// DefaultThreshold admits any successful probe that completes within 2000ms.
const DefaultThreshold = 0.5

//go:generate mockgen -source=probe.go -destination=mocks/mock_probe.go -package=mocks

// Prober reports whether idle downloading should be admitted.
type Prober interface {
	Measure(ctx context.Context) bool
}

// Config configures an HTTPProbe.
type Config struct {
	Endpoint  string
	Threshold float64       // speed must exceed this; speed = 1000 / latency_ms
	Timeout   time.Duration // hard cap on the request
}

// HTTPProbe issues one small POST and times it.
type HTTPProbe struct {
	endpoint   string
	threshold  float64
	httpClient *http.Client
	log        *slog.Logger
	now        func() time.Time
}

// probePayload asks the endpoint for a single item, keeping the response small.
var probePayload = []byte(`{"num":1}`)

// NewHTTPProbe creates a probe against cfg.Endpoint.
func NewHTTPProbe(cfg Config, log *slog.Logger) *HTTPProbe {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPProbe{
		endpoint:  cfg.Endpoint,
		threshold: cfg.Threshold,
		log:       log.With("component", "probe"),
		now:       time.Now,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Measure returns true when the endpoint answers successfully and fast
// enough. Transport errors and non-2xx responses count as too slow.
func (p *HTTPProbe) Measure(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(probePayload))
	if err != nil {
		p.log.Error("build probe request", "error", err)
		metrics.ProbeResults.WithLabelValues("error").Inc()
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	start := p.now()
	resp, err := p.httpClient.Do(req)
	elapsed := p.now().Sub(start)
	if err != nil {
		p.log.Warn("probe request failed", "error", err)
		metrics.ProbeResults.WithLabelValues("error").Inc()
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	metrics.ProbeDuration.Observe(elapsed.Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.log.Warn("probe endpoint returned error", "status", resp.Status)
		metrics.ProbeResults.WithLabelValues("error").Inc()
		return false
	}

	speed := Speed(elapsed)
	fast := speed > p.threshold
	p.log.Debug("network probe", "latency_ms", elapsed.Milliseconds(), "speed", speed, "fast", fast)
	if fast {
		metrics.ProbeResults.WithLabelValues("fast").Inc()
	} else {
		metrics.ProbeResults.WithLabelValues("slow").Inc()
	}
	return fast
}

// Speed converts a request latency into requests per second.
// A zero or negative latency is treated as infinitely fast.
func Speed(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	if ms <= 0 {
		return math.Inf(1)
	}
	return 1000 / ms
}
