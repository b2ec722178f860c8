package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// requireEventLog returns 503 if the event log is not configured.
func (s *Server) requireEventLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.EventLog == nil {
			writeError(w, http.StatusServiceUnavailable, "NO_EVENT_LOG", "Event log not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireBus returns 503 if no event bus is wired.
func (s *Server) requireBus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Bus == nil {
			writeError(w, http.StatusServiceUnavailable, "NO_EVENT_BUS", "Event stream not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAssets returns 503 if the asset index is not configured.
func (s *Server) requireAssets(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Assets == nil {
			writeError(w, http.StatusServiceUnavailable, "NO_ASSET_INDEX", "Asset index not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests logs one line per request at info level.
func logRequests(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"request_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
