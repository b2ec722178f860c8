// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vmunix/prefetch/internal/events"
	"github.com/vmunix/prefetch/internal/queue"
)

// Server is the v1 API server.
type Server struct {
	deps     ServerDeps
	validate *validator.Validate
	registry *events.Registry
	log      *slog.Logger
}

// NewWithDeps creates a new v1 API server with explicit dependencies.
func NewWithDeps(deps ServerDeps, log *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingDependency, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		deps:     deps,
		validate: validator.New(),
		registry: events.DefaultRegistry(),
		log:      log.With("component", "api"),
	}, nil
}

// RegisterRoutes registers API routes on the given router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		// Queue
		r.Get("/queue", s.listQueue)
		r.Post("/queue", s.enqueue)
		r.Get("/queue/task", s.getTask)

		// Admission
		r.Get("/admission", s.getAdmission)
		r.Post("/admission/start", s.startAdmission)
		r.Post("/admission/pause", s.pauseAdmission)

		// Audit
		r.With(s.requireEventLog).Get("/events", s.listEvents)
		r.With(s.requireBus).Get("/events/stream", s.streamEvents)
		r.With(s.requireAssets).Get("/assets", s.listAssets)

		// System
		r.Get("/status", s.getStatus)
	})
}

// NewRouter builds the daemon's HTTP handler: the API plus health and
// Prometheus endpoints.
func NewRouter(s *Server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logRequests(s.log))

	s.RegisterRoutes(r)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// pagination reads limit and offset, capping limit at maxLimit.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = queryInt(r, "limit", 50)
	offset = queryInt(r, "offset", 0)
	if limit < 0 || offset < 0 {
		return 0, 0, errors.New("limit and offset must be non-negative")
	}
	const maxLimit = 1000
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, offset, nil
}

func (s *Server) listQueue(w http.ResponseWriter, r *http.Request) {
	var filter *queue.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := queue.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error())
			return
		}
		filter = &st
	}

	tasks := s.deps.Scheduler.Snapshot()
	items := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		if filter != nil && t.Status != *filter {
			continue
		}
		items = append(items, toTaskResponse(t))
	}

	writeJSON(w, http.StatusOK, listQueueResponse{Items: items, Total: len(items)})
}

// getTask looks up one task. Asset IDs are URLs, so the ID travels in the
// query string rather than the path.
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "id is required")
		return
	}
	task, ok := s.deps.Scheduler.Task(id)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "task not found")
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.log.Warn("enqueue validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	priority := queue.Priority(req.Priority)
	if priority == 0 {
		priority = queue.PriorityHigh
	}

	inserted := s.deps.Scheduler.Enqueue(r.Context(), req.ID, priority)
	code := http.StatusOK
	if inserted {
		code = http.StatusCreated
		s.log.Info("task enqueued", "asset_id", req.ID, "priority", priority)
	}
	writeJSON(w, code, enqueueResponse{Enqueued: inserted, ID: req.ID, Priority: int(priority)})
}

func (s *Server) getAdmission(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, admissionResponse{
		Admitted: s.deps.Scheduler.Admitted(),
		Busy:     s.deps.Scheduler.Busy(),
	})
}

func (s *Server) startAdmission(w http.ResponseWriter, r *http.Request) {
	s.deps.Scheduler.Start(r.Context())
	s.getAdmission(w, r)
}

func (s *Server) pauseAdmission(w http.ResponseWriter, r *http.Request) {
	s.deps.Scheduler.Pause(r.Context())
	s.getAdmission(w, r)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	counts := s.deps.Scheduler.Counts()
	resp := statusResponse{
		Status:   "ok",
		Admitted: s.deps.Scheduler.Admitted(),
		Busy:     s.deps.Scheduler.Busy(),
		Counts:   make(map[string]int, len(counts)),
	}
	for st, n := range counts {
		resp.Counts[string(st)] = n
		resp.Total += n
	}
	writeJSON(w, http.StatusOK, resp)
}
