package v1

import (
	"time"

	"github.com/vmunix/prefetch/internal/queue"
)

// enqueueRequest is the body of POST /queue. Priority 0 means high.
type enqueueRequest struct {
	ID       string `json:"id" validate:"required,max=2048,http_url"`
	Priority int    `json:"priority" validate:"omitempty,min=1,max=3"`
}

type enqueueResponse struct {
	Enqueued bool   `json:"enqueued"`
	ID       string `json:"id"`
	Priority int    `json:"priority"`
}

// taskResponse is the API representation of a queued task.
type taskResponse struct {
	ID        string    `json:"id"`
	Priority  int       `json:"priority"`
	Status    string    `json:"status"`
	LocalPath string    `json:"local_path,omitempty"`
	Error     string    `json:"error,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTaskResponse(t queue.Task) taskResponse {
	return taskResponse{
		ID:        t.ID,
		Priority:  int(t.Priority),
		Status:    string(t.Status),
		LocalPath: t.LocalPath,
		Error:     t.Error,
		AddedAt:   t.AddedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// listQueueResponse is the response for GET /queue.
type listQueueResponse struct {
	Items []taskResponse `json:"items"`
	Total int            `json:"total"`
}

type admissionResponse struct {
	Admitted bool `json:"admitted"`
	Busy     bool `json:"busy"`
}

type statusResponse struct {
	Status   string         `json:"status"`
	Admitted bool           `json:"admitted"`
	Busy     bool           `json:"busy"`
	Counts   map[string]int `json:"counts"`
	Total    int            `json:"total"`
}

// EventResponse is one event, either from the persisted log or the live
// stream (where ID is zero).
type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
	Detail     string `json:"detail,omitempty"`
}

type listEventsResponse struct {
	Items  []EventResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type assetResponse struct {
	ID          string    `json:"id"`
	LocalPath   string    `json:"local_path"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type listAssetsResponse struct {
	Items  []assetResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
