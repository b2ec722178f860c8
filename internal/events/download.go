// internal/events/download.go
package events

import "github.com/vmunix/prefetch/internal/queue"

// Entity types
const (
	EntityAsset     = "asset"
	EntityScheduler = "scheduler"
)

// SchedulerID is the entity id used for scheduler-wide events.
const SchedulerID = "scheduler"

// Event type constants
const (
	EventTaskEnqueued       = "task.enqueued"
	EventQueueChanged       = "queue.changed"
	EventAdmissionChanged   = "admission.changed"
	EventDiscoveryCompleted = "discovery.completed"
	EventDownloadStarted    = "download.started"
	EventDownloadCompleted  = "download.completed"
	EventDownloadFailed     = "download.failed"
)

// Admission sources
const (
	SourceManual = "manual"
	SourceProbe  = "probe"
)

// TaskEnqueued is emitted when a new asset id enters the queue.
type TaskEnqueued struct {
	BaseEvent
	AssetID  string         `json:"asset_id"`
	Priority queue.Priority `json:"priority"`
}

// QueueChanged carries a point-in-time copy of the whole queue.
// Receivers own the slice.
type QueueChanged struct {
	BaseEvent
	Tasks []queue.Task `json:"tasks"`
}

// AdmissionChanged is emitted on every admission signal, manual or probed,
// including ones that repeat the current state.
type AdmissionChanged struct {
	BaseEvent
	Admitted bool   `json:"admitted"`
	Source   string `json:"source"` // "manual" or "probe"
}

// DiscoveryCompleted summarizes one discovery tick.
type DiscoveryCompleted struct {
	BaseEvent
	Candidates int `json:"candidates"`
	Enqueued   int `json:"enqueued"`
	Pruned     int `json:"pruned"`
}

// DownloadStarted is emitted when the executor claims a task.
type DownloadStarted struct {
	BaseEvent
	AssetID string `json:"asset_id"`
}

// DownloadCompleted is emitted once per successful transfer, after the task
// is already completed in the queue.
type DownloadCompleted struct {
	BaseEvent
	AssetID   string `json:"asset_id"`
	LocalPath string `json:"local_path"`
}

// DownloadFailed is emitted when a transfer fails. Failed tasks are not retried.
type DownloadFailed struct {
	BaseEvent
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
}
