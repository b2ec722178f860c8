package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vmunix/prefetch/internal/events"
)

// listEvents serves the persisted event log. With ?asset=<id> it returns
// that asset's history oldest first; with ?since=<RFC3339> everything from
// that instant on. Otherwise it pages through the log newest first.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	q := r.URL.Query()
	var (
		raws  []events.RawEvent
		total int
	)
	switch {
	case q.Get("asset") != "":
		raws, err = s.deps.EventLog.ForEntity(events.EntityAsset, q.Get("asset"))
		raws, total = page(raws, limit, offset)
	case q.Get("since") != "":
		since, perr := time.Parse(time.RFC3339, q.Get("since"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be an RFC3339 timestamp")
			return
		}
		raws, err = s.deps.EventLog.Since(since)
		raws, total = page(raws, limit, offset)
	default:
		raws, total, err = s.deps.EventLog.Recent(limit, offset)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	resp := listEventsResponse{
		Items:  make([]EventResponse, len(raws)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i, raw := range raws {
		resp.Items[i] = EventResponse{
			ID:         raw.ID,
			EventType:  raw.EventType,
			EntityType: raw.EntityType,
			EntityID:   raw.EntityID,
			OccurredAt: raw.OccurredAt.Format(time.RFC3339),
		}
		if e, err := s.registry.Unmarshal(raw); err == nil {
			resp.Items[i].Detail = describe(e)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func page(raws []events.RawEvent, limit, offset int) ([]events.RawEvent, int) {
	total := len(raws)
	if offset >= total {
		return nil, total
	}
	raws = raws[offset:]
	if limit < len(raws) {
		raws = raws[:limit]
	}
	return raws, total
}

// streamEvents pushes live events as server-sent events until the client
// goes away. ?asset=<id> narrows the stream to one asset.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "STREAM_UNSUPPORTED", "streaming not supported")
		return
	}

	ctx := r.Context()
	var ch <-chan events.Event
	if id := r.URL.Query().Get("asset"); id != "" {
		ch = s.deps.Bus.SubscribeEntity(ctx, events.EntityAsset, id, 64)
	} else {
		all := s.deps.Bus.SubscribeAll(64)
		defer s.deps.Bus.Unsubscribe(all)
		ch = all
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			// Snapshots carry the whole queue; clients poll /queue instead.
			if e.EventType() == events.EventQueueChanged {
				continue
			}
			data, err := json.Marshal(EventResponse{
				EventType:  e.EventType(),
				EntityType: e.EntityType(),
				EntityID:   e.EntityID(),
				OccurredAt: e.OccurredAt().Format(time.RFC3339),
				Detail:     describe(e),
			})
			if err != nil {
				s.log.Error("failed to encode stream event", "type", e.EventType(), "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.EventType(), data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// describe renders the type-specific part of an event in one line.
func describe(e events.Event) string {
	switch e := e.(type) {
	case *events.TaskEnqueued:
		return fmt.Sprintf("priority %d", e.Priority)
	case *events.AdmissionChanged:
		if e.Admitted {
			return "admitted by " + e.Source
		}
		return "paused by " + e.Source
	case *events.DiscoveryCompleted:
		return fmt.Sprintf("%d candidates, %d enqueued, %d pruned", e.Candidates, e.Enqueued, e.Pruned)
	case *events.DownloadCompleted:
		return e.LocalPath
	case *events.DownloadFailed:
		return e.Reason
	default:
		return ""
	}
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", err.Error())
		return
	}

	records, total, err := s.deps.Assets.List(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ASSET_ERROR", err.Error())
		return
	}

	resp := listAssetsResponse{
		Items:  make([]assetResponse, len(records)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i, rec := range records {
		resp.Items[i] = assetResponse{
			ID:          rec.AssetID,
			LocalPath:   rec.LocalPath,
			SizeBytes:   rec.SizeBytes,
			ContentType: rec.ContentType,
			FetchedAt:   rec.FetchedAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
