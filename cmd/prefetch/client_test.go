package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientStatus_Success(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/status").
		ExpectGET().
		RespondJSON(StatusResponse{
			Status:   "ok",
			Admitted: true,
			Counts:   map[string]int{"pending": 2, "completed": 1},
			Total:    3,
		}).
		Build()
	defer srv.Close()

	status, err := NewClient(srv.URL).Status()
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.True(t, status.Admitted)
	assert.Equal(t, 2, status.Counts["pending"])
	assert.Equal(t, 3, status.Total)
}

func TestClientStatus_ServerError(t *testing.T) {
	srv := newMockServer(t).
		RespondError(http.StatusInternalServerError, "internal server error").
		Build()
	defer srv.Close()

	_, err := NewClient(srv.URL).Status()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "internal server error")
}

func TestClientStatus_ConnectionError(t *testing.T) {
	srv := newMockServer(t).Build()
	srv.Close()

	_, err := NewClient(srv.URL).Status()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClientStatus_InvalidJSON(t *testing.T) {
	srv := newMockServer(t).
		Handler(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not valid json"))
		}).
		Build()
	defer srv.Close()

	_, err := NewClient(srv.URL).Status()
	require.Error(t, err)
}

func TestClientQueue_StatusFilter(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   string
	}{
		{"no filter", "", ""},
		{"pending", "pending", "pending"},
		{"failed", "failed", "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newMockServer(t).
				ExpectPath("/api/v1/queue").
				ExpectGET().
				Handler(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, tt.want, r.URL.Query().Get("status"))
					respondJSON(t, w, ListQueueResponse{})
				}).
				Build()
			defer srv.Close()

			_, err := NewClient(srv.URL).Queue(tt.status)
			require.NoError(t, err)
		})
	}
}

func TestClientQueue_WithItems(t *testing.T) {
	added := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := newMockServer(t).
		RespondJSON(ListQueueResponse{
			Items: []TaskResponse{
				{ID: "https://cdn.example.com/a.bin", Priority: 1, Status: "completed", LocalPath: "/data/a.bin", AddedAt: added},
				{ID: "https://cdn.example.com/b.bin", Priority: 3, Status: "failed", Error: "status 502"},
			},
			Total: 2,
		}).
		Build()
	defer srv.Close()

	resp, err := NewClient(srv.URL).Queue("")
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "/data/a.bin", resp.Items[0].LocalPath)
	assert.True(t, added.Equal(resp.Items[0].AddedAt))
	assert.Equal(t, "status 502", resp.Items[1].Error)
}

func TestClientTask(t *testing.T) {
	id := "https://cdn.example.com/a.bin?v=2"
	srv := newMockServer(t).
		ExpectPath("/api/v1/queue/task").
		ExpectGET().
		Handler(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, id, r.URL.Query().Get("id"))
			respondJSON(t, w, TaskResponse{ID: id, Priority: 1, Status: "downloading"})
		}).
		Build()
	defer srv.Close()

	resp, err := NewClient(srv.URL).Task(id)
	require.NoError(t, err)
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, "downloading", resp.Status)
}

func TestClientTask_NotFound(t *testing.T) {
	srv := newMockServer(t).
		RespondError(http.StatusNotFound, `{"error":"task not found","code":"NOT_FOUND"}`).
		Build()
	defer srv.Close()

	_, err := NewClient(srv.URL).Task("https://cdn.example.com/missing.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClientEnqueue(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/queue").
		ExpectPOST().
		Handler(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://cdn.example.com/a.bin", body["id"])
			assert.InDelta(t, 2, body["priority"], 0)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(EnqueueResponse{Enqueued: true, ID: "https://cdn.example.com/a.bin", Priority: 2})
		}).
		Build()
	defer srv.Close()

	resp, err := NewClient(srv.URL).Enqueue("https://cdn.example.com/a.bin", 2)
	require.NoError(t, err)
	assert.True(t, resp.Enqueued)
	assert.Equal(t, 2, resp.Priority)
}

func TestClientEnqueue_AlreadyTracked(t *testing.T) {
	srv := newMockServer(t).
		RespondJSON(EnqueueResponse{Enqueued: false, ID: "https://cdn.example.com/a.bin", Priority: 1}).
		Build()
	defer srv.Close()

	resp, err := NewClient(srv.URL).Enqueue("https://cdn.example.com/a.bin", 1)
	require.NoError(t, err)
	assert.False(t, resp.Enqueued)
}

func TestClientEnqueue_BadRequest(t *testing.T) {
	srv := newMockServer(t).
		RespondError(http.StatusBadRequest, `{"error":"invalid request"}`).
		Build()
	defer srv.Close()

	_, err := NewClient(srv.URL).Enqueue("not-a-url", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClientAdmission(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(*Client) (*AdmissionResponse, error)
		want bool
	}{
		{"start", "/api/v1/admission/start", (*Client).Start, true},
		{"pause", "/api/v1/admission/pause", (*Client).Pause, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newMockServer(t).
				ExpectPath(tt.path).
				ExpectPOST().
				RespondJSON(AdmissionResponse{Admitted: tt.want}).
				Build()
			defer srv.Close()

			resp, err := tt.call(NewClient(srv.URL))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Admitted)
		})
	}
}

func TestClientAdmission_Get(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/admission").
		ExpectGET().
		RespondJSON(AdmissionResponse{Admitted: true, Busy: true}).
		Build()
	defer srv.Close()

	resp, err := NewClient(srv.URL).Admission()
	require.NoError(t, err)
	assert.True(t, resp.Admitted)
	assert.True(t, resp.Busy)
}

func TestClientEvents_Limit(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/events").
		Handler(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			assert.Empty(t, r.URL.Query().Get("asset"))
			respondJSON(t, w, ListEventsResponse{
				Items: []EventResponse{{ID: 1, EventType: "download.completed", EntityType: "asset", EntityID: "https://cdn.example.com/a.bin"}},
				Total: 1,
				Limit: 5,
			})
		}).
		Build()
	defer srv.Close()

	resp, err := NewClient(srv.URL).Events(5, "")
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "download.completed", resp.Items[0].EventType)
}

func TestClientAssets(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/assets").
		RespondJSON(ListAssetsResponse{
			Items: []AssetResponse{{ID: "https://cdn.example.com/a.bin", SizeBytes: 2048}},
			Total: 1,
		}).
		Build()
	defer srv.Close()

	resp, err := NewClient(srv.URL).Assets(10)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(2048), resp.Items[0].SizeBytes)
}

func TestClientEvents_Asset(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/events").
		Handler(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "https://cdn.example.com/a.bin?v=2", r.URL.Query().Get("asset"))
			respondJSON(t, w, ListEventsResponse{})
		}).
		Build()
	defer srv.Close()

	_, err := NewClient(srv.URL).Events(20, "https://cdn.example.com/a.bin?v=2")
	require.NoError(t, err)
}

func TestClientStreamEvents(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/events/stream").
		ExpectGET().
		Handler(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "a", r.URL.Query().Get("asset"))
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = w.Write([]byte("event: download.started\ndata: {\"event_type\":\"download.started\",\"entity_id\":\"a\"}\n\n"))
			_, _ = w.Write([]byte("event: download.failed\ndata: {\"event_type\":\"download.failed\",\"entity_id\":\"a\",\"detail\":\"timeout\"}\n\n"))
		}).
		Build()
	defer srv.Close()

	var got []EventResponse
	err := NewClient(srv.URL).StreamEvents(context.Background(), "a", func(e EventResponse) {
		got = append(got, e)
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "download.started", got[0].EventType)
	assert.Equal(t, "timeout", got[1].Detail)
}

func TestClientStreamEvents_ServerError(t *testing.T) {
	srv := newMockServer(t).
		RespondError(http.StatusServiceUnavailable, "Event stream not configured").
		Build()
	defer srv.Close()

	err := NewClient(srv.URL).StreamEvents(context.Background(), "", func(EventResponse) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
