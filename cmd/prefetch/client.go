package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client wraps HTTP calls to the prefetch daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new prefetch API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// API response types (mirror server types)

type StatusResponse struct {
	Status   string         `json:"status"`
	Admitted bool           `json:"admitted"`
	Busy     bool           `json:"busy"`
	Counts   map[string]int `json:"counts"`
	Total    int            `json:"total"`
}

type TaskResponse struct {
	ID        string    `json:"id"`
	Priority  int       `json:"priority"`
	Status    string    `json:"status"`
	LocalPath string    `json:"local_path,omitempty"`
	Error     string    `json:"error,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListQueueResponse struct {
	Items []TaskResponse `json:"items"`
	Total int            `json:"total"`
}

type EnqueueResponse struct {
	Enqueued bool   `json:"enqueued"`
	ID       string `json:"id"`
	Priority int    `json:"priority"`
}

type AdmissionResponse struct {
	Admitted bool `json:"admitted"`
	Busy     bool `json:"busy"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
	Detail     string `json:"detail,omitempty"`
}

type ListEventsResponse struct {
	Items  []EventResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type AssetResponse struct {
	ID          string    `json:"id"`
	LocalPath   string    `json:"local_path"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type ListAssetsResponse struct {
	Items  []AssetResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// Client methods

func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Queue lists tasks, optionally filtered by status.
func (c *Client) Queue(status string) (*ListQueueResponse, error) {
	path := "/api/v1/queue"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var resp ListQueueResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Task(id string) (*TaskResponse, error) {
	var resp TaskResponse
	if err := c.get("/api/v1/queue/task?id="+url.QueryEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Enqueue(id string, priority int) (*EnqueueResponse, error) {
	req := map[string]any{"id": id, "priority": priority}
	var resp EnqueueResponse
	if err := c.post("/api/v1/queue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Admission() (*AdmissionResponse, error) {
	var resp AdmissionResponse
	if err := c.get("/api/v1/admission", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Start() (*AdmissionResponse, error) {
	var resp AdmissionResponse
	if err := c.post("/api/v1/admission/start", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Pause() (*AdmissionResponse, error) {
	var resp AdmissionResponse
	if err := c.post("/api/v1/admission/pause", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns recent events, or one asset's history when asset is set.
func (c *Client) Events(limit int, asset string) (*ListEventsResponse, error) {
	path := "/api/v1/events?limit=" + strconv.Itoa(limit)
	if asset != "" {
		path += "&asset=" + url.QueryEscape(asset)
	}
	var resp ListEventsResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamEvents follows the live event stream, calling fn for each event,
// until ctx is canceled or the server closes the stream.
func (c *Client) StreamEvents(ctx context.Context, asset string, fn func(EventResponse)) error {
	path := "/api/v1/events/stream"
	if asset != "" {
		path += "?asset=" + url.QueryEscape(asset)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// no client timeout: the stream is open-ended
	resp, err := (&http.Client{Transport: c.httpClient.Transport}).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var e EventResponse
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		fn(e)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

func (c *Client) Assets(limit int) (*ListAssetsResponse, error) {
	var resp ListAssetsResponse
	if err := c.get("/api/v1/assets?limit="+strconv.Itoa(limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
