// Package catalog lists candidate asset ids from the remote backend.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Sentinel errors for the catalog package.
var (
	// ErrUnavailable is returned when the catalog endpoint cannot be reached.
	ErrUnavailable = errors.New("catalog unavailable")

	// ErrRejected is returned when the backend answers with success=false.
	ErrRejected = errors.New("catalog rejected request")
)

//go:generate mockgen -source=catalog.go -destination=mocks/mock_catalog.go -package=mocks

// Source returns candidate asset ids to consider for download.
type Source interface {
	ListCandidates(ctx context.Context, count int) ([]string, error)
}

// Client talks to the catalog backend over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a catalog client posting to endpoint.
func NewClient(endpoint string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		log:      log.With("component", "catalog"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type listRequest struct {
	Num int `json:"num"`
}

type listResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Data    []string `json:"data"`
}

// ListCandidates asks the backend for up to count asset ids.
func (c *Client) ListCandidates(ctx context.Context, count int) ([]string, error) {
	start := time.Now()

	body, err := json.Marshal(listRequest{Num: count})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("catalog request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("catalog unexpected status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, out.Message)
	}

	ids := make([]string, 0, len(out.Data))
	for _, id := range out.Data {
		if id != "" {
			ids = append(ids, id)
		}
	}

	c.log.Debug("catalog listed", "requested", count, "returned", len(ids), "duration_ms", time.Since(start).Milliseconds())
	return ids, nil
}
