package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx reply decoded from ErrorResponse.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to a running daemon over HTTP.
type Client struct {
	base string
	http *http.Client
}

// BaseURL converts a bind address such as 127.0.0.1:7571 into a client URL.
func BaseURL(bind string) string {
	bind = strings.TrimSpace(bind)
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return strings.TrimRight(bind, "/")
	}
	if host, port, err := net.SplitHostPort(bind); err == nil && (host == "" || host == "0.0.0.0" || host == "::") {
		bind = net.JoinHostPort("127.0.0.1", port)
	}
	return "http://" + bind
}

// NewClient builds a client for baseURL. A zero timeout uses 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status calls GET /api/status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSessions returns every session.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var resp SessionListResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// StartSession creates a session.
func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (*Session, error) {
	var resp Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EndSession force-ends a session's active clip.
func (c *Client) EndSession(ctx context.Context, id string) (*EndResponse, error) {
	var resp EndResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/end", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSession removes a session and everything cut from it.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil)
}

// Trigger submits a trigger for sessionID.
func (c *Client) Trigger(ctx context.Context, sessionID string, req TriggerRequest) (*TriggerResponse, error) {
	var resp TriggerResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/triggers", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListQueue returns queue items, optionally filtered by status.
func (c *Client) ListQueue(ctx context.Context, statuses ...string) ([]QueueItem, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		q := url.Values{}
		q.Set("status", strings.Join(statuses, ","))
		path += "?" + q.Encode()
	}
	var resp QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetItem fetches one queue item.
func (c *Client) GetItem(ctx context.Context, id string) (*QueueItem, error) {
	var resp QueueItem
	if err := c.do(ctx, http.MethodGet, "/api/queue/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStats returns per-status counts.
func (c *Client) QueueStats(ctx context.Context) (map[string]int, error) {
	var resp QueueStatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// EndClip ends a recording clip at t1, or at its auto-clip end when t1 is nil.
func (c *Client) EndClip(ctx context.Context, id string, t1 *float64) (*EndResponse, error) {
	var resp EndResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue/"+url.PathEscape(id)+"/end", EndClipRequest{T1: t1}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelClip deletes an item that has not completed.
func (c *Client) CancelClip(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/queue/"+url.PathEscape(id)+"/cancel", nil, nil)
}

// Retry moves a FAILED item back to PENDING.
func (c *Client) Retry(ctx context.Context, id string) (*QueueItem, error) {
	var resp QueueItem
	if err := c.do(ctx, http.MethodPost, "/api/queue/"+url.PathEscape(id)+"/retry", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RetryAllFailed requeues every FAILED item.
func (c *Client) RetryAllFailed(ctx context.Context) (int64, error) {
	var resp CountResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue/retry-failed", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ClearCompleted removes COMPLETED items.
func (c *Client) ClearCompleted(ctx context.Context) (int64, error) {
	var resp CountResponse
	if err := c.do(ctx, http.MethodDelete, "/api/queue/completed", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// TriggerConfig fetches the effective trigger settings for workflow.
func (c *Client) TriggerConfig(ctx context.Context, workflow string) (*TriggerConfig, error) {
	var resp TriggerConfig
	if err := c.do(ctx, http.MethodGet, "/api/trigger-configs/"+url.PathEscape(workflow), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetTriggerConfig stores trigger settings for workflow.
func (c *Client) SetTriggerConfig(ctx context.Context, workflow string, cfg TriggerConfig) (*TriggerConfig, error) {
	cfg.Workflow = ""
	cfg.UpdatedAt = ""
	var resp TriggerConfig
	if err := c.do(ctx, http.MethodPut, "/api/trigger-configs/"+url.PathEscape(workflow), cfg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetClip fetches a finished clip.
func (c *Client) GetClip(ctx context.Context, id string) (*Clip, error) {
	var resp Clip
	if err := c.do(ctx, http.MethodGet, "/api/clips/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExportClip renders a clip for one or more platforms.
func (c *Client) ExportClip(ctx context.Context, id string, req ExportRequest) (*ExportResponse, error) {
	var resp ExportResponse
	if err := c.do(ctx, http.MethodPost, "/api/clips/"+url.PathEscape(id)+"/export", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errResp ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if json.Unmarshal(data, &errResp) != nil || errResp.Error == "" {
			errResp.Error = strings.TrimSpace(string(data))
			if errResp.Error == "" {
				errResp.Error = http.StatusText(resp.StatusCode)
			}
		}
		return &APIError{Status: resp.StatusCode, Code: errResp.Code, Message: errResp.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
