package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/config"
)

const userAgent = "clipforge/0.1.0"

// Webhook POSTs every envelope as JSON to an external push transport. Publish
// blocks for the request; daemons wrap it in Async.
type Webhook struct {
	endpoint string
	client   *http.Client
}

// NewWebhook builds a webhook sink for endpoint.
func NewWebhook(endpoint string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// NewFromConfig returns an Async-wrapped Webhook when notifications.webhook_url
// is set and Nop otherwise. The Async sink must be closed on shutdown.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) Sink {
	if cfg == nil {
		return Nop{}
	}
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return Nop{}
	}
	return NewAsync(NewWebhook(endpoint, time.Duration(cfg.Notifications.RequestTimeout)*time.Second), defaultAsyncBuffer, logger)
}

// Publish implements Sink.
func (w *Webhook) Publish(ctx context.Context, env Envelope) error {
	if w == nil || w.client == nil {
		return nil
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Clipforge-Event", string(env.Type))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
