// Package notify delivers per-transition outcome notifications. The server
// emits exactly one event per completed (or rejected) transition; clients
// surface these the way the web UI surfaces toasts.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medhirweb/salespipe/internal/resilience"
)

// Level classifies an event.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Event describes the outcome of one transition attempt.
type Event struct {
	Level     Level          `json:"level"`
	Action    string         `json:"action"`
	LeadID    string         `json:"lead_id"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier delivers events. Delivery failures are logged, never propagated:
// a lost notification must not fail the transition that produced it.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// LogNotifier writes events to the global zap logger.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event Event) {
	fields := []zap.Field{
		zap.String("action", event.Action),
		zap.String("lead_id", event.LeadID),
	}
	if event.Level == LevelError {
		zap.L().Warn(event.Message, fields...)
		return
	}
	zap.L().Info(event.Message, fields...)
}

// WebhookNotifier POSTs events to a configured webhook URL. Transient
// failures (timeouts, 5xx, 429) are retried with backoff; a delivery that
// still fails is logged and dropped.
type WebhookNotifier struct {
	url    string
	client *http.Client
	retry  resilience.RetryConfig
}

// NewWebhook creates a WebhookNotifier.
func NewWebhook(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("webhook_post")
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		retry:  retry,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	err := resilience.Do(ctx, n.retry, func(ctx context.Context) error {
		return n.send(ctx, event)
	})
	if err != nil {
		zap.L().Warn("notify: webhook delivery failed",
			zap.String("action", event.Action),
			zap.String("lead_id", event.LeadID),
			zap.Error(err),
		)
	}
}

func (n *WebhookNotifier) send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "notify: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: post webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := eris.Errorf("notify: webhook returned %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}
