// Package webhook notifies configured subscriber URLs about committed
// actions. Delivery is fire-and-forget with logging; the action log has
// already committed by the time a webhook fires, so failures never surface to
// the original caller.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// Subscriber is one registered webhook endpoint. EventTypes filters which
// configured event types it receives; empty means all.
type Subscriber struct {
	URL        string
	Secret     string
	EventTypes []string
}

// Dispatcher fans committed events out to subscribers.
type Dispatcher struct {
	subscribers []Subscriber
	client      *http.Client
	logger      *slog.Logger
}

func NewDispatcher(subscribers []Subscriber, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subscribers: subscribers,
		client:      &http.Client{Timeout: 5 * time.Second},
		logger:      logger,
	}
}

// Dispatch posts the payload to every subscriber registered for the event
// type. Each delivery is signed so subscribers can verify origin. Errors are
// logged per subscriber and do not stop the fan-out.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, payload any) {
	if len(d.subscribers) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.ErrorContext(ctx, "webhook payload marshal failed", "error", err)
		return
	}

	for _, sub := range d.subscribers {
		if len(sub.EventTypes) > 0 && !slices.Contains(sub.EventTypes, eventType) {
			continue
		}
		if err := d.deliver(ctx, sub, body); err != nil {
			d.logger.WarnContext(ctx, "webhook delivery failed",
				"url", sub.URL,
				"event_type", eventType,
				"error", err,
			)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sub Subscriber, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature-256", Sign(sub.Secret, body))

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("post webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 signature subscribers verify against.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
