// internal/notify/webhook.go
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// WebhookPublisher POSTs notifications to an external delivery service.
// A circuit breaker stops the POSTs while the receiver is down, so a
// dead sink costs the request path nothing beyond a fast error.
type WebhookPublisher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     zerolog.Logger
}

func NewWebhookPublisher(url string, timeout time.Duration, log zerolog.Logger) *WebhookPublisher {
	settings := gobreaker.Settings{
		Name:    "notify-webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &WebhookPublisher{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		log:     log.With().Str("component", "notify_webhook").Logger(),
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, ev Event) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.post(ctx, ev)
	})
	return err
}

func (p *WebhookPublisher) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
