package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

// WebhookNotifier implements Notifier by POSTing the alert payload as JSON
// to a configured URL. Sends are rate limited so that a burst of alerts
// cannot flood the receiving endpoint.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookNotifier creates a WebhookNotifier for url.
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	w := &WebhookNotifier{
		url:     url,
		client:  http.DefaultClient,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookNotifier) {
		w.client = c
	}
}

// WithHeaders sets extra request headers (auth tokens and the like).
func WithHeaders(h map[string]string) WebhookOption {
	return func(w *WebhookNotifier) {
		w.headers = h
	}
}

// WithRateLimit sets the send rate limit.
func WithRateLimit(perSecond float64, burst int) WebhookOption {
	return func(w *WebhookNotifier) {
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// SendAlert posts one alert payload.
func (w *WebhookNotifier) SendAlert(ctx context.Context, alert *AlertPayload) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshaling alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
