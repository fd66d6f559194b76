package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WebhookSink implements Sink by POSTing entry batches as JSON to a
// configured URL.
type WebhookSink struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// WebhookOption configures a WebhookSink.
type WebhookOption func(*WebhookSink)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(s *WebhookSink) {
		s.client = c
	}
}

// WithHeaders sets extra request headers (auth tokens and the like).
func WithHeaders(h map[string]string) WebhookOption {
	return func(s *WebhookSink) {
		s.headers = h
	}
}

// NewWebhookSink creates a new WebhookSink.
func NewWebhookSink(url string, opts ...WebhookOption) *WebhookSink {
	s := &WebhookSink{
		url:    url,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type webhookPayload struct {
	Entries []Entry `json:"entries"`
}

// Ship implements Sink.
func (s *WebhookSink) Ship(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	body, err := json.Marshal(webhookPayload{Entries: entries})
	if err != nil {
		return fmt.Errorf("encoding sink payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.url, bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating sink request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to sink: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sink returned status %d", resp.StatusCode)
	}

	return nil
}
