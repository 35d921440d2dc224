package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/edplatform/upload-manager/internal/config"
)

// Dispatcher hands processing jobs to downstream workers. Enqueue returns
// only after the delivery is confirmed; an error means the job may not be
// in flight and the caller must fail the whole operation.
type Dispatcher interface {
	Enqueue(ctx context.Context, topic string, payload map[string]any) error
}

// HTTPDispatcher publishes jobs by POSTing JSON to <baseURL>/<topic>.
// Transient failures (5xx, network) are retried with fibonacci backoff
// before the error is surfaced.
type HTTPDispatcher struct {
	client       *http.Client
	baseURL      string
	serviceToken string
	maxRetries   uint64
}

func NewHTTPDispatcher(cfg config.DispatchConfig) *HTTPDispatcher {
	return &HTTPDispatcher{
		client:       &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		serviceToken: cfg.ServiceToken,
		maxRetries:   cfg.MaxRetries,
	}
}

func (d *HTTPDispatcher) Enqueue(ctx context.Context, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode job for topic %q: %w", topic, err)
	}
	url := fmt.Sprintf("%s/%s", d.baseURL, topic)

	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if d.serviceToken != "" {
			req.Header.Set("Authorization", "Bearer "+d.serviceToken)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("enqueue to %q: %w", topic, err))
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("enqueue to %q: status %d", topic, resp.StatusCode))
		default:
			return fmt.Errorf("enqueue to %q: status %d", topic, resp.StatusCode)
		}
	})
}
