package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/circuit/internal/schedule"
)

// Client sends plan documents to the circuit server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	// backoff returns the wait before retry attempt n (n >= 1).
	backoff func(n int) time.Duration
}

// NewClient creates a new HTTP client for the circuit server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: func(n int) time.Duration { return time.Duration(1<<uint(n-1)) * time.Second },
	}
}

// StatusError is a non-200 answer from the plan endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("plan upload failed (status %d): %s", e.StatusCode, e.Body)
}

// retryable reports whether another attempt could succeed. Client errors
// (bad key, invalid plan) will not.
func (e *StatusError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// SendPlan POSTs a plan document to the server's plan endpoint.
// Retries up to 3 times with exponential backoff on transport and server errors.
func (c *Client) SendPlan(ctx context.Context, source string, plan []byte) (*schedule.ImportResult, error) {
	endpoint := c.serverURL + "/api/v1/plan?" + url.Values{"source": {source}}.Encode()

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, err := c.post(ctx, endpoint, plan)
		if err == nil {
			return res, nil
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (c *Client) post(ctx context.Context, endpoint string, plan []byte) (*schedule.ImportResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(plan))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var res schedule.ImportResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decoding upload result: %w", err)
	}
	return &res, nil
}
