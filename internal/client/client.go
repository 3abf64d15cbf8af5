// Package client talks to the circuit server over HTTP. HTTPClient is the
// player's persistence adapter and also backs remote MCP mode.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/circuit/internal/models"
	"github.com/claude/circuit/internal/schedule"
	"github.com/claude/circuit/internal/storage"
)

// RequestError is returned when a request fails in transport or answers
// with a non-2xx status.
type RequestError struct {
	Op         string
	StatusCode int
	// Message is the server's {"error": ...} text, or the raw body.
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// HTTPClient calls the circuit REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL. apiKey is
// sent as X-API-Key on the protected /api/v1 routes and may be empty.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadState fetches GET /api/state.
func (c *HTTPClient) LoadState(ctx context.Context) (*models.StatePayload, error) {
	var payload models.StatePayload
	if err := c.do(ctx, "load state", http.MethodGet, "/api/state", nil, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// CompleteWorkout posts to /api/complete and returns the updated state.
func (c *HTTPClient) CompleteWorkout(ctx context.Context, id, date string) (*models.StatePayload, error) {
	var payload models.StatePayload
	body := models.CompletionRequest{ID: id, Date: date}
	if err := c.do(ctx, "complete workout", http.MethodPost, "/api/complete", nil, body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ReplacePlan posts a generated plan to /api/v1/plan.
func (c *HTTPClient) ReplacePlan(ctx context.Context, source string, doc models.PlanDocument) (*schedule.ImportResult, error) {
	params := url.Values{}
	if source != "" {
		params.Set("source", source)
	}
	var res schedule.ImportResult
	if err := c.do(ctx, "replace plan", http.MethodPost, "/api/v1/plan", params, doc, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Completed fetches the completed history, newest first.
func (c *HTTPClient) Completed(ctx context.Context) ([]models.CompletedEntry, error) {
	var entries []models.CompletedEntry
	if err := c.do(ctx, "list completed", http.MethodGet, "/api/v1/completed", nil, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CompletedEntry fetches one completed entry.
func (c *HTTPClient) CompletedEntry(ctx context.Context, id string) (*models.CompletedEntry, error) {
	var e models.CompletedEntry
	if err := c.do(ctx, "get completed", http.MethodGet, "/api/v1/completed/"+url.PathEscape(id), nil, nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ImportLogs fetches recent plan imports.
func (c *HTTPClient) ImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var logs []storage.ImportLog
	if err := c.do(ctx, "list imports", http.MethodGet, "/api/v1/imports", params, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, params url.Values, in, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &RequestError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// errorMessage extracts the server's {"error": ...} text, falling back to the body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
