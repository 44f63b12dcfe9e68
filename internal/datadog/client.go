// Package datadog implements a minimal client for the Datadog Logs v1
// search API, scoped to the single list-logs call this tool needs.
package datadog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// listPath is the Logs v1 search endpoint.
	listPath = "/api/v1/logs-queries/list"

	// defaultTimeout bounds each request so a hung call can't stall the
	// follow loop forever.
	defaultTimeout = 30 * time.Second

	// maxErrorBody limits how much of an error response is kept for the
	// error message.
	maxErrorBody = 4 << 10
)

// Client talks to the Datadog Logs API for a single site.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	appKey     string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests to point the
// client at a local server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// NewClient creates a client authenticated with the given keys and scoped
// to the given regional site (e.g. "datadoghq.com", "datadoghq.eu").
func NewClient(apiKey, appKey, site string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    "https://api." + site,
		apiKey:     apiKey,
		appKey:     appKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the Datadog API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("datadog API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("datadog API error: status %d: %s", e.StatusCode, e.Body)
}

// ListLogs issues a single search request and returns the matching logs in
// the order the API returned them.
func (c *Client) ListLogs(ctx context.Context, req ListRequest) ([]Log, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+listPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("DD-API-KEY", c.apiKey)
	httpReq.Header.Set("DD-APPLICATION-KEY", c.appKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return out.Logs, nil
}
