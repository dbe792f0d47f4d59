// Package client provides a typed Go SDK for the navgraph REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the navgraph API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the given base URL (e.g. "http://localhost:3040").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Health returns the liveness check response.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/api/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FindPath queries the shortest path between two parcels. An empty mode
// means real. A disconnected pair is a result with status unreachable, not
// an error; unknown parcels fail with an APIError for which IsInvalidNode is true.
func (c *Client) FindPath(ctx context.Context, from, to, mode string) (*PathResult, error) {
	path := fmt.Sprintf("/api/v1/navigation/path/%s/%s", url.PathEscape(from), url.PathEscape(to))
	var resp PathResult
	if err := c.get(ctx, path, modeParams(mode), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Diagnostics returns the connectivity report for mode.
func (c *Client) Diagnostics(ctx context.Context, mode string) (*Diagnostics, error) {
	var resp Diagnostics
	if err := c.get(ctx, "/api/v1/navigation/diagnostics", modeParams(mode), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Preload asks the server to rebuild its graph from the store.
func (c *Client) Preload(ctx context.Context) (*PreloadResult, error) {
	var resp PreloadResult
	if err := c.post(ctx, "/api/v1/navigation/preload", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Graph returns the export of the server's current snapshot.
func (c *Client) Graph(ctx context.Context) (*GraphExport, error) {
	var resp GraphExport
	if err := c.get(ctx, "/api/v1/navigation/graph", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func modeParams(mode string) url.Values {
	if mode == "" {
		return nil
	}
	return url.Values{"mode": {mode}}
}

// do executes an HTTP request and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	u := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// get is a convenience wrapper for GET requests with query parameters.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post is a convenience wrapper for POST requests.
func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}
