// Package serper provides a single-attempt HTTP client for the Serper search
// API. Retries and query filtering live in internal/search.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// DefaultEndpoint is the public Serper search endpoint.
const DefaultEndpoint = "https://google.serper.dev/search"

// ErrEmptyBody is returned for a 2xx response without a body.
var ErrEmptyBody = errors.New("empty response body")

// ClientOption configures the client.
type ClientOption func(*Client)

// WithEndpoint sets a custom search endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is an HTTP client for the Serper API.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new Serper API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Search issues one search request. A non-2xx response is returned as a
// *domain.StatusError together with the HTTP status.
func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, domain.NewStatusError(resp.StatusCode, c.endpoint, respBody)
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, resp.StatusCode, ErrEmptyBody
	}

	result := SearchResponse{RawBody: respBody}
	if err := json.Unmarshal(respBody, &result); err != nil {
		// A body that is not an object still renders as the raw fallback.
		result = SearchResponse{RawBody: respBody}
	}
	return &result, resp.StatusCode, nil
}
