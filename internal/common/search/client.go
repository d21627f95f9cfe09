// internal/common/search/client.go

// Package search provides a minimal client for the Serper.dev hosted
// web-search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"research-crew/internal/common/httpclient"
)

const (
	defaultBaseURL = "https://google.serper.dev"
	defaultNum     = 5
)

var (
	// ErrUnauthorized indicates a 401/403 response.
	ErrUnauthorized = errors.New("search: unauthorized (check API key)")
	// ErrRateLimited indicates the provider kept returning 429 after retries.
	ErrRateLimited = errors.New("search: rate limited")
)

// Client is a minimal HTTP client for the Serper search API.
type Client struct {
	apiKey  string
	baseURL string
	http    *httpclient.Client
	num     int
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (useful for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMaxResults sets the default result count per query.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.num = n
		}
	}
}

// NewClient constructs a Client with sane defaults.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    httpclient.NewClient(30 * time.Second),
		num:     defaultNum,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Request models the request body for /search.
type Request struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
	TBS string `json:"tbs,omitempty"` // time filter, e.g. "qdr:m6" for past 6 months
}

// Result is one organic search hit.
type Result struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

// Response models the /search response body.
type Response struct {
	Organic []Result `json:"organic"`
}

// Search runs a single query and returns the organic results.
func (c *Client) Search(ctx context.Context, req Request) ([]Result, error) {
	if req.Num == 0 {
		req.Num = c.num
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-API-KEY", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.DoWithRetry(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search: unexpected status %d: %s", resp.StatusCode, string(b))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	return out.Organic, nil
}
