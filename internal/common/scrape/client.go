// internal/common/scrape/client.go

// Package scrape fetches page content through the hosted scraping
// providers: Firecrawl first, falling back to the Jina reader endpoint
// when Firecrawl is not configured or fails.
package scrape

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

// MaxContentLength caps scraped text so downstream prompts stay bounded.
const MaxContentLength = 5000

var (
	// ErrNoProvider means neither Firecrawl nor Jina is configured.
	ErrNoProvider = errors.New("scrape: no provider configured")
	// ErrScrapeFailed wraps provider-level failures.
	ErrScrapeFailed = errors.New("scrape: request failed")
)

// Client scrapes web pages via hosted providers.
type Client struct {
	firecrawlURL string
	firecrawlKey string
	jinaURL      string
	jinaKey      string
	http         *httpclient.Client
}

// Option configures the Client.
type Option func(*Client)

// WithFirecrawl configures the Firecrawl provider.
func WithFirecrawl(baseURL, apiKey string) Option {
	return func(c *Client) {
		c.firecrawlURL = strings.TrimRight(baseURL, "/")
		c.firecrawlKey = apiKey
	}
}

// WithJina configures the Jina reader provider.
func WithJina(baseURL, apiKey string) Option {
	return func(c *Client) {
		c.jinaURL = strings.TrimRight(baseURL, "/")
		c.jinaKey = apiKey
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient constructs a Client. At least one provider option should be set.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: httpclient.NewClient(60 * time.Second),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Scrape fetches the page at url and returns cleaned plain text, truncated
// to MaxContentLength. Firecrawl is preferred; Jina is the fallback.
func (c *Client) Scrape(ctx context.Context, url string) (string, error) {
	var lastErr error

	if c.firecrawlKey != "" {
		text, err := c.scrapeFirecrawl(ctx, url)
		if err == nil {
			return CleanText(text), nil
		}
		lastErr = err
	}

	if c.jinaKey != "" || c.jinaURL != "" {
		text, err := c.scrapeJina(ctx, url)
		if err == nil {
			return CleanText(text), nil
		}
		lastErr = err
	}

	if lastErr == nil {
		return "", ErrNoProvider
	}
	return "", fmt.Errorf("%w: %v", ErrScrapeFailed, lastErr)
}

func (c *Client) scrapeFirecrawl(ctx context.Context, url string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"url":     url,
		"formats": []string{"markdown"},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.firecrawlURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.firecrawlKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.DoWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("firecrawl status %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("firecrawl decode: %w", err)
	}
	if !out.Success {
		return "", errors.New("firecrawl reported failure")
	}

	return out.Data.Markdown, nil
}

func (c *Client) scrapeJina(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jinaURL+"/"+url, nil)
	if err != nil {
		return "", err
	}
	if c.jinaKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.jinaKey)
	}

	resp, err := c.http.DoWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jina status %d", resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
