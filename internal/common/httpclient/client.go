// internal/common/httpclient/client.go
package httpclient

import (
	"context"
	"io"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// retryable responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 250 * time.Millisecond

const defaultMaxRetries = 3

// Client is a shared HTTP client with bounded retry on 429 and 5xx.
type Client struct {
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: defaultMaxRetries,
	}
}

// WithMaxRetries overrides the retry budget. Zero disables retries.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// Do executes the request once without retrying.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoWithRetry executes an HTTP request and retries on 429 and 5xx with
// exponential backoff. The request body must be rewindable (GetBody set or
// nil body); http.NewRequestWithContext arranges that for common body types.
// On each retryable response the body is drained and closed before sleeping.
// If the context is cancelled during a backoff wait the context error is
// returned. After exhausting retries the last response is returned as-is so
// the caller can inspect it.
func (c *Client) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= c.maxRetries {
				return nil, err
			}
		} else {
			if !isRetryableStatus(resp.StatusCode) || attempt >= c.maxRetries {
				return resp, nil
			}
			// Drain and close the body before retrying.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := RetryBaseDelay * time.Duration(1<<attempt)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
