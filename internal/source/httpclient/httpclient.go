// Package httpclient is a small JSON-over-HTTP client used by remote comment
// sources.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	maxRetries     = 3
	maxErrorBody   = 512
	defaultTimeout = 30 * time.Second
	defaultBackoff = time.Second
)

// Client issues GET requests against a base URL with optional Bearer auth
// and retries throttled or failing requests.
type Client struct {
	baseURL    string
	token      string
	backoff    time.Duration
	httpClient *http.Client
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Body       string // truncated to 512 bytes
	retryAfter string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithBackoff sets the first retry delay. Later retries double it.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// New returns a Client for baseURL. An empty token sends no Authorization
// header.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		backoff:    defaultBackoff,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON sends a GET request and decodes the JSON response into dest.
// Non-2xx responses return *APIError. 429 responses are retried after their
// Retry-After delay and 5xx responses with exponential backoff, up to three
// retries.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.delay(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		apiErr, err := c.get(ctx, fullURL, dest)
		if err != nil {
			return err
		}
		if apiErr == nil {
			return nil
		}
		if apiErr.StatusCode != http.StatusTooManyRequests && apiErr.StatusCode < 500 {
			return apiErr
		}
		lastErr = apiErr
	}
	return lastErr
}

// get performs one request. A non-nil *APIError means the server answered
// with a non-2xx status.
func (c *Client) get(ctx context.Context, fullURL string, dest any) (*APIError, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, dest); err != nil {
			return nil, fmt.Errorf("httpclient: decode %s: %w", req.URL.Path, err)
		}
		return nil, nil
	}

	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		retryAfter: resp.Header.Get("Retry-After"),
	}, nil
}

func (c *Client) delay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.backoff << (attempt - 1)
}
