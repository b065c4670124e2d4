// Package httputil provides HTTP client and response helpers shared by services.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrBodyTooLarge is returned by ReadAllStrict when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("response body too large")

// =============================================================================
// Outbound Client
// =============================================================================

// Client performs bounded GET requests against external JSON APIs.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBody    int64
	retry      RetryPolicy
	breaker    *Breaker
}

// ClientConfig configures Client.
type ClientConfig struct {
	Timeout   time.Duration
	UserAgent string
	MaxBody   int64
	Retry     RetryPolicy
	// Breaker is optional; share one per upstream host.
	Breaker *Breaker
}

// NewClient creates a client with sane defaults for zero fields.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBody
	if maxBody == 0 {
		maxBody = 1 << 20
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "greeno-layer/1.0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBody:    maxBody,
		retry:      cfg.Retry,
		breaker:    cfg.Breaker,
	}
}

// GetRaw fetches url and returns the response body.
// Non-2xx responses are returned as *StatusError. Transport errors, 429 and
// 5xx responses are retried per the client's RetryPolicy.
func (c *Client) GetRaw(ctx context.Context, url string) ([]byte, error) {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return nil, err
		}
	}

	var (
		body []byte
		err  error
	)
retry:
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				body, err = nil, ctx.Err()
				break retry
			case <-time.After(c.retry.backoff(attempt)):
			}
		}
		body, err = c.get(ctx, url)
		if attempt >= c.retry.MaxRetries || !transient(ctx, err) {
			break
		}
	}

	if c.breaker != nil {
		switch {
		case err == nil:
			c.breaker.Success()
		case transient(ctx, err):
			c.breaker.Failure()
		default:
			c.breaker.settle()
		}
	}
	return body, err
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, truncated, readErr := ReadAllWithLimit(resp.Body, 64<<10)
		if readErr != nil {
			return nil, fmt.Errorf("read error response body: %w", readErr)
		}
		msg := strings.TrimSpace(string(body))
		if truncated {
			msg += "...(truncated)"
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	body, err := ReadAllStrict(resp.Body, c.maxBody)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

// StatusError reports a non-success HTTP status from an upstream API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// =============================================================================
// Body Helpers
// =============================================================================

// ReadAllWithLimit reads at most limit bytes and reports whether more remained.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

// ReadAllStrict reads the body and fails with ErrBodyTooLarge above limit.
func ReadAllStrict(r io.Reader, limit int64) ([]byte, error) {
	body, truncated, err := ReadAllWithLimit(r, limit)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}
