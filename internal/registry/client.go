// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public Modrinth API endpoint.
	DefaultBaseURL = "https://api.modrinth.com/v2"

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	// Prevents unbounded memory consumption from malicious or malformed responses.
	maxJSONResponseBytes = 10 << 20
)

type (
	// RateLimitError is returned when the Modrinth API rate limit is exhausted.
	RateLimitError struct {
		Remaining int
		ResetAt   time.Time
	}

	// Client queries the Modrinth API for hash resolution, project metadata,
	// and version listings.
	Client struct {
		httpClient *http.Client
		baseURL    string // API base URL (default: DefaultBaseURL, overridable for tests)
		userAgent  string // User-Agent header value; Modrinth requires one
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Modrinth API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04:05 UTC"))
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(r *Client) {
		r.httpClient = c
	}
}

// WithBaseURL overrides the API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(r *Client) {
		r.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(r *Client) {
		r.userAgent = ua
	}
}

// NewClient creates a Client with sensible defaults.
// Defaults: baseURL=DefaultBaseURL, httpClient=http.DefaultClient.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "mrpack-updater/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest creates and executes an HTTP request with common API headers.
// The body may be nil for GET requests.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body requestBody) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body.reader())
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body.contentType != "" {
		req.Header.Set("Content-Type", body.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// checkRateLimit inspects the X-Ratelimit-* response headers and returns a
// RateLimitError when the remaining quota is zero. Only the header values are
// examined, not the HTTP status code.
func checkRateLimit(resp *http.Response) error {
	remainingStr := resp.Header.Get("X-Ratelimit-Remaining")
	if remainingStr == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainingStr)
	if err != nil || remaining > 0 {
		return nil
	}

	resetAt := time.Now()
	if resetStr := resp.Header.Get("X-Ratelimit-Reset"); resetStr != "" {
		if seconds, convErr := strconv.Atoi(resetStr); convErr == nil {
			resetAt = resetAt.Add(time.Duration(seconds) * time.Second)
		}
	}

	return &RateLimitError{Remaining: remaining, ResetAt: resetAt}
}
