package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 10 * time.Second

	defaultUserAgent = "ls-skyline/1.0 (terminal sky scene)"
)

// httpConfig is the shared plumbing behind every HTTP client here.
type httpConfig struct {
	baseURL   string
	timeout   time.Duration
	client    *http.Client
	userAgent string
}

// ClientOption configures an HTTP client.
type ClientOption func(*httpConfig)

// WithBaseURL points a client at a different host, e.g. a test server.
func WithBaseURL(u string) ClientOption {
	return func(c *httpConfig) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *httpConfig) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *httpConfig) {
		c.client = client
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *httpConfig) {
		c.userAgent = ua
	}
}

func newHTTPConfig(defaultURL string, opts []ClientOption) httpConfig {
	c := httpConfig{
		baseURL:   defaultURL,
		timeout:   DefaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.client == nil {
		c.client = &http.Client{
			Timeout: c.timeout,
		}
	}
	return c
}

// getJSON performs a GET against baseURL+path and decodes the body into out.
func (c httpConfig) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body so the error says something useful.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("bad status: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
