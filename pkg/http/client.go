package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ClientOption configures Client.
type ClientOption func(*Client)

// Client is a read-only HTTP client for market data endpoints. Bodies are read
// fully, capped at maxBody, and always closed.
type Client struct {
	timeout   time.Duration
	maxBody   int64
	userAgent string
	headers   map[string]string
	client    *http.Client
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// StatusError is returned by GetJSON for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %.200s", e.StatusCode, e.Body)
}

// NewClient creates a new HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout: 30 * time.Second,
		maxBody: 8 << 20,
		headers: map[string]string{"Accept": "application/json"},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{Timeout: c.timeout}
	return c
}

// Get fetches rawURL with query appended and returns the status and body.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// GetJSON fetches rawURL and decodes a 2xx JSON body into dest.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, dest interface{}) error {
	resp, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxBody caps the bytes read from a response body.
func WithMaxBody(n int64) ClientOption {
	return func(c *Client) {
		c.maxBody = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}
