package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/usestring/privacyshield/pkg/shield"
)

// DefaultMaxBodyBytes caps how much of a provider response is read.
const DefaultMaxBodyBytes = 4 << 20

// DefaultUserAgent is sent when no other user agent is configured. It is
// deliberately generic so it does not single out shielded traffic.
const DefaultUserAgent = "Mozilla/5.0"

// Client is an HTTP transport for provider lookups. It implements
// shield.Transport.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent header for requests that carry none.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxBodyBytes caps the number of response bytes read per request.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// New creates a new provider transport.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:   http.DefaultClient,
		userAgent:    DefaultUserAgent,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ shield.Transport = (*Client)(nil)

// Fetch performs one provider call. A non-2xx status is reported through
// Response.OK, not as an error; errors mean the call did not complete.
func (c *Client) Fetch(ctx context.Context, r *shield.Request) (*shield.Response, error) {
	start := time.Now()

	method := r.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("HTTP request failed",
			slog.String("method", method),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		slog.Debug("HTTP request returned error",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
			slog.String("message", errorMessage(body)),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	} else {
		slog.Debug("HTTP request completed",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}

	return &shield.Response{
		OK:         ok,
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// errorResponse is the JSON structure providers use for errors.
type errorResponse struct {
	Error string `json:"error"`
}

// errorMessage extracts a provider error message, falling back to the raw
// body truncated for logging.
func errorMessage(body []byte) string {
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return errResp.Error
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
