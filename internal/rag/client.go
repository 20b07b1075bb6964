// Package rag forwards requests to the CoDRAG HTTP API.
package rag

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

	"github.com/codrag/codrag-mcp/internal/common"
)

// maxResponseSize caps the response body to prevent OOM from unexpectedly large responses.
const maxResponseSize = 50 << 20 // 50MB

// Request is one call against the backend. Body is JSON-encoded when non-nil.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Response is a completed backend call with a 2xx status.
type Response struct {
	Status int
	Text   string
	Body   ParsedBody
}

// Client connects tool calls to the CoDRAG REST API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *common.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for baseURL. baseURL must already be normalized
// (no trailing slash); timeout bounds every request made by the client.
func NewClient(baseURL string, timeout time.Duration, logger *common.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// CloseIdleConnections releases pooled keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Get performs a GET request to the given path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post performs a POST request with a JSON body to the given path.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Do performs a single request. The timeout context is released on every
// return path, so no timer outlives the call.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported method %q", r.Method)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return nil, fmt.Errorf("invalid path %q: must begin with /", r.Path)
	}
	target := c.baseURL + r.Path

	var bodyReader io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, &RequestError{Method: method, URL: target, Message: err.Error(), Err: err}
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("path", r.Path).Msg("proxy request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		reqErr := c.transportError(ctx, method, target, err)
		c.logger.Error().Str("method", method).Str("path", r.Path).Int64("duration_ms", duration.Milliseconds()).Str("error", reqErr.Message).Msg("proxy request failed")
		return nil, reqErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		reqErr := c.transportError(ctx, method, target, err)
		c.logger.Error().Str("method", method).Str("path", r.Path).Str("error", reqErr.Message).Msg("proxy response read failed")
		return nil, reqErr
	}

	c.logger.Debug().Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Msg("proxy response")

	parsed := ParseBody(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			Method:  method,
			URL:     target,
			Status:  resp.StatusCode,
			Message: remoteMessage(resp.StatusCode, parsed),
		}
	}

	return &Response{Status: resp.StatusCode, Text: string(raw), Body: parsed}, nil
}

// transportError classifies a failure that produced no usable response.
// Timeouts and cancellations are reported as aborts and keep the context
// error in the chain for errors.Is.
func (c *Client) transportError(ctx context.Context, method, target string, err error) *RequestError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &RequestError{
			Method:  method,
			URL:     target,
			Message: fmt.Sprintf("aborted: timed out after %dms", c.timeout.Milliseconds()),
			Err:     context.DeadlineExceeded,
		}
	case errors.Is(ctx.Err(), context.Canceled):
		return &RequestError{Method: method, URL: target, Message: "aborted", Err: context.Canceled}
	default:
		return &RequestError{Method: method, URL: target, Message: err.Error(), Err: err}
	}
}
