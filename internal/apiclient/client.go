// Package apiclient is the HTTP client for the MarketSauce backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000"

	probeTimeout = 3 * time.Second

	maxErrorBody = 64 << 10
	maxBlobBody  = 32 << 20
)

// Client calls the backend. Use one per process.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New builds a Client for baseURL. Requests are traced through otelhttp.
// Timeouts are applied per call, so the http.Client has none.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// CheckAvailable probes GET /health. It never returns an error: any
// transport failure, non-2xx status or timeout reports false.
func (c *Client) CheckAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// DoJSON sends in as JSON (when non-nil) and decodes a 2xx body into out.
// timeout bounds the whole call including reading the body.
func (c *Client) DoJSON(ctx context.Context, op, method, path string, timeout time.Duration, in, out any) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.do(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, readDetail(resp.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return classifyTransport(ctx, op, err)
		}
		return &Error{Kind: KindMalformed, Op: op, Err: err}
	}
	return nil
}

// Blob is a downloaded file.
type Blob struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Download posts in as JSON and returns the binary response body along
// with the filename from Content-Disposition, if any.
func (c *Client) Download(ctx context.Context, op, path string, timeout time.Duration, in any) (Blob, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.do(ctx, op, http.MethodPost, path, in)
	if err != nil {
		return Blob{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Blob{}, statusError(op, resp.StatusCode, readDetail(resp.Body))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobBody))
	if err != nil {
		return Blob{}, classifyTransport(ctx, op, err)
	}
	if len(data) == 0 {
		return Blob{}, &Error{Kind: KindMalformed, Op: op, Detail: "empty body"}
	}
	return Blob{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		FileName:    attachmentName(resp.Header.Get("Content-Disposition")),
	}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, op, err)
	}
	return resp, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// readDetail pulls a message out of the backend error envelope, which
// carries both {"error":{"message"}} and a top-level "detail".
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var envelope struct {
		Detail string          `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if envelope.Detail != "" {
		return envelope.Detail
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	var flat string
	if err := json.Unmarshal(envelope.Error, &flat); err == nil {
		return flat
	}
	return ""
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
