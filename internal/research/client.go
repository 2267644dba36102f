package research

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"marketsauce-agent/internal/shared/metrics"
	"marketsauce-agent/internal/shared/telemetry"
)

const (
	DefaultBaseURL = "https://api.firecrawl.dev/v1"
	requestTimeout = 60 * time.Second
	maxBodyBytes   = 8 << 20
)

// ErrUpstream is returned when the scrape API answers with a non-2xx status.
var ErrUpstream = errors.New("research upstream error")

// Page is a scraped web page.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown"`
}

// Result is one web search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Markdown    string `json:"markdown,omitempty"`
}

// Options configures a Client. Zero values use defaults.
type Options struct {
	APIKey  string
	BaseURL string
	// RPS caps outbound calls per second; <= 0 means 2.
	RPS float64
	// Transport overrides the base round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client talks to a Firecrawl-compatible scrape and search API.
type Client struct {
	baseURL string
	keyed   bool
	api     *http.Client
	plain   *http.Client
	limiter *rate.Limiter
}

// NewClient builds a Client. Without an API key, Scrape fetches pages
// directly and Search returns no results.
func NewClient(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	traced := otelhttp.NewTransport(base)

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 2
	}

	c := &Client{
		baseURL: baseURL,
		keyed:   strings.TrimSpace(opts.APIKey) != "",
		plain:   &http.Client{Timeout: requestTimeout, Transport: traced},
		limiter: rate.NewLimiter(rate.Limit(rps), 2),
	}
	if c.keyed {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(opts.APIKey), TokenType: "Bearer"})
		c.api = &http.Client{
			Timeout:   requestTimeout,
			Transport: &oauth2.Transport{Source: src, Base: traced},
		}
	}
	return c
}

// Keyed reports whether an API key is configured.
func (c *Client) Keyed() bool {
	return c != nil && c.keyed
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title     string `json:"title"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
	Markdown string `json:"markdown"`
}

// Scrape returns the main content of url as markdown.
func (c *Client) Scrape(ctx context.Context, url string) (Page, error) {
	if !c.keyed {
		page, err := c.fetchPage(ctx, url)
		metrics.IncResearchRequest("fetch", err == nil)
		return page, err
	}

	var out scrapeResponse
	err := c.post(ctx, "/scrape", scrapeRequest{URL: url, Formats: []string{"markdown"}, OnlyMainContent: true}, &out)
	metrics.IncResearchRequest("scrape", err == nil)
	if err != nil {
		return Page{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	md := out.Data.Markdown
	if md == "" {
		md = out.Markdown
	}
	return Page{URL: url, Title: out.Data.Metadata.Title, Markdown: md}, nil
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Data    []Result `json:"data"`
	Results []Result `json:"results"`
}

// Search runs a web search and returns at most limit results.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if !c.keyed {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	var out searchResponse
	err := c.post(ctx, "/search", searchRequest{Query: query, Limit: limit}, &out)
	metrics.IncResearchRequest("search", err == nil)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	results := out.Data
	if len(results) == 0 {
		results = out.Results
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	telemetry.Info("research.request", map[string]any{
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: http status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
