// Package websearch adapts DuckDuckGo text and news search and fetches
// competitor pages as readable markdown.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/llm"
)

// maxPageSize limits search response bodies.
const maxPageSize = 5 * 1024 * 1024 // 5MB

// DefaultUserAgents are rotated across attempts.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
}

var vqdRe = regexp.MustCompile(`vqd=["']?([\d-]+)`)

// Result is one search hit.
type Result struct {
	Title  string    `json:"title"`
	URL    string    `json:"url"`
	Body   string    `json:"body"`
	Source string    `json:"source,omitempty"`
	Date   time.Time `json:"date,omitempty"`
}

// DuckDuckGo searches the DuckDuckGo HTML and news endpoints.
type DuckDuckGo struct {
	htmlURL    string
	apiURL     string
	client     *http.Client
	userAgents []string
	policy     llm.RetryPolicy
	sleep      llm.SleepFunc
	logger     *slog.Logger
	next       atomic.Uint64
}

// Option configures a DuckDuckGo searcher.
type Option func(*DuckDuckGo)

// WithEndpoints overrides the HTML search and API base URLs.
func WithEndpoints(htmlURL, apiURL string) Option {
	return func(d *DuckDuckGo) {
		d.htmlURL = htmlURL
		d.apiURL = strings.TrimSuffix(apiURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *DuckDuckGo) {
		d.client = c
	}
}

// WithUserAgents sets the user agents rotated across requests.
func WithUserAgents(uas []string) Option {
	return func(d *DuckDuckGo) {
		if len(uas) > 0 {
			d.userAgents = uas
		}
	}
}

// WithRetry sets the attempt count and the fixed delay between attempts.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(d *DuckDuckGo) {
		d.policy.MaxAttempts = maxAttempts
		d.policy.Base = delay
	}
}

// WithSleep replaces the retry wait.
func WithSleep(fn llm.SleepFunc) Option {
	return func(d *DuckDuckGo) {
		d.sleep = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *DuckDuckGo) {
		d.logger = logger
	}
}

// NewDuckDuckGo creates a searcher with 15s timeout and 3 attempts 5s apart.
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	d := &DuckDuckGo{
		htmlURL:    "https://html.duckduckgo.com/html/",
		apiURL:     "https://duckduckgo.com",
		client:     &http.Client{Timeout: 15 * time.Second},
		userAgents: DefaultUserAgents,
		policy: llm.RetryPolicy{
			MaxAttempts: 3,
			Base:        5 * time.Second,
			Multiplier:  1,
			Retryable:   llm.IsTransient,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Text returns up to max web results for query.
func (d *DuckDuckGo) Text(ctx context.Context, query string, max int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	u := d.htmlURL + "?" + url.Values{"q": {query}, "kl": {"wt-wt"}}.Encode()

	results, err := llm.Do(ctx, d.policy, d.sleep, d.onRetry(query), func(ctx context.Context) ([]Result, error) {
		body, err := d.get(ctx, u)
		if err != nil {
			return nil, err
		}
		return parseTextResults(body)
	})
	if err != nil {
		return nil, fmt.Errorf("duckduckgo text search %q: %w", query, err)
	}
	if max > 0 && len(results) > max {
		results = results[:max]
	}
	return results, nil
}

type newsResponse struct {
	Results []struct {
		Date    int64  `json:"date"`
		Title   string `json:"title"`
		Excerpt string `json:"excerpt"`
		URL     string `json:"url"`
		Source  string `json:"source"`
	} `json:"results"`
}

// News returns up to max news articles for query from the last month.
func (d *DuckDuckGo) News(ctx context.Context, query string, max int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	results, err := llm.Do(ctx, d.policy, d.sleep, d.onRetry(query), func(ctx context.Context) ([]Result, error) {
		vqd, err := d.vqd(ctx, query)
		if err != nil {
			return nil, err
		}

		params := url.Values{
			"l":     {"wt-wt"},
			"o":     {"json"},
			"noamp": {"1"},
			"q":     {query},
			"vqd":   {vqd},
			"p":     {"-2"}, // safe search off
			"df":    {"m"},  // last month
		}
		body, err := d.get(ctx, d.apiURL+"/news.js?"+params.Encode())
		if err != nil {
			return nil, err
		}

		var resp newsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, llm.NewFatalError(fmt.Errorf("parse news response: %w", err))
		}

		out := make([]Result, 0, len(resp.Results))
		for _, r := range resp.Results {
			res := Result{
				Title:  textOf(r.Title),
				URL:    r.URL,
				Body:   textOf(r.Excerpt),
				Source: r.Source,
			}
			if r.Date > 0 {
				res.Date = time.Unix(r.Date, 0).UTC()
			}
			out = append(out, res)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("duckduckgo news search %q: %w", query, err)
	}
	if max > 0 && len(results) > max {
		results = results[:max]
	}
	return results, nil
}

// vqd fetches the search token the news endpoint requires.
func (d *DuckDuckGo) vqd(ctx context.Context, query string) (string, error) {
	body, err := d.get(ctx, d.apiURL+"/?"+url.Values{"q": {query}}.Encode())
	if err != nil {
		return "", err
	}
	m := vqdRe.FindSubmatch(body)
	if m == nil {
		return "", llm.NewTransientError(fmt.Errorf("no vqd token for %q", query))
	}
	return string(m[1]), nil
}

func (d *DuckDuckGo) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, llm.NewFatalError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", d.userAgent())
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", "https://duckduckgo.com/")

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &llm.Error{Kind: llm.KindCanceled, Err: ctx.Err()}
		}
		return nil, llm.NewTransientError(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, llm.NewTransientError(fmt.Errorf("read body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusAccepted, // served instead of results when rate limited
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode >= 500:
		return nil, llm.NewTransientError(fmt.Errorf("rate limited or unavailable (status %d)", resp.StatusCode))
	default:
		return nil, llm.NewFatalError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}

func (d *DuckDuckGo) userAgent() string {
	n := d.next.Add(1) - 1
	return d.userAgents[n%uint64(len(d.userAgents))]
}

func (d *DuckDuckGo) onRetry(query string) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		d.logger.Warn("search failed, retrying",
			"query", query,
			"attempt", attempt,
			"max_attempts", d.policy.MaxAttempts,
			"delay", delay,
			"error", err)
	}
}
