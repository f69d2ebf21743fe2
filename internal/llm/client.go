// Package llm provides a provider-agnostic text-generation client with an
// explicit retry policy, plus an OpenAI-compatible embeddings adapter.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize limits the upstream response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Hooks observe client activity. Any field may be nil.
type Hooks struct {
	// OnRetry runs before the client waits for another attempt.
	OnRetry func(attempt int, delay time.Duration, err error)

	// OnDone runs once per Generate call with its total duration.
	OnDone func(d time.Duration, err error)
}

// Client is a provider-agnostic generation client.
//
// It is safe for concurrent use; one Client is shared by every request.
type Client struct {
	provider    Provider
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	policy      RetryPolicy
	sleep       SleepFunc
	hooks       Hooks
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the provider's default endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithAPIKey sets the credential sent by the provider adapter.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn SleepFunc) ClientOption {
	return func(c *Client) {
		c.sleep = fn
	}
}

// WithHooks sets observation callbacks.
func WithHooks(h Hooks) ClientOption {
	return func(c *Client) {
		c.hooks = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the named registered provider.
func NewClient(providerName, model string, opts ...ClientOption) (*Client, error) {
	p := GetProvider(providerName)
	if p == nil {
		return nil, fmt.Errorf("unknown provider %q (registered: %s)", providerName, strings.Join(ListProviders(), ", "))
	}
	return NewClientWithProvider(p, model, opts...), nil
}

// NewClientWithProvider creates a client around an explicit provider adapter.
func NewClientWithProvider(p Provider, model string, opts ...ClientOption) *Client {
	c := &Client{
		provider:    p,
		model:       model,
		temperature: 0.7,
		policy:      DefaultRetryPolicy(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // Allow time for LLM responses
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Provider returns the provider identifier.
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Generate sends prompt as a single user message and returns the generated
// text. Transient failures are retried per the client's policy; on any error
// the returned string is empty.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", NewFatalError(fmt.Errorf("prompt is empty"))
	}

	start := time.Now()
	messages := []Message{{Role: "user", Content: prompt}}

	text, err := Do(ctx, c.policy, c.sleep, c.onRetry, func(ctx context.Context) (string, error) {
		return c.doRequest(ctx, messages)
	})

	if c.hooks.OnDone != nil {
		c.hooks.OnDone(time.Since(start), err)
	}
	if err != nil {
		c.logger.Warn("Generation failed",
			"provider", c.provider.Name(),
			"model", c.model,
			"kind", KindOf(err).String(),
			"error", err)
		return "", err
	}
	return text, nil
}

func (c *Client) onRetry(attempt int, delay time.Duration, err error) {
	c.logger.Debug("Request failed, retrying",
		"attempt", attempt,
		"max_attempts", c.policy.MaxAttempts,
		"backoff", delay,
		"error", err)
	if c.hooks.OnRetry != nil {
		c.hooks.OnRetry(attempt, delay, err)
	}
}

// doRequest executes a single HTTP request to the provider endpoint.
func (c *Client) doRequest(ctx context.Context, messages []Message) (string, error) {
	url := c.provider.BuildURL(c.baseURL, c.model)

	body, err := c.provider.BuildRequestBody(c.model, messages, c.temperature)
	if err != nil {
		return "", NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(httpReq, c.apiKey)

	c.logger.Debug("Sending LLM request",
		"provider", c.provider.Name(),
		"model", c.model,
		"url", url)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", &Error{Kind: KindCanceled, Err: ctx.Err()}
		}
		// Network errors are transient
		return "", NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return "", NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", classifyHTTPError(httpResp.StatusCode, respBody)
	}

	text, err := c.provider.ParseResponse(respBody)
	if err != nil {
		return "", NewFatalError(fmt.Errorf("parse %s response: %w", c.provider.Name(), err))
	}
	return text, nil
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("LLM API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode == http.StatusRequestTimeout:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	default:
		// 400, 401, 403 and anything unexpected
		return NewFatalError(err)
	}
}
