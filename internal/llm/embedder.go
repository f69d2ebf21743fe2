package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Embedder calls an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	policy     RetryPolicy
	sleep      SleepFunc
	logger     *slog.Logger
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithEmbedderHTTPClient sets a custom HTTP client.
func WithEmbedderHTTPClient(hc *http.Client) EmbedderOption {
	return func(e *Embedder) {
		e.httpClient = hc
	}
}

// WithEmbedderRetryPolicy sets the retry policy.
func WithEmbedderRetryPolicy(p RetryPolicy) EmbedderOption {
	return func(e *Embedder) {
		e.policy = p
	}
}

// WithEmbedderSleep replaces the backoff wait.
func WithEmbedderSleep(fn SleepFunc) EmbedderOption {
	return func(e *Embedder) {
		e.sleep = fn
	}
}

// WithEmbedderLogger sets the logger.
func WithEmbedderLogger(logger *slog.Logger) EmbedderOption {
	return func(e *Embedder) {
		e.logger = logger
	}
}

// NewEmbedder creates an embeddings client. An empty baseURL means the
// public OpenAI API.
func NewEmbedder(baseURL, apiKey, model string, opts ...EmbedderOption) *Embedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	e := &Embedder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy:     DefaultRetryPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return Do(ctx, e.policy, e.sleep, nil, func(ctx context.Context) ([][]float32, error) {
		return e.doRequest(ctx, texts)
	})
}

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("marshal embeddings request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Kind: KindCanceled, Err: ctx.Err()}
		}
		return nil, NewTransientError(fmt.Errorf("embeddings request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("failed to read embeddings response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(resp.StatusCode, respBody)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewFatalError(fmt.Errorf("parse embeddings response: %w", err))
	}
	if len(parsed.Data) != len(texts) {
		return nil, NewFatalError(fmt.Errorf("embeddings response has %d vectors for %d inputs", len(parsed.Data), len(texts)))
	}

	vecs := make([][]float32, len(texts))
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= len(vecs) {
			idx = i
		}
		vecs[idx] = d.Embedding
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, NewFatalError(fmt.Errorf("embeddings response missing vector %d", i))
		}
	}
	return vecs, nil
}
