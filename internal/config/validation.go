/*
Package config provides validation helpers for cofounder configuration.

Validation runs on every load path used by the CLI and before Save writes
anything to disk.
*/
package config

import (
	"errors"
	"strings"
)

// Providers lists the generation providers understood by the llm package.
var Providers = []string{"openai", "ollama", "gemini"}

// IsKnownProvider reports whether name is a supported generation provider.
func IsKnownProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

// Validate checks the configuration and joins every problem found.
func (c *Config) Validate() error {
	var errs []error

	if !IsKnownProvider(c.LLM.Provider) {
		errs = append(errs, &FieldError{
			Field:  "llm.provider",
			Reason: "must be one of " + strings.Join(Providers, ", "),
		})
	}
	if c.LLM.Model == "" {
		errs = append(errs, &FieldError{Field: "llm.model", Reason: "is required"})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, &FieldError{Field: "llm.temperature", Reason: "must be between 0 and 2"})
	}
	if c.LLM.Retry.MaxAttempts < 1 {
		errs = append(errs, &FieldError{Field: "llm.retry.max_attempts", Reason: "must be at least 1"})
	}
	if c.LLM.Retry.BackoffBase < 0 {
		errs = append(errs, &FieldError{Field: "llm.retry.backoff_base", Reason: "must not be negative"})
	}
	if c.Embedding.Enabled && c.Embedding.Model == "" {
		errs = append(errs, &FieldError{Field: "embedding.model", Reason: "is required when embeddings are enabled"})
	}
	if c.Retrieval.K < 1 {
		errs = append(errs, &FieldError{Field: "retrieval.k", Reason: "must be at least 1"})
	}
	if c.Retrieval.MaxTokens < 1 {
		errs = append(errs, &FieldError{Field: "retrieval.max_tokens", Reason: "must be at least 1"})
	}
	if c.Retrieval.SemanticWeight < 0 || c.Retrieval.KeywordWeight < 0 ||
		c.Retrieval.SemanticWeight+c.Retrieval.KeywordWeight == 0 {
		errs = append(errs, &FieldError{Field: "retrieval", Reason: "weights must be non-negative and not both zero"})
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, &FieldError{Field: "storage.data_dir", Reason: "is required"})
	}
	if c.News.MaxArticles < 0 {
		errs = append(errs, &FieldError{Field: "news.max_articles", Reason: "must not be negative"})
	}
	if c.News.SentimentWorkers < 1 {
		errs = append(errs, &FieldError{Field: "news.sentiment_workers", Reason: "must be at least 1"})
	}
	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		errs = append(errs, &FieldError{Field: "events.subject", Reason: "is required when nats_url is set"})
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, &FieldError{Field: "logging.format", Reason: "must be text or json"})
	}

	return errors.Join(errs...)
}
