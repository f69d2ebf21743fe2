/*
Package config handles loading, saving, and validating cofounder configuration.

Configuration is stored in ~/.cofounder/config.yaml (or the path given with
--config). Values are layered: built-in defaults, then the YAML file, then
environment variables.

Schema:

	server:
	  addr: ":8000"
	  request_timeout: 2m
	llm:
	  provider: openai        # openai | ollama | gemini
	  base_url: ""
	  model: gpt-4o-mini
	  temperature: 0.7
	  timeout: 3m
	  retry:
	    max_attempts: 3
	    backoff_base: 1s
	    max_backoff: 30s
	embedding:
	  enabled: true
	  base_url: ""
	  model: text-embedding-3-small
	retrieval:
	  k: 2
	  max_tokens: 3000
	  semantic_weight: 0.7
	  keyword_weight: 0.3
	storage:
	  data_dir: ~/.cofounder
	search:
	  max_results: 3
	  timeout: 15s
	  max_attempts: 3
	  retry_delay: 5s
	news:
	  max_articles: 10
	  sentiment_workers: 4
	events:
	  nats_url: ""
	  subject: cofounder.analysis.completed
	logging:
	  level: info
	  format: text
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultDirName is the per-user directory holding config and data.
	DefaultDirName = ".cofounder"
	// DefaultFileName is the config file name inside DefaultDirName.
	DefaultFileName = "config.yaml"
)

// Config represents the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Storage   StorageConfig   `yaml:"storage"`
	Search    SearchConfig    `yaml:"search"`
	News      NewsConfig      `yaml:"news"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (e.g., ":8000").
	Addr string `yaml:"addr"`

	// RequestTimeout bounds one analysis request end to end.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LLMConfig configures the text generation endpoint.
type LLMConfig struct {
	// Provider selects the wire format: "openai", "ollama" or "gemini".
	Provider string `yaml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey is usually supplied via OPENAI_API_KEY or GEMINI_API_KEY.
	APIKey string `yaml:"api_key,omitempty"`

	// Model is the model name sent to the provider.
	Model string `yaml:"model"`

	// Temperature controls randomness (0.0-2.0).
	Temperature float64 `yaml:"temperature"`

	// Timeout is the HTTP timeout for a single generation call.
	Timeout time.Duration `yaml:"timeout"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig configures the generation retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// EmbeddingConfig configures the OpenAI-compatible embeddings endpoint.
type EmbeddingConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model"`
}

// RetrievalConfig configures context retrieval.
type RetrievalConfig struct {
	// K is the number of prior records merged into a prompt.
	K int `yaml:"k"`

	// MaxTokens caps the retrieved context length.
	MaxTokens int `yaml:"max_tokens"`

	SemanticWeight float64 `yaml:"semantic_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
}

// StorageConfig configures where history is persisted.
type StorageConfig struct {
	// DataDir holds history.db and the keyword index.
	DataDir string `yaml:"data_dir"`
}

// SearchConfig configures the web search adapter.
type SearchConfig struct {
	MaxResults  int           `yaml:"max_results"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	UserAgents  []string      `yaml:"user_agents,omitempty"`
}

// NewsConfig configures the news overview analysis.
type NewsConfig struct {
	MaxArticles      int `yaml:"max_articles"`
	SentimentWorkers int `yaml:"sentiment_workers"`
}

// EventsConfig configures optional NATS publication of completed analyses.
type EventsConfig struct {
	// NATSURL enables publishing when non-empty.
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewConfig creates a configuration populated with defaults.
func NewConfig() *Config {
	dataDir := DefaultDirName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, DefaultDirName)
	}

	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: 2 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			Timeout:     3 * time.Minute,
			Retry: RetryConfig{
				MaxAttempts: 3,
				BackoffBase: time.Second,
				MaxBackoff:  30 * time.Second,
			},
		},
		Embedding: EmbeddingConfig{
			Enabled: true,
			Model:   "text-embedding-3-small",
		},
		Retrieval: RetrievalConfig{
			K:              2,
			MaxTokens:      3000,
			SemanticWeight: 0.7,
			KeywordWeight:  0.3,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Search: SearchConfig{
			MaxResults:  3,
			Timeout:     15 * time.Second,
			MaxAttempts: 3,
			RetryDelay:  5 * time.Second,
		},
		News: NewsConfig{
			MaxArticles:      10,
			SentimentWorkers: 4,
		},
		Events: EventsConfig{
			Subject: "cofounder.analysis.completed",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.cofounder/config.yaml
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName, DefaultFileName), nil
}

// DBPath returns the SQLite history database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "history.db")
}
