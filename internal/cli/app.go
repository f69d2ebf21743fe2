/*
Package cli implements the command-line interface for cofounder.

Each command is implemented as a separate function that returns a *cobra.Command,
allowing for clean separation and easy testing. Commands share GlobalOptions
(config path, log level) and build their dependencies through NewApp.
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/config"
	"github.com/khanglvm/cofounder-hub/internal/events"
	"github.com/khanglvm/cofounder-hub/internal/llm"
	_ "github.com/khanglvm/cofounder-hub/internal/llm/providers"
	"github.com/khanglvm/cofounder-hub/internal/metrics"
	"github.com/khanglvm/cofounder-hub/internal/search"
	"github.com/khanglvm/cofounder-hub/internal/server"
	"github.com/khanglvm/cofounder-hub/internal/storage"
	"github.com/khanglvm/cofounder-hub/internal/websearch"
)

// signalRetention is how long raw search results are kept.
const signalRetention = 30 * 24 * time.Hour

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
}

// loadConfig loads and validates the configuration.
func (g *GlobalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, &config.InvalidConfigError{
			Path:    g.ConfigPath,
			Message: err.Error(),
			Hint:    "Run 'cofounder verify' for details",
		}
	}
	return cfg, nil
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// App holds the wired dependencies of one process.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *storage.SQLiteStorage
	Index     *search.Indexer
	Retriever *search.Retriever
	Generator *llm.Client
	Searcher  *websearch.DuckDuckGo
	Fetcher   *websearch.Fetcher
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Service   *analysis.Service
}

// NewApp wires every component from cfg. The history store and the event
// publisher degrade instead of failing: a store that cannot be opened
// disables history, and an unreachable NATS server disables events.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		Publisher: events.Nop{},
	}

	a.Store = storage.NewStorage(cfg.DBPath(), logger)
	if err := a.Store.Init(); err != nil {
		logger.Warn("history disabled", "path", cfg.DBPath(), "error", err)
	} else if err := a.Store.Cleanup(ctx, signalRetention); err != nil {
		logger.Warn("failed to prune old search results", "error", err)
	}

	index, err := search.NewIndexer()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	a.Index = index
	if a.Store.Enabled() {
		n, err := index.Rebuild(ctx, a.Store, analysis.Collections)
		if err != nil {
			logger.Warn("failed to rebuild keyword index", "error", err)
		} else {
			logger.Debug("keyword index rebuilt", "records", n)
		}
	}

	retrieverOpts := []search.RetrieverOption{
		search.WithLogger(logger),
		search.WithFusion(search.FusionConfig{
			SemanticWeight: cfg.Retrieval.SemanticWeight,
			KeywordWeight:  cfg.Retrieval.KeywordWeight,
		}),
	}
	if cfg.Embedding.Enabled {
		embedder := llm.NewEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model,
			llm.WithEmbedderLogger(logger))
		retrieverOpts = append(retrieverOpts, search.WithEmbedder(embedder))
	}
	a.Retriever = search.NewRetriever(index, a.Store, retrieverOpts...)

	a.Generator, err = llm.NewClient(cfg.LLM.Provider, cfg.LLM.Model,
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithHTTPClient(newHTTPClient(cfg.LLM.Timeout)),
		llm.WithRetryPolicy(llm.RetryPolicy{
			MaxAttempts: cfg.LLM.Retry.MaxAttempts,
			Base:        cfg.LLM.Retry.BackoffBase,
			Multiplier:  2,
			MaxBackoff:  cfg.LLM.Retry.MaxBackoff,
			Retryable:   llm.IsTransient,
		}),
		llm.WithHooks(a.Metrics.LLMHooks()),
		llm.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create generation client: %w", err)
	}

	searchOpts := []websearch.Option{
		websearch.WithHTTPClient(newHTTPClient(cfg.Search.Timeout)),
		websearch.WithRetry(cfg.Search.MaxAttempts, cfg.Search.RetryDelay),
		websearch.WithLogger(logger),
	}
	if len(cfg.Search.UserAgents) > 0 {
		searchOpts = append(searchOpts, websearch.WithUserAgents(cfg.Search.UserAgents))
	}
	a.Searcher = websearch.NewDuckDuckGo(searchOpts...)
	a.Fetcher = websearch.NewFetcher(cfg.Search.Timeout, websearch.DefaultUserAgents[0], 5<<20)

	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, logger)
		if err != nil {
			logger.Warn("event publishing disabled", "url", cfg.Events.NATSURL, "error", err)
		} else {
			a.Publisher = pub
		}
	}

	a.Service = analysis.NewService(a.Generator,
		analysis.WithRetriever(a.Retriever),
		analysis.WithStore(a.Store),
		analysis.WithSearcher(a.Searcher),
		analysis.WithFetcher(a.Fetcher),
		analysis.WithPublisher(a.Publisher),
		analysis.WithObserver(a.Metrics),
		analysis.WithLogger(logger),
		analysis.WithRetrieval(cfg.Retrieval.K, cfg.Retrieval.MaxTokens),
		analysis.WithSearchLimits(cfg.Search.MaxResults, cfg.News.MaxArticles),
		analysis.WithSentimentWorkers(cfg.News.SentimentWorkers),
	)

	return a, nil
}

// Server returns the HTTP API over the app's components.
func (a *App) Server() *server.Server {
	return server.New(a.Service,
		server.WithHistory(a.Store),
		server.WithForget(a.Retriever.Forget),
		server.WithMetrics(a.Metrics),
		server.WithLogger(a.Logger),
		server.WithRequestTimeout(a.Config.Server.RequestTimeout),
	)
}

// Close releases every resource and joins the errors.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// newApp loads config, builds the logger and wires the app for a command.
func (g *GlobalOptions) newApp(ctx context.Context) (*App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return NewApp(ctx, cfg, NewLogger(cfg.Logging, os.Stderr))
}
