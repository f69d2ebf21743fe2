/*
Package server exposes the analyses over HTTP/JSON.

Routes:
  - POST /swot_analysis/analyze/
  - POST /market_size/estimate/
  - POST /business_model/recommend/
  - POST /competitor_analysis/analyze/
  - POST /news_overview/overview/
  - GET /api/history, GET|DELETE /api/history/{collection}
  - GET /healthz, GET /metrics
*/
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/analysis"
	"github.com/khanglvm/cofounder-hub/internal/storage"
)

// Analyzer runs the analyses.
type Analyzer interface {
	SWOT(ctx context.Context, req analysis.SWOTRequest) (*analysis.SWOTResponse, error)
	MarketSize(ctx context.Context, req analysis.MarketSizeRequest) (*analysis.MarketSizeResponse, error)
	BusinessModel(ctx context.Context, req analysis.BusinessModelRequest) (*analysis.BusinessModelResponse, error)
	Competitors(ctx context.Context, req analysis.CompetitorRequest) (*analysis.CompetitorResponse, error)
	News(ctx context.Context, req analysis.NewsRequest) (*analysis.NewsResponse, error)
}

// History reads and clears stored analyses.
type History interface {
	Collections(ctx context.Context) ([]storage.CollectionStat, error)
	List(ctx context.Context, collection string) ([]storage.HistoryRecord, error)
	Clear(ctx context.Context, collection string) error
}

// Metrics records served requests and exposes them.
type Metrics interface {
	HTTPRequest(route string, code int)
	Handler() http.Handler
}

// Server is the HTTP API.
type Server struct {
	analyzer       Analyzer
	history        History
	forget         func(collection string) error
	metrics        Metrics
	logger         *slog.Logger
	requestTimeout time.Duration
	maxBodyBytes   int64
	mux            *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the history endpoints.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithForget is called after a collection is cleared, to drop it from
// the retrieval index.
func WithForget(fn func(collection string) error) Option {
	return func(s *Server) { s.forget = fn }
}

// WithMetrics counts requests and serves /metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRequestTimeout bounds each analysis request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// New creates a Server and registers its routes.
func New(analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer:       analyzer,
		logger:         slog.Default(),
		requestTimeout: 2 * time.Minute,
		maxBodyBytes:   1 << 20,
		mux:            http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/swot_analysis/analyze/{$}", s.instrument("swot", postOnly(analyze(s, s.analyzer.SWOT))))
	s.mux.Handle("/market_size/estimate/{$}", s.instrument("market_size", postOnly(analyze(s, s.analyzer.MarketSize))))
	s.mux.Handle("/business_model/recommend/{$}", s.instrument("business_model", postOnly(analyze(s, s.analyzer.BusinessModel))))
	s.mux.Handle("/competitor_analysis/analyze/{$}", s.instrument("competitor_analysis", postOnly(analyze(s, s.analyzer.Competitors))))
	s.mux.Handle("/news_overview/overview/{$}", s.instrument("news_overview", postOnly(analyze(s, s.analyzer.News))))

	if s.history != nil {
		s.mux.Handle("GET /api/history", s.instrument("history", http.HandlerFunc(s.handleCollections)))
		s.mux.Handle("GET /api/history/{collection}", s.instrument("history_list", http.HandlerFunc(s.handleHistoryList)))
		s.mux.Handle("DELETE /api/history/{collection}", s.instrument("history_clear", http.HandlerFunc(s.handleHistoryClear)))
	}

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully, waiting up to 10s for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
