package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/events"
	"github.com/khanglvm/cofounder-hub/internal/search"
	"github.com/khanglvm/cofounder-hub/internal/storage"
	"github.com/khanglvm/cofounder-hub/internal/websearch"
)

// Warning names reported on responses when a best-effort step failed.
const (
	WarnRetrieval   = "retrieval"
	WarnPersistence = "persistence"
	WarnSearch      = "search"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ContextRetriever finds prior analyses and learns new ones.
type ContextRetriever interface {
	Retrieve(ctx context.Context, collection, query string, k, maxTokens int) (string, error)
	Remember(ctx context.Context, rec storage.HistoryRecord) error
}

// HistoryStore is the part of the history store the pipeline writes to.
type HistoryStore interface {
	Append(ctx context.Context, collection, input, response string) (string, error)
	RecordSignal(ctx context.Context, signal storage.MarketSignal) error
}

// Searcher runs web searches.
type Searcher interface {
	Text(ctx context.Context, query string, max int) ([]websearch.Result, error)
	News(ctx context.Context, query string, max int) ([]websearch.Result, error)
}

// PageFetcher fetches a web page as readable text.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*websearch.Page, error)
}

// Observer receives pipeline measurements.
type Observer interface {
	AnalysisDone(collection string, d time.Duration, err error)
	RetrievalDegraded(collection string)
	PersistFailed(collection string)
	SearchFailed(kind string)
}

type nopObserver struct{}

func (nopObserver) AnalysisDone(string, time.Duration, error) {}
func (nopObserver) RetrievalDegraded(string)                  {}
func (nopObserver) PersistFailed(string)                      {}
func (nopObserver) SearchFailed(string)                       {}

// Service runs the five analyses.
type Service struct {
	gen       Generator
	retriever ContextRetriever
	store     HistoryStore
	searcher  Searcher
	fetcher   PageFetcher
	publisher events.Publisher
	observer  Observer
	logger    *slog.Logger

	k             int
	maxTokens     int
	searchResults int
	maxArticles   int
	websiteRunes  int
	sentimentPool *pool
}

// Option configures a Service.
type Option func(*Service)

// WithRetriever enables context retrieval and indexing of new records.
func WithRetriever(r ContextRetriever) Option {
	return func(s *Service) { s.retriever = r }
}

// WithStore enables persistence of results and search signals.
func WithStore(st HistoryStore) Option {
	return func(s *Service) { s.store = st }
}

// WithSearcher enables web search for competitor and news analyses.
func WithSearcher(se Searcher) Option {
	return func(s *Service) { s.searcher = se }
}

// WithFetcher enables fetching competitor websites given as URLs.
func WithFetcher(f PageFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithPublisher publishes an event after every analysis.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithObserver reports measurements to o.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRetrieval sets how many prior records are retrieved and the token
// budget of the merged context.
func WithRetrieval(k, maxTokens int) Option {
	return func(s *Service) {
		s.k = k
		s.maxTokens = maxTokens
	}
}

// WithSearchLimits sets the number of text results per competitor and the
// number of news articles.
func WithSearchLimits(resultsPerCompetitor, maxArticles int) Option {
	return func(s *Service) {
		s.searchResults = resultsPerCompetitor
		s.maxArticles = maxArticles
	}
}

// WithSentimentWorkers bounds concurrent sentiment classification calls.
func WithSentimentWorkers(n int) Option {
	return func(s *Service) { s.sentimentPool = newPool(n) }
}

// NewService creates a Service. Only the generator is required; missing
// collaborators disable their step.
func NewService(gen Generator, opts ...Option) *Service {
	s := &Service{
		gen:           gen,
		publisher:     events.Nop{},
		observer:      nopObserver{},
		logger:        slog.Default(),
		k:             2,
		maxTokens:     3000,
		searchResults: 3,
		maxArticles:   10,
		websiteRunes:  4000,
		sentimentPool: newPool(4),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	return s
}

// run tracks the warnings of one analysis.
type run struct {
	collection string
	started    time.Time
	warnings   []string
}

func (s *Service) begin(collection string) *run {
	return &run{collection: collection, started: time.Now()}
}

func (r *run) warn(name string) {
	for _, w := range r.warnings {
		if w == name {
			return
		}
	}
	r.warnings = append(r.warnings, name)
}

// finish reports the outcome and passes err through.
func (s *Service) finish(r *run, err error) error {
	s.observer.AnalysisDone(r.collection, time.Since(r.started), err)
	return err
}

// retrieve returns prior context for the fingerprint, or the NoContext
// sentinel when retrieval is disabled or fails.
func (s *Service) retrieve(ctx context.Context, r *run, fp Fingerprint) string {
	if s.retriever == nil {
		return search.NoContext
	}
	text, err := s.retriever.Retrieve(ctx, r.collection, fp.String(), s.k, s.maxTokens)
	if err != nil {
		s.logger.Warn("context retrieval failed, continuing without prior context",
			"collection", r.collection, "error", err)
		s.observer.RetrievalDegraded(r.collection)
		r.warn(WarnRetrieval)
		return search.NoContext
	}
	if text == "" {
		return search.NoContext
	}
	return text
}

// generate runs one generation call and labels its error with the step.
func (s *Service) generate(ctx context.Context, step, prompt string) (string, error) {
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", step, err)
	}
	return text, nil
}

// persist stores the exchange, makes it retrievable and publishes it.
// Nothing is stored once ctx is done.
func (s *Service) persist(ctx context.Context, r *run, input, output any) {
	if err := ctx.Err(); err != nil {
		s.logger.Warn("request ended before persistence, result not stored",
			"collection", r.collection, "error", err)
		r.warn(WarnPersistence)
		return
	}

	in, err := json.Marshal(input)
	if err != nil {
		s.logger.Warn("failed to encode input", "collection", r.collection, "error", err)
		r.warn(WarnPersistence)
		return
	}
	out, err := json.Marshal(output)
	if err != nil {
		s.logger.Warn("failed to encode response", "collection", r.collection, "error", err)
		r.warn(WarnPersistence)
		return
	}

	var id string
	if s.store != nil {
		id, err = s.store.Append(ctx, r.collection, string(in), string(out))
		if err != nil {
			s.logger.Warn("failed to store analysis", "collection", r.collection, "error", err)
			s.observer.PersistFailed(r.collection)
			r.warn(WarnPersistence)
		} else if s.retriever != nil {
			rec := storage.HistoryRecord{
				Collection:      r.collection,
				ID:              id,
				InputSummary:    string(in),
				ResponseSummary: string(out),
				CreatedAt:       time.Now().UTC(),
			}
			if err := s.retriever.Remember(ctx, rec); err != nil {
				s.logger.Warn("failed to index analysis", "id", id, "error", err)
			}
		}
	}

	ev, err := events.NewAnalysisCompleted(r.collection, id, json.RawMessage(in), json.RawMessage(out))
	if err != nil {
		s.logger.Warn("failed to build event", "collection", r.collection, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "collection", r.collection, "error", err)
	}
}

// recordSignal keeps raw search results for later reference.
func (s *Service) recordSignal(ctx context.Context, source, query string, results []websearch.Result) {
	if s.store == nil || len(results) == 0 {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	err = s.store.RecordSignal(ctx, storage.MarketSignal{
		Source:    source,
		Query:     query,
		Timestamp: time.Now().UTC(),
		Data:      string(data),
	})
	if err != nil && !errors.Is(err, storage.ErrStoreUnavailable) {
		s.logger.Warn("failed to record search results", "source", source, "query", query, "error", err)
	}
}
