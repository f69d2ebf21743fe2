package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/events"
	"github.com/khanglvm/cofounder-hub/internal/storage"
	"github.com/khanglvm/cofounder-hub/internal/websearch"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	respond func(ctx context.Context, prompt string) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.respond == nil {
		return "generated", nil
	}
	return g.respond(ctx, prompt)
}

func (g *fakeGenerator) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// replies answers prompts in call order.
func replies(texts ...string) func(context.Context, string) (string, error) {
	var (
		mu sync.Mutex
		n  int
	)
	return func(context.Context, string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if n >= len(texts) {
			return "", errors.New("unexpected generation call")
		}
		n++
		return texts[n-1], nil
	}
}

type fakeRetriever struct {
	mu         sync.Mutex
	text       string
	err        error
	queries    []string
	remembered []storage.HistoryRecord
}

func (r *fakeRetriever) Retrieve(ctx context.Context, collection, query string, k, maxTokens int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	return r.text, r.err
}

func (r *fakeRetriever) Remember(ctx context.Context, rec storage.HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remembered = append(r.remembered, rec)
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	appendErr error
	records   []storage.HistoryRecord
	signals   []storage.MarketSignal
}

func (s *fakeStore) Append(ctx context.Context, collection, input, response string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return "", s.appendErr
	}
	id := storage.RecordID(collection, len(s.records))
	s.records = append(s.records, storage.HistoryRecord{
		Collection: collection, ID: id, InputSummary: input, ResponseSummary: response,
	})
	return id, nil
}

func (s *fakeStore) RecordSignal(ctx context.Context, signal storage.MarketSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, signal)
	return nil
}

type fakeSearcher struct {
	text    map[string][]websearch.Result
	news    []websearch.Result
	textErr error
	newsErr error
}

func (s *fakeSearcher) Text(ctx context.Context, query string, max int) ([]websearch.Result, error) {
	if s.textErr != nil {
		return nil, s.textErr
	}
	return s.text[query], nil
}

func (s *fakeSearcher) News(ctx context.Context, query string, max int) ([]websearch.Result, error) {
	if s.newsErr != nil {
		return nil, s.newsErr
	}
	if max > 0 && len(s.news) > max {
		return s.news[:max], nil
	}
	return s.news, nil
}

type fakeFetcher struct {
	pages map[string]*websearch.Page
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*websearch.Page, error) {
	if p, ok := f.pages[rawURL]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeObserver struct {
	mu        sync.Mutex
	done      map[string]int
	failed    map[string]int
	degraded  int
	persist   int
	searchErr int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{done: map[string]int{}, failed: map[string]int{}}
}

func (o *fakeObserver) AnalysisDone(collection string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.failed[collection]++
		return
	}
	o.done[collection]++
}

func (o *fakeObserver) RetrievalDegraded(string) { o.mu.Lock(); o.degraded++; o.mu.Unlock() }
func (o *fakeObserver) PersistFailed(string)     { o.mu.Lock(); o.persist++; o.mu.Unlock() }
func (o *fakeObserver) SearchFailed(string)      { o.mu.Lock(); o.searchErr++; o.mu.Unlock() }

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
