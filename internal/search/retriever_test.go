package search

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khanglvm/cofounder-hub/internal/storage"
)

// keywordEmbedder maps text onto a tiny vector space by keyword presence.
type keywordEmbedder struct {
	err   error
	calls int
}

func (e *keywordEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	lower := strings.ToLower(text)
	vec := []float32{0, 0, 0.1}
	if strings.Contains(lower, "fintech") {
		vec[0] = 1
	}
	if strings.Contains(lower, "retail") {
		vec[1] = 1
	}
	return vec, nil
}

func (e *keywordEmbedder) Model() string { return "keyword-test" }

func newTestRetriever(t *testing.T, opts ...RetrieverOption) (*Retriever, *storage.SQLiteStorage) {
	t.Helper()
	store := storage.NewStorage(filepath.Join(t.TempDir(), "history.db"), nil)
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewRetriever(newTestIndexer(t), store, opts...), store
}

func remember(t *testing.T, r *Retriever, store *storage.SQLiteStorage, collection, input, response string) string {
	t.Helper()
	ctx := context.Background()
	id, err := store.Append(ctx, collection, input, response)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	rec, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := r.Remember(ctx, rec); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	return id
}

func TestRetrieve_EmptyCollectionReturnsSentinel(t *testing.T) {
	r, _ := newTestRetriever(t, WithEmbedder(&keywordEmbedder{}))

	got, err := r.Retrieve(context.Background(), "swot_analysis", "Industry: fintech", 2, 3000)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got != NoContext {
		t.Errorf("expected sentinel, got %q", got)
	}
}

func TestRetrieve_KeywordOnly(t *testing.T) {
	r, store := newTestRetriever(t)

	remember(t, r, store, "swot_analysis", "Industry: fintech payments", "SWOT for fintech")
	remember(t, r, store, "swot_analysis", "Industry: retail groceries", "SWOT for retail")
	remember(t, r, store, "news_overview", "Sector: fintech", "news about fintech")

	got, err := r.Retrieve(context.Background(), "swot_analysis", "fintech", 2, 3000)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if !strings.HasPrefix(got, "User Input: Industry: fintech payments\nAPI Response: SWOT for fintech") {
		t.Errorf("expected fintech record first, got %q", got)
	}
	if strings.Contains(got, "news about fintech") {
		t.Error("retrieval crossed collection boundary")
	}
}

func TestRetrieve_HybridRanking(t *testing.T) {
	emb := &keywordEmbedder{}
	r, store := newTestRetriever(t, WithEmbedder(emb))

	remember(t, r, store, "market_size_estimation", "retail in Europe", "retail market 10B")
	remember(t, r, store, "market_size_estimation", "fintech in Asia", "fintech market 5B")
	remember(t, r, store, "market_size_estimation", "retail in Asia", "retail market 7B")

	embeddings, _ := store.Embeddings(context.Background(), "market_size_estimation")
	if len(embeddings) != 3 {
		t.Fatalf("expected 3 stored embeddings, got %d", len(embeddings))
	}

	got, err := r.Retrieve(context.Background(), "market_size_estimation", "fintech", 1, 3000)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got != "User Input: fintech in Asia\nAPI Response: fintech market 5B" {
		t.Errorf("unexpected top-1 context %q", got)
	}
}

func TestRetrieve_RespectsK(t *testing.T) {
	r, store := newTestRetriever(t)
	for i := 0; i < 5; i++ {
		remember(t, r, store, "business_model_recommendation", "fintech lending", "subscription")
	}

	got, err := r.Retrieve(context.Background(), "business_model_recommendation", "fintech", 2, 3000)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if n := strings.Count(got, "User Input:"); n != 2 {
		t.Errorf("expected 2 documents, got %d", n)
	}
}

func TestRetrieve_Truncates(t *testing.T) {
	r, store := newTestRetriever(t)
	remember(t, r, store, "swot_analysis", "fintech", strings.Repeat("opportunity ", 400))

	got, err := r.Retrieve(context.Background(), "swot_analysis", "fintech", 2, 20)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if n := r.tokenizer.Count(got); n > 20 {
		t.Errorf("expected at most 20 tokens, got %d", n)
	}
}

func TestRetrieve_EmbedderFailureFallsBackToKeywords(t *testing.T) {
	emb := &keywordEmbedder{}
	r, store := newTestRetriever(t, WithEmbedder(emb))
	remember(t, r, store, "swot_analysis", "fintech", "result")

	emb.err = errors.New("embedding service down")

	got, err := r.Retrieve(context.Background(), "swot_analysis", "fintech", 2, 3000)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if !strings.Contains(got, "result") {
		t.Errorf("expected keyword hit, got %q", got)
	}
}

func TestRetrieve_StoreUnavailable(t *testing.T) {
	r, store := newTestRetriever(t, WithEmbedder(&keywordEmbedder{}))
	store.Close()

	_, err := r.Retrieve(context.Background(), "swot_analysis", "fintech", 2, 3000)
	if !errors.Is(err, storage.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestForget(t *testing.T) {
	r, store := newTestRetriever(t)
	remember(t, r, store, "swot_analysis", "fintech", "result")

	if err := store.Clear(context.Background(), "swot_analysis"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := r.Forget("swot_analysis"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}

	got, _ := r.Retrieve(context.Background(), "swot_analysis", "fintech", 2, 3000)
	if got != NoContext {
		t.Errorf("expected sentinel after clear, got %q", got)
	}
}
