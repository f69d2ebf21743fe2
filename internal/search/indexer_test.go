package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/khanglvm/cofounder-hub/internal/storage"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	indexer, err := NewIndexer()
	if err != nil {
		t.Fatalf("failed to create indexer: %v", err)
	}
	t.Cleanup(func() { indexer.Close() })
	return indexer
}

func testRecords() []storage.HistoryRecord {
	return []storage.HistoryRecord{
		{Collection: "swot_analysis", ID: "swot_analysis-0", InputSummary: "Industry: fintech, Business Description: mobile payments", ResponseSummary: "Strengths: fast onboarding"},
		{Collection: "swot_analysis", ID: "swot_analysis-1", InputSummary: "Industry: retail, Business Description: grocery delivery", ResponseSummary: "Weaknesses: thin margins"},
		{Collection: "news_overview", ID: "news_overview-0", InputSummary: "Sector: fintech", ResponseSummary: "Fintech news is mostly positive"},
	}
}

func TestIndexRecords(t *testing.T) {
	indexer := newTestIndexer(t)

	if err := indexer.IndexRecords(testRecords()...); err != nil {
		t.Fatalf("failed to index records: %v", err)
	}

	count, err := indexer.Count()
	if err != nil {
		t.Fatalf("failed to get count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 indexed records, got %d", count)
	}
}

func TestSearchBM25_ScopedToCollection(t *testing.T) {
	indexer := newTestIndexer(t)
	if err := indexer.IndexRecords(testRecords()...); err != nil {
		t.Fatalf("failed to index records: %v", err)
	}

	results, err := indexer.SearchBM25("swot_analysis", "fintech payments", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	for _, r := range results {
		if r.Collection != "swot_analysis" || storage.CollectionOf(r.RecordID) != "swot_analysis" {
			t.Errorf("result crossed collection boundary: %+v", r)
		}
	}
	if results[0].RecordID != "swot_analysis-0" {
		t.Errorf("expected swot_analysis-0 first, got %s", results[0].RecordID)
	}
}

func TestSearchBM25_EmptyQuery(t *testing.T) {
	indexer := newTestIndexer(t)

	results, err := indexer.SearchBM25("swot_analysis", "  ", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRemoveCollection(t *testing.T) {
	indexer := newTestIndexer(t)
	if err := indexer.IndexRecords(testRecords()...); err != nil {
		t.Fatalf("failed to index records: %v", err)
	}

	if err := indexer.RemoveCollection("swot_analysis"); err != nil {
		t.Fatalf("failed to remove collection: %v", err)
	}

	count, _ := indexer.Count()
	if count != 1 {
		t.Errorf("expected 1 remaining record, got %d", count)
	}

	results, _ := indexer.SearchBM25("swot_analysis", "fintech", 10)
	if len(results) != 0 {
		t.Errorf("expected cleared collection to return nothing, got %d", len(results))
	}
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStorage(filepath.Join(t.TempDir(), "history.db"), nil)
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer store.Close()

	store.Append(ctx, "swot_analysis", "fintech", "a")
	store.Append(ctx, "swot_analysis", "retail", "b")
	store.Append(ctx, "market_size_estimation", "fintech", "c")

	indexer := newTestIndexer(t)
	n, err := indexer.Rebuild(ctx, store, []string{"swot_analysis", "market_size_estimation", "news_overview"})
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 records rebuilt, got %d", n)
	}

	results, _ := indexer.SearchBM25("market_size_estimation", "fintech", 10)
	if len(results) != 1 || results[0].RecordID != "market_size_estimation-0" {
		t.Errorf("unexpected results after rebuild: %+v", results)
	}
}
