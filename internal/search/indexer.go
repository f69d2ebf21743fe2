package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/khanglvm/cofounder-hub/internal/storage"
)

// Indexer manages the keyword index over history records.
//
// The index is memory-only; SQLite is the source of truth and Rebuild
// repopulates the index at startup.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
}

// NewIndexer creates a new search indexer with in-memory Bleve index.
func NewIndexer() (*Indexer, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{bleveIndex: index}, nil
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	recordMapping := bleve.NewDocumentMapping()

	// Collection: exact-match keyword for scoping queries
	collectionFieldMapping := bleve.NewKeywordFieldMapping()
	collectionFieldMapping.IncludeInAll = false
	recordMapping.AddFieldMappingsAt("collection", collectionFieldMapping)

	// Input and response text: searchable
	recordMapping.AddFieldMappingsAt("input", bleve.NewTextFieldMapping())
	recordMapping.AddFieldMappingsAt("response", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", recordMapping)

	return indexMapping
}

// IndexRecords adds or replaces records in the index.
func (i *Indexer) IndexRecords(records ...storage.HistoryRecord) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.bleveIndex.NewBatch()
	for _, rec := range records {
		doc := map[string]interface{}{
			"collection": rec.Collection,
			"input":      rec.InputSummary,
			"response":   rec.ResponseSummary,
		}
		if err := batch.Index(rec.ID, doc); err != nil {
			return fmt.Errorf("failed to index record %s: %w", rec.ID, err)
		}
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index records: %w", err)
	}

	return nil
}

// RemoveCollection removes every record of a collection from the index.
func (i *Indexer) RemoveCollection(collection string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for {
		searchRequest := bleve.NewSearchRequestOptions(collectionQuery(collection), 1000, 0, false)

		results, err := i.bleveIndex.Search(searchRequest)
		if err != nil {
			return fmt.Errorf("failed to find collection docs: %w", err)
		}
		if len(results.Hits) == 0 {
			return nil
		}

		batch := i.bleveIndex.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := i.bleveIndex.Batch(batch); err != nil {
			return fmt.Errorf("failed to batch delete: %w", err)
		}
	}
}

// RecordLister is the part of the history store Rebuild reads from.
type RecordLister interface {
	List(ctx context.Context, collection string) ([]storage.HistoryRecord, error)
}

// Rebuild indexes every stored record of the given collections.
func (i *Indexer) Rebuild(ctx context.Context, store RecordLister, collections []string) (int, error) {
	total := 0
	for _, c := range collections {
		records, err := store.List(ctx, c)
		if err != nil {
			return total, fmt.Errorf("failed to list %s: %w", c, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := i.IndexRecords(records...); err != nil {
			return total, err
		}
		total += len(records)
	}
	return total, nil
}

// Count returns the total number of indexed records.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}

	return docCount, nil
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}

	return nil
}

func collectionQuery(collection string) query.Query {
	q := bleve.NewTermQuery(collection)
	q.SetField("collection")
	return q
}

// buildMatchQuery creates a match query for BM25 search.
func (i *Indexer) buildMatchQuery(searchText string) query.Query {
	return bleve.NewMatchQuery(searchText)
}
