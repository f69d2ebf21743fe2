package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
)

// SearchBM25 performs BM25 keyword search scoped to one collection.
func (i *Indexer) SearchBM25(collection, query string, limit int) ([]SearchResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	// (match query) AND (collection filter)
	conjunctionQuery := bleve.NewConjunctionQuery(i.buildMatchQuery(query), collectionQuery(collection))

	searchRequest := bleve.NewSearchRequestOptions(conjunctionQuery, limit, 0, false)

	results, err := i.bleveIndex.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	return convertBleveResults(collection, results), nil
}

// convertBleveResults converts Bleve search results to our SearchResult format.
func convertBleveResults(collection string, results *bleve.SearchResult) []SearchResult {
	searchResults := make([]SearchResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		searchResults = append(searchResults, SearchResult{
			RecordID:   hit.ID,
			Collection: collection,
			Score:      hit.Score,
		})
	}
	return searchResults
}
