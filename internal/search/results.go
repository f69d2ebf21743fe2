/*
Package search implements context retrieval over stored analyses.

This package provides BM25 keyword search scoped to a collection, semantic
search over stored record embeddings, and hybrid fusion of the two. The
Retriever turns the fused ranking into a token-bounded context string.
*/
package search

// SearchResult represents a single ranked history record.
type SearchResult struct {
	RecordID   string  `json:"id"`
	Collection string  `json:"collection"`
	Score      float64 `json:"score"`
}

// NoContext is returned by Retrieve when nothing relevant is stored.
const NoContext = "No prior context found"
