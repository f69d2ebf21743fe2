/*
Package storage provides data models for the history store.

These models represent stored analyses, their embedding vectors and raw
web search results (market signals).
*/
package storage

import (
	"fmt"
	"strings"
	"time"
)

// HistoryRecord is one stored (input, response) pair.
type HistoryRecord struct {
	// Collection is the analysis type partition the record belongs to.
	Collection string `json:"collection"`

	// ID is "<collection>-<seq>".
	ID string `json:"id"`

	// Seq is the per-collection sequence number embedded in ID.
	Seq int `json:"seq"`

	// InputSummary is the textual form of the request fields.
	InputSummary string `json:"input_summary"`

	// ResponseSummary is the textual form of the generated result.
	ResponseSummary string `json:"response_summary"`

	// CreatedAt is when the record was appended.
	CreatedAt time.Time `json:"created_at"`
}

// Document renders the record the way it is embedded and indexed.
func (r HistoryRecord) Document() string {
	return fmt.Sprintf("User Input: %s\nAPI Response: %s", r.InputSummary, r.ResponseSummary)
}

// RecordID builds the id of the seq-th record of a collection.
func RecordID(collection string, seq int) string {
	return fmt.Sprintf("%s-%d", collection, seq)
}

// CollectionOf extracts the collection part of a record id.
func CollectionOf(id string) string {
	i := strings.LastIndex(id, "-")
	if i <= 0 {
		return ""
	}
	return id[:i]
}

// CollectionStat summarises one collection.
type CollectionStat struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
}

// RecordEmbedding is a cached embedding vector for a record.
type RecordEmbedding struct {
	// RecordID is the id of the embedded record.
	RecordID string `json:"record_id"`

	// Collection mirrors the record's collection for scoped queries.
	Collection string `json:"collection"`

	// Vector is the embedding vector (serialized as JSON).
	Vector []float32 `json:"vector"`

	// Model is the embedding model that produced Vector.
	Model string `json:"model"`

	// CreatedAt is when the embedding was stored.
	CreatedAt time.Time `json:"created_at"`
}

// MarketSignal is a raw external search result set kept for reference.
type MarketSignal struct {
	// Source names the adapter, e.g. "duckduckgo-news".
	Source string `json:"source"`

	// Query is the search query that produced the data.
	Query string `json:"query"`

	// Timestamp is when the search ran.
	Timestamp time.Time `json:"timestamp"`

	// Data is the JSON-encoded result list.
	Data string `json:"data"`
}
