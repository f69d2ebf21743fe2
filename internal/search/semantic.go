package search

import (
	"context"
	"math"
	"sort"

	"github.com/khanglvm/cofounder-hub/internal/storage"
)

// Embedder turns text into a vector.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankBySimilarity scores stored embeddings against the query vector and
// returns the best limit results, highest first. Ties keep record id order.
func rankBySimilarity(queryVec []float32, embeddings []storage.RecordEmbedding, limit int) []SearchResult {
	results := make([]SearchResult, 0, len(embeddings))
	for _, e := range embeddings {
		if len(e.Vector) != len(queryVec) {
			continue
		}
		results = append(results, SearchResult{
			RecordID:   e.RecordID,
			Collection: e.Collection,
			Score:      cosineSimilarity(queryVec, e.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
