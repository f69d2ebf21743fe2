package search

import (
	"sort"
)

// FusionConfig defines weights for hybrid score fusion.
type FusionConfig struct {
	SemanticWeight float64
	KeywordWeight  float64
}

// DefaultFusionConfig provides balanced fusion (70% semantic, 30% keyword).
var DefaultFusionConfig = FusionConfig{
	SemanticWeight: 0.7,
	KeywordWeight:  0.3,
}

// fuseScores combines BM25 and semantic results using weighted fusion.
// Both lists are normalized to [0, 1] first; a record missing from one
// list contributes zero for that side. Output is sorted by fused score.
func fuseScores(bm25Results, semanticResults []SearchResult, config FusionConfig) []SearchResult {
	if len(semanticResults) == 0 {
		return sortByScore(append([]SearchResult(nil), bm25Results...))
	}
	if len(bm25Results) == 0 {
		return sortByScore(append([]SearchResult(nil), semanticResults...))
	}

	fused := make(map[string]*SearchResult)
	var order []string

	add := func(results []SearchResult, weight float64) {
		for _, r := range normalizeScores(results) {
			f, ok := fused[r.RecordID]
			if !ok {
				f = &SearchResult{RecordID: r.RecordID, Collection: r.Collection}
				fused[r.RecordID] = f
				order = append(order, r.RecordID)
			}
			f.Score += weight * r.Score
		}
	}
	add(semanticResults, config.SemanticWeight)
	add(bm25Results, config.KeywordWeight)

	fusedResults := make([]SearchResult, 0, len(order))
	for _, id := range order {
		fusedResults = append(fusedResults, *fused[id])
	}
	return sortByScore(fusedResults)
}

func sortByScore(results []SearchResult) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// normalizeScores normalizes scores to [0, 1] range.
func normalizeScores(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return results
	}

	// Find min and max scores
	minScore := results[0].Score
	maxScore := results[0].Score

	for _, result := range results {
		if result.Score < minScore {
			minScore = result.Score
		}
		if result.Score > maxScore {
			maxScore = result.Score
		}
	}

	// Avoid division by zero - when all scores are equal, set all to 1.0
	if maxScore == minScore {
		normalized := make([]SearchResult, len(results))
		for i, result := range results {
			normalized[i] = result
			normalized[i].Score = 1.0
		}
		return normalized
	}

	normalized := make([]SearchResult, len(results))
	for i, result := range results {
		normalized[i] = result
		normalized[i].Score = (result.Score - minScore) / (maxScore - minScore)
	}

	return normalized
}
