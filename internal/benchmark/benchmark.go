/*
Package benchmark measures how much prompt context retrieval saves.

For every collection it compares:
 1. Full history: every stored analysis pasted into the prompt
 2. Retrieval: the top-k records the retriever selects, truncated to the
    token budget

The probe query for a collection is the input of its most recent record,
which is what a repeat request on the same topic looks like.
*/
package benchmark

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khanglvm/cofounder-hub/internal/storage"
)

// Lister returns the stored records of a collection.
type Lister interface {
	List(ctx context.Context, collection string) ([]storage.HistoryRecord, error)
}

// Retriever selects prompt context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, collection, query string, k, maxTokens int) (string, error)
}

// Counter counts tokens.
type Counter interface {
	Count(text string) int
}

// Options controls a benchmark run.
type Options struct {
	K          int
	MaxTokens  int
	Iterations int
}

// CollectionResult is the outcome for one collection.
type CollectionResult struct {
	Collection     string        `json:"collection"`
	Records        int           `json:"records"`
	HistoryTokens  int           `json:"historyTokens"`
	ContextTokens  int           `json:"contextTokens"`
	TokenSavings   int           `json:"tokenSavings"`
	SavingsPercent float64       `json:"savingsPercent"`
	AvgLatency     time.Duration `json:"avgLatencyNs"`
}

// Result contains the per-collection results and totals.
type Result struct {
	Encoding       string             `json:"encoding"`
	Collections    []CollectionResult `json:"collections"`
	HistoryTokens  int                `json:"historyTokens"`
	ContextTokens  int                `json:"contextTokens"`
	TokenSavings   int                `json:"tokenSavings"`
	SavingsPercent float64            `json:"savingsPercent"`
}

// Run benchmarks every collection that holds at least one record.
func Run(ctx context.Context, store Lister, retriever Retriever, counter Counter,
	collections []string, opts Options) (*Result, error) {

	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}

	result := &Result{Collections: []CollectionResult{}}
	for _, c := range collections {
		records, err := store.List(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", c, err)
		}
		if len(records) == 0 {
			continue
		}

		docs := make([]string, len(records))
		for i, rec := range records {
			docs[i] = rec.Document()
		}
		cr := CollectionResult{
			Collection:    c,
			Records:       len(records),
			HistoryTokens: counter.Count(strings.Join(docs, "\n")),
		}

		probe := records[len(records)-1].InputSummary
		var total time.Duration
		var retrieved string
		for i := 0; i < opts.Iterations; i++ {
			start := time.Now()
			retrieved, err = retriever.Retrieve(ctx, c, probe, opts.K, opts.MaxTokens)
			total += time.Since(start)
			if err != nil {
				return nil, fmt.Errorf("retrieve %s: %w", c, err)
			}
		}
		cr.AvgLatency = total / time.Duration(opts.Iterations)
		cr.ContextTokens = counter.Count(retrieved)
		cr.TokenSavings, cr.SavingsPercent = savings(cr.HistoryTokens, cr.ContextTokens)

		result.Collections = append(result.Collections, cr)
		result.HistoryTokens += cr.HistoryTokens
		result.ContextTokens += cr.ContextTokens
	}

	result.TokenSavings, result.SavingsPercent = savings(result.HistoryTokens, result.ContextTokens)
	return result, nil
}

func savings(history, retrieved int) (int, float64) {
	if history <= 0 {
		return 0, 0
	}
	saved := history - retrieved
	if saved < 0 {
		saved = 0
	}
	return saved, float64(saved) / float64(history) * 100
}

// FormatResult formats the benchmark result for display.
func FormatResult(result *Result) string {
	var sb strings.Builder

	sb.WriteString("╔══════════════════════════════════════════════════════════════╗\n")
	sb.WriteString("║           CONTEXT TOKEN BENCHMARK RESULTS                    ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	if len(result.Collections) == 0 {
		sb.WriteString("║  No stored analyses yet.                                     ║\n")
		sb.WriteString("╚══════════════════════════════════════════════════════════════╝\n")
		return sb.String()
	}
	for _, c := range result.Collections {
		sb.WriteString("║                                                              ║\n")
		sb.WriteString(fmt.Sprintf("║  📊 %-57s║\n", c.Collection))
		sb.WriteString(fmt.Sprintf("║     Records:         %-40d║\n", c.Records))
		sb.WriteString(fmt.Sprintf("║     Full history:    %-40s║\n", fmt.Sprintf("%d tokens", c.HistoryTokens)))
		sb.WriteString(fmt.Sprintf("║     Retrieved:       %-40s║\n", fmt.Sprintf("%d tokens", c.ContextTokens)))
		sb.WriteString(fmt.Sprintf("║     Latency (avg):   %-40s║\n", c.AvgLatency.Round(time.Microsecond)))
	}
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("╠══════════════════════════════════════════════════════════════╣\n")
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("║  💰 SAVINGS                                                  ║\n")
	sb.WriteString(fmt.Sprintf("║     Tokens saved:    %-40d║\n", result.TokenSavings))
	sb.WriteString(fmt.Sprintf("║     Reduction:       %-40s║\n", fmt.Sprintf("%.1f%%", result.SavingsPercent)))
	sb.WriteString(fmt.Sprintf("║     Encoding:        %-40s║\n", result.Encoding))
	sb.WriteString("║                                                              ║\n")
	sb.WriteString("╚══════════════════════════════════════════════════════════════╝\n")

	return sb.String()
}
