package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/khanglvm/cofounder-hub/internal/storage"
)

// RecordStore is the part of the history store the retriever needs.
type RecordStore interface {
	Get(ctx context.Context, id string) (storage.HistoryRecord, error)
	Embeddings(ctx context.Context, collection string) ([]storage.RecordEmbedding, error)
	SaveEmbedding(ctx context.Context, recordID string, vector []float32, model string) error
}

// Retriever finds prior analyses similar to a query.
type Retriever struct {
	index     *Indexer
	store     RecordStore
	embedder  Embedder
	fusion    FusionConfig
	tokenizer *Tokenizer
	logger    *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithEmbedder enables semantic ranking. Without it only BM25 is used.
func WithEmbedder(e Embedder) RetrieverOption {
	return func(r *Retriever) {
		r.embedder = e
	}
}

// WithFusion sets the semantic/keyword weights.
func WithFusion(cfg FusionConfig) RetrieverOption {
	return func(r *Retriever) {
		r.fusion = cfg
	}
}

// WithTokenizer sets the tokenizer used for truncation.
func WithTokenizer(t *Tokenizer) RetrieverOption {
	return func(r *Retriever) {
		r.tokenizer = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// NewRetriever creates a retriever over index and store.
func NewRetriever(index *Indexer, store RecordStore, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		index:  index,
		store:  store,
		fusion: DefaultFusionConfig,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tokenizer == nil {
		r.tokenizer = NewTokenizer()
	}
	return r
}

// Retrieve returns the documents of the k stored records of collection most
// similar to query, joined with newlines in ranking order and truncated to
// maxTokens tokens. When nothing matches it returns NoContext and a nil error.
// An error is returned only when the history store itself is unavailable.
func (r *Retriever) Retrieve(ctx context.Context, collection, query string, k, maxTokens int) (string, error) {
	if k <= 0 {
		k = 2
	}

	keyword, err := r.index.SearchBM25(collection, query, k*2)
	if err != nil {
		r.logger.Warn("keyword search failed", "collection", collection, "error", err)
		keyword = nil
	}

	semantic, err := r.searchSemantic(ctx, collection, query, k*2)
	if err != nil {
		return "", err
	}

	ranked := fuseScores(keyword, semantic, r.fusion)

	docs := make([]string, 0, k)
	for _, hit := range ranked {
		if len(docs) == k {
			break
		}
		rec, err := r.store.Get(ctx, hit.RecordID)
		if err != nil {
			if errors.Is(err, storage.ErrRecordNotFound) {
				continue
			}
			return "", fmt.Errorf("load record %s: %w", hit.RecordID, err)
		}
		docs = append(docs, rec.Document())
	}

	if len(docs) == 0 {
		return NoContext, nil
	}

	return r.tokenizer.Truncate(strings.Join(docs, "\n"), maxTokens), nil
}

// searchSemantic ranks stored embeddings against the query. A failing
// embedder disables semantic ranking for this call; a failing store is
// returned to the caller.
func (r *Retriever) searchSemantic(ctx context.Context, collection, query string, limit int) ([]SearchResult, error) {
	if r.embedder == nil {
		return nil, nil
	}

	embeddings, err := r.store.Embeddings(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, using keyword ranking only", "collection", collection, "error", err)
		return nil, nil
	}

	return rankBySimilarity(queryVec, embeddings, limit), nil
}

// Remember makes a stored record retrievable: it is added to the keyword
// index and, when an embedder is configured, its embedding is stored.
func (r *Retriever) Remember(ctx context.Context, rec storage.HistoryRecord) error {
	if err := r.index.IndexRecords(rec); err != nil {
		return err
	}
	if r.embedder == nil {
		return nil
	}

	vec, err := r.embedder.EmbedOne(ctx, rec.Document())
	if err != nil {
		return fmt.Errorf("embed record %s: %w", rec.ID, err)
	}
	return r.store.SaveEmbedding(ctx, rec.ID, vec, r.embedder.Model())
}

// Forget drops a cleared collection from the keyword index.
func (r *Retriever) Forget(collection string) error {
	return r.index.RemoveCollection(collection)
}
