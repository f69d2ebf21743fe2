package storage

import (
	"context"
	"fmt"
	"time"
)

// SaveEmbedding stores the embedding vector of a record, replacing any
// previous vector for the same record.
func (s *SQLiteStorage) SaveEmbedding(ctx context.Context, recordID string, vector []float32, model string) error {
	collection := CollectionOf(recordID)
	if collection == "" {
		return fmt.Errorf("save embedding: malformed record id %q", recordID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	vectorJSON, err := vectorToJSON(vector)
	if err != nil {
		return err
	}

	query := `
		INSERT OR REPLACE INTO record_embeddings (record_id, collection, vector, model, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		recordID,
		collection,
		vectorJSON,
		model,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}

	return nil
}

// Embeddings returns every stored embedding of collection.
//
// Rows whose vector cannot be decoded are skipped with a warning.
func (s *SQLiteStorage) Embeddings(ctx context.Context, collection string) ([]RecordEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, vector, model, created_at
		FROM record_embeddings
		WHERE collection = ?
		ORDER BY record_id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var out []RecordEmbedding
	for rows.Next() {
		var (
			e          RecordEmbedding
			vectorJSON string
			created    string
		)
		if err := rows.Scan(&e.RecordID, &vectorJSON, &e.Model, &created); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		vec, err := jsonToVector(vectorJSON)
		if err != nil {
			s.logger.Warn("skipping unreadable embedding", "record_id", e.RecordID, "error", err)
			continue
		}
		e.Collection = collection
		e.Vector = vec
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
