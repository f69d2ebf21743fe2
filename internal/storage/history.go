package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRecordNotFound is returned by Get for an unknown id.
var ErrRecordNotFound = errors.New("history record not found")

// Append stores a record in collection and returns its id.
//
// The id is "<collection>-<n>" where n is the number of records appended to
// the collection since it was created or last cleared. The counter is read
// and bumped in the same transaction as the insert, so concurrent appends
// never share an id.
func (s *SQLiteStorage) Append(ctx context.Context, collection, input, response string) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("append: collection is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collection_counters (collection, next_seq) VALUES (?, 0)
		ON CONFLICT(collection) DO NOTHING
	`, collection); err != nil {
		return "", fmt.Errorf("failed to init counter: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		"SELECT next_seq FROM collection_counters WHERE collection = ?", collection,
	).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to read counter: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE collection_counters SET next_seq = next_seq + 1 WHERE collection = ?", collection,
	); err != nil {
		return "", fmt.Errorf("failed to bump counter: %w", err)
	}

	id := RecordID(collection, seq)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history_records (id, collection, seq, input_summary, response_summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, collection, seq, input, response, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return "", fmt.Errorf("failed to insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit append: %w", err)
	}

	return id, nil
}

// List returns the records of collection ordered by sequence number.
func (s *SQLiteStorage) List(ctx context.Context, collection string) ([]HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, seq, input_summary, response_summary, created_at
		FROM history_records
		WHERE collection = ?
		ORDER BY seq
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the record with the given id.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return HistoryRecord{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection, seq, input_summary, response_summary, created_at
		FROM history_records
		WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return HistoryRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return rec, err
}

// Count returns the number of records in collection.
func (s *SQLiteStorage) Count(ctx context.Context, collection string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM history_records WHERE collection = ?", collection,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Clear removes every record and embedding of collection and resets its
// counter. Readers observe either the full collection or an empty one.
func (s *SQLiteStorage) Clear(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM record_embeddings WHERE collection = ?",
		"DELETE FROM history_records WHERE collection = ?",
		"DELETE FROM collection_counters WHERE collection = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, collection); err != nil {
			return fmt.Errorf("failed to clear %s: %w", collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// Collections reports the record count of every non-empty collection.
func (s *SQLiteStorage) Collections(ctx context.Context) ([]CollectionStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, COUNT(*)
		FROM history_records
		GROUP BY collection
		ORDER BY collection
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	stats := []CollectionStat{}
	for rows.Next() {
		var st CollectionStat
		if err := rows.Scan(&st.Collection, &st.Records); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (HistoryRecord, error) {
	var rec HistoryRecord
	var created string
	if err := r.Scan(&rec.ID, &rec.Collection, &rec.Seq, &rec.InputSummary, &rec.ResponseSummary, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return rec, nil
}
