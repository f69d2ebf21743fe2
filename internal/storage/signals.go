package storage

import (
	"context"
	"fmt"
	"time"
)

// RecordSignal stores a raw web search result set.
func (s *SQLiteStorage) RecordSignal(ctx context.Context, signal MarketSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	ts := signal.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
		INSERT INTO market_signals (source, query, timestamp, data)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		signal.Source,
		signal.Query,
		ts.UTC().Format(time.RFC3339),
		signal.Data,
	); err != nil {
		return fmt.Errorf("failed to record signal: %w", err)
	}

	return nil
}

// Signals returns the most recent signals recorded for query.
func (s *SQLiteStorage) Signals(ctx context.Context, query string, limit int) ([]MarketSignal, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, query, timestamp, data
		FROM market_signals
		WHERE query = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var out []MarketSignal
	for rows.Next() {
		var (
			sig MarketSignal
			ts  string
		)
		if err := rows.Scan(&sig.Source, &sig.Query, &ts, &sig.Data); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		sig.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, sig)
	}
	return out, rows.Err()
}

// Cleanup removes signals older than the retention period.
func (s *SQLiteStorage) Cleanup(ctx context.Context, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}

	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, "DELETE FROM market_signals WHERE timestamp < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup signals: %w", err)
	}

	if n, _ := result.RowsAffected(); n > 0 {
		s.logger.Info("removed old market signals", "count", n, "retention", retention)
	}
	return nil
}
