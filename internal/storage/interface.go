/*
Package storage implements the persistent history store for analyses.

Every successful generation is appended to a named collection (one per
analysis type) together with its embedding vector. Web search results are
kept as market signals. The database lives at <data_dir>/history.db and uses
modernc.org/sqlite (a pure Go, CGo-free implementation).

If the database cannot be opened the store is disabled and every call returns
ErrStoreUnavailable, so callers can degrade instead of failing.
*/
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStoreUnavailable is returned by every operation on a disabled or closed store.
var ErrStoreUnavailable = errors.New("history store unavailable")

// Storage defines the interface for persistent history operations.
type Storage interface {
	// Init opens the database and runs migrations.
	Init() error

	// Append stores a record and returns its "<collection>-<n>" id.
	Append(ctx context.Context, collection, input, response string) (string, error)

	// List returns the records of a collection in append order.
	List(ctx context.Context, collection string) ([]HistoryRecord, error)

	// Get returns a single record by id.
	Get(ctx context.Context, id string) (HistoryRecord, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Clear deletes every record of a collection in one transaction.
	Clear(ctx context.Context, collection string) error

	// Collections reports the record count of every non-empty collection.
	Collections(ctx context.Context) ([]CollectionStat, error)

	// SaveEmbedding stores the embedding vector of a record.
	SaveEmbedding(ctx context.Context, recordID string, vector []float32, model string) error

	// Embeddings returns every stored embedding of a collection.
	Embeddings(ctx context.Context, collection string) ([]RecordEmbedding, error)

	// RecordSignal stores raw web search results.
	RecordSignal(ctx context.Context, signal MarketSignal) error

	// Signals returns stored signals for a query, newest first.
	Signals(ctx context.Context, query string, limit int) ([]MarketSignal, error)

	// Cleanup removes signals older than the retention period.
	Cleanup(ctx context.Context, retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	logger   *slog.Logger
	mu       sync.Mutex
	initOnce sync.Once
}

// NewStorage creates a SQLite storage instance for dbPath.
//
// The parent directory is created on Init. If the database cannot be opened,
// the storage is disabled and operations return ErrStoreUnavailable.
func NewStorage(dbPath string, logger *slog.Logger) *SQLiteStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: dbPath != "",
		logger:  logger,
	}
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// return ErrStoreUnavailable (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return ErrStoreUnavailable
	}

	var initErr error
	s.initOnce.Do(func() {
		if s.logger == nil {
			s.logger = slog.Default()
		}

		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.disable(initErr)
			return
		}

		dsn := "file:" + s.dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.disable(initErr)
			return
		}
		// SQLite allows one writer; serialising on a single connection
		// keeps counter transactions from hitting SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.disable(initErr)
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.disable(initErr)
			return
		}
	})

	return initErr
}

func (s *SQLiteStorage) disable(err error) {
	s.enabled = false
	s.logger.Warn("history store disabled", "path", s.dbPath, "error", err)
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}

// Enabled reports whether the store accepts operations.
func (s *SQLiteStorage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.db != nil
}

// Path returns the database file location.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// ready must be called with s.mu held.
func (s *SQLiteStorage) ready() error {
	if !s.enabled || s.db == nil {
		return ErrStoreUnavailable
	}
	return nil
}
