package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

// SQLiteKV keeps documents in a single sqlite table
type SQLiteKV struct {
	DB *sql.DB
}

// NewSQLiteKV opens the database and initializes the schema
func NewSQLiteKV(dbPath string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// An in-memory database exists per connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	kv := &SQLiteKV{DB: db}

	// Run migrations
	if err := kv.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return kv, nil
}

// migrate creates the documents table
func (s *SQLiteKV) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	`

	if _, err := s.DB.Exec(schema); err != nil {
		return err
	}

	return s.migrateUpdatedAt()
}

// migrateUpdatedAt adds the updated_at column to databases created before it existed
func (s *SQLiteKV) migrateUpdatedAt() error {
	_, err := s.DB.Exec(`ALTER TABLE kv ADD COLUMN updated_at DATETIME`)
	if err != nil && err.Error() != "duplicate column name: updated_at" {
		return err
	}
	return nil
}

// Get returns the document stored under key
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key
func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull {
			return fmt.Errorf("failed to set %s: %w", key, ErrQuotaExceeded)
		}
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Usage returns the bytes held by every key except exclude
func (s *SQLiteKV) Usage(ctx context.Context, exclude string) (int64, error) {
	var total int64
	err := s.DB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key != ?",
		exclude,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to measure usage: %w", err)
	}
	return total, nil
}

// Close closes the database connection
func (s *SQLiteKV) Close() error {
	log.Debug("closing sqlite store")
	return s.DB.Close()
}
