package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ziadkadry99/echo-agent/internal/db"
)

// SQLiteStorage keeps state in the conversation_state table.
type SQLiteStorage struct {
	db *db.DB
}

// NewSQLiteStorage creates a SQLiteStorage backed by the given database.
func NewSQLiteStorage(database *db.DB) *SQLiteStorage {
	return &SQLiteStorage{db: database}
}

func (s *SQLiteStorage) Read(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM conversation_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading state %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLiteStorage) Write(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_state (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("writing state %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting state %s: %w", key, err)
	}
	return nil
}
