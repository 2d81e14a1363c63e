// Package storage provides SQLite metadata index persistence.
//
// Information Hiding:
// - SQLite connection management hidden behind MetadataStorage
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteMetaStore implements MetadataStorage using SQLite.
type SqliteMetaStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteMetaStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteMetaStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteMetaStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteMetaStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SqliteMetaStore) Close() error {
	return s.db.Close()
}

func (s *SqliteMetaStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS responses (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			size_bytes INTEGER NOT NULL,
			summary TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_responses_created
		ON responses(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// StoreResponse records a metadata entry, replacing any existing entry
// with the same id.
func (s *SqliteMetaStore) StoreResponse(ctx context.Context, meta ResponseMetadata) error {
	summary, err := json.Marshal(meta.Summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO responses (id, created_at, size_bytes, summary)
		VALUES (?, ?, ?, ?)`,
		meta.ID, meta.Timestamp.Unix(), meta.SizeBytes, string(summary))
	if err != nil {
		return fmt.Errorf("failed to store response metadata: %w", err)
	}
	return nil
}

// LoadAllResponses loads every recorded entry.
func (s *SqliteMetaStore) LoadAllResponses(ctx context.Context) ([]ResponseMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, size_bytes, summary
		FROM responses
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query response metadata: %w", err)
	}
	defer rows.Close()

	var metas []ResponseMetadata
	for rows.Next() {
		var (
			meta      ResponseMetadata
			createdAt int64
			summary   string
		)
		if err := rows.Scan(&meta.ID, &createdAt, &meta.SizeBytes, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan response metadata: %w", err)
		}
		meta.Timestamp = time.Unix(createdAt, 0)
		if err := json.Unmarshal([]byte(summary), &meta.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode summary for %s: %w", meta.ID, err)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read response metadata: %w", err)
	}
	return metas, nil
}

// DeleteResponse removes the entry for id. Deleting an unknown id is not
// an error.
func (s *SqliteMetaStore) DeleteResponse(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete response metadata: %w", err)
	}
	return nil
}
