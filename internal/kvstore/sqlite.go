package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	k TEXT PRIMARY KEY,
	v BLOB NOT NULL
);
`

// SQLite is the default persistent Store, a single-table database at the
// configured ledger path.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path, creating it and the schema if
// needed. The path goes straight to the driver, so ":memory:" works.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from being duplicated per pooled connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure ledger schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv_entries WHERE k = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE k = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	pattern := escapeLike(prefix) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT k, v FROM kv_entries WHERE k LIKE ? ESCAPE '\' ORDER BY k`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return result, nil
}

// escapeLike escapes LIKE wildcards so a prefix is matched literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
