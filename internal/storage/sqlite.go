package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS storage_entries (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
)`

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite keeps the session in a local database file, one row per key
type SQLite struct {
	db        *sql.DB
	namespace string
}

// OpenSQLite opens (and creates if needed) the session database at path
func OpenSQLite(path, namespace string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
	}
	// single writer keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create storage schema: %w", err)
	}
	return &SQLite{db: db, namespace: namespace}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(key string) (string, bool) {
	return sqliteGet(s.db, s.namespace, key)
}

func (s *SQLite) Set(key, value string) error {
	return sqliteSet(s.db, s.namespace, key, value)
}

func (s *SQLite) Remove(key string) error {
	return sqliteRemove(s.db, s.namespace, key)
}

func (s *SQLite) Atomically(fn func(tx Storage) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin storage transaction: %w", err)
	}
	if err := fn(&sqliteTx{tx: tx, namespace: s.namespace}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqliteTx struct {
	tx        *sql.Tx
	namespace string
}

func (t *sqliteTx) Get(key string) (string, bool) {
	return sqliteGet(t.tx, t.namespace, key)
}

func (t *sqliteTx) Set(key, value string) error {
	return sqliteSet(t.tx, t.namespace, key, value)
}

func (t *sqliteTx) Remove(key string) error {
	return sqliteRemove(t.tx, t.namespace, key)
}

func sqliteGet(q querier, namespace, key string) (string, bool) {
	var value string
	err := q.QueryRowContext(context.Background(),
		`SELECT value FROM storage_entries WHERE namespace = ? AND key = ?`, namespace, key).Scan(&value)
	if err != nil {
		// sql.ErrNoRows and driver failures both read as absence
		return "", false
	}
	return value, true
}

func sqliteSet(q querier, namespace, key, value string) error {
	_, err := q.ExecContext(context.Background(), `
		INSERT INTO storage_entries (namespace, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		namespace, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func sqliteRemove(q querier, namespace, key string) error {
	if _, err := q.ExecContext(context.Background(),
		`DELETE FROM storage_entries WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}
