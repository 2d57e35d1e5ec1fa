package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS ledger (
	key        TEXT PRIMARY KEY,
	done       INTEGER NOT NULL DEFAULT 1,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps the ledger in a single SQLite table.
type SQLiteStore struct {
	db           *sql.DB
	dataSource   string
	queryTimeout time.Duration
}

// OpenSQLiteStore opens (creating if needed) the database at dsn.
func OpenSQLiteStore(dsn string) (*SQLiteStore, error) {
	return openSQLiteStore(dsn, true)
}

func openSQLiteStore(dsn string, createSchema bool) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	// One writer; keeps SQLite from returning "database is locked".
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}
	if createSchema {
		if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create ledger table: %w", err)
		}
	}

	return &SQLiteStore{
		db:           db,
		dataSource:   dsn,
		queryTimeout: 30 * time.Second,
	}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	entries := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, `SELECT key, done FROM ledger`)
	if err != nil {
		return entries, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var done bool
		if err := rows.Scan(&key, &done); err != nil {
			return make(map[string]bool), fmt.Errorf("failed to scan row: %w", err)
		}
		entries[key] = done
	}
	if err := rows.Err(); err != nil {
		return make(map[string]bool), fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Persist upserts every done entry in one transaction. Rows are never deleted.
func (s *SQLiteStore) Persist(ctx context.Context, entries map[string]bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ledger (key, done, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET done = 1`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for key, done := range entries {
		if !done {
			continue
		}
		if _, err := stmt.ExecContext(ctx, key, now); err != nil {
			return fmt.Errorf("writing ledger entry: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
