package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists flags in one sqlite table.
type SQLiteStore struct {
	db   *sql.DB
	subs listeners[Changes]
}

// OpenSQLite opens (or creates) the settings database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("settings: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("settings: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key        TEXT PRIMARY KEY,
		value      INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Close releases the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Get returns the stored values among keys.
func (s *SQLiteStore) Get(ctx context.Context, keys []Key) (Changes, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("settings: query: %w", err)
	}
	defer rows.Close()

	want := make(map[Key]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := Changes{}
	for rows.Next() {
		var (
			k string
			v bool
		)
		if err := rows.Scan(&k, &v); err != nil {
			continue
		}
		if want[Key(k)] {
			out[Key(k)] = v
		}
	}
	return out, rows.Err()
}

// Set upserts the known keys of partial in one transaction and notifies about
// the ones that changed.
func (s *SQLiteStore) Set(ctx context.Context, partial Changes) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settings: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339)
	changed := Changes{}
	for _, k := range partial.Keys() {
		if !Known(k) {
			continue
		}
		v := partial[k]
		var old bool
		err := tx.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, string(k)).Scan(&old)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			changed[k] = v
		case err != nil:
			return fmt.Errorf("settings: read %s: %w", k, err)
		case old != v:
			changed[k] = v
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			string(k), v, now,
		); err != nil {
			return fmt.Errorf("settings: write %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settings: commit: %w", err)
	}
	if len(changed) > 0 {
		s.subs.notify(changed)
	}
	return nil
}

// OnChange registers fn; the returned func unregisters it.
func (s *SQLiteStore) OnChange(fn func(Changes)) func() { return s.subs.subscribe(fn) }
