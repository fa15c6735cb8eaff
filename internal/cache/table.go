// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	_ "modernc.org/sqlite"
)

// TableStore persists each subsection as a SQLite table keyed by title.
// Entries are upserted synchronously as they are computed. The database is
// opened per operation and never held across calls.
type TableStore struct {
	path string

	mu sync.Mutex
}

// NewTableStore returns a table backend for the database at path.
func NewTableStore(path string) *TableStore {
	return &TableStore{path: path}
}

func (t *TableStore) Kind() Kind { return KindTable }

// Path returns the database path.
func (t *TableStore) Path() string { return t.path }

func (t *TableStore) open(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(t.path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := filepath.Clean(t.path) + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

// Load reads every row of every table. Database errors are logged and yield
// an empty store.
func (t *TableStore) Load(ctx context.Context) (Data, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := t.load(ctx)
	if err != nil {
		log.WithError(err).Errorf("failed to read cache database %s", t.path)
		return Data{}, nil
	}
	return data, nil
}

func (t *TableStore) load(ctx context.Context) (Data, error) {
	db, err := t.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	data := make(Data, len(names))
	for _, name := range names {
		entries, err := readTable(ctx, db, name)
		if err != nil {
			return nil, err
		}
		data[name] = entries
	}
	return data, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

func readTable(ctx context.Context, db *sql.DB, name string) (map[string]Entry, error) {
	rows, err := db.QueryContext(ctx, `SELECT path, mtime, value FROM `+quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", name, err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var (
			title string
			mtime sql.NullFloat64
			value sql.NullString
		)
		if err := rows.Scan(&title, &mtime, &value); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", name, err)
		}
		if !value.Valid || !json.Valid([]byte(value.String)) {
			log.Warnf("skipping unreadable cache row %s/%s", name, title)
			continue
		}
		entries[title] = Entry{MTime: mtime.Float64, Value: json.RawMessage(value.String)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", name, err)
	}
	return entries, nil
}

// EnsureSection creates the subsection's table if it does not exist yet.
func (t *TableStore) EnsureSection(ctx context.Context, subsection string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	db, err := t.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createTableSQL(subsection)); err != nil {
		return fmt.Errorf("create table %s: %w", subsection, err)
	}
	return nil
}

// Record upserts one entry inside a transaction.
func (t *TableStore) Record(ctx context.Context, subsection, title string, e Entry) error {
	return t.Write(ctx, Data{subsection: {title: e}})
}

// Write upserts every entry in data, one transaction per subsection, creating
// tables as needed.
func (t *TableStore) Write(ctx context.Context, data Data) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	db, err := t.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	for name, entries := range data {
		if err := upsert(ctx, db, name, entries); err != nil {
			return err
		}
	}
	return nil
}

func upsert(ctx context.Context, db *sql.DB, subsection string, entries map[string]Entry) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", subsection, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, createTableSQL(subsection)); err != nil {
		return fmt.Errorf("create table %s: %w", subsection, err)
	}

	stmt := `INSERT OR REPLACE INTO ` + quoteIdent(subsection) + ` (path, mtime, value) VALUES (?, ?, ?)`
	for title, e := range entries {
		if _, err = tx.ExecContext(ctx, stmt, title, e.MTime, string(e.Value)); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", subsection, title, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", subsection, err)
	}
	return nil
}

func createTableSQL(subsection string) string {
	return `CREATE TABLE IF NOT EXISTS ` + quoteIdent(subsection) +
		` (path TEXT PRIMARY KEY, mtime REAL, value TEXT)`
}

// quoteIdent quotes a subsection name for use as a SQLite table name.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (t *TableStore) Attach(Source) {}

func (t *TableStore) Close(context.Context) error { return nil }
