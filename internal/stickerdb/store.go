// Package stickerdb is the key/value sticker store spec.md §3/§4.8
// describes as "opaque": a (type, uri, name, value) tuple store, backed
// by SQLite using the same migration-slice pattern the teacher's
// store/store.go applies to settings and channels.
package stickerdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// migrations holds the ordered list of DDL statements that bring the
// schema up to date. Index i corresponds to version i+1. To add a
// migration, append a new string — never edit or reorder existing entries.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stickers (
		type  TEXT NOT NULL,
		uri   TEXT NOT NULL,
		name  TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (type, uri, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stickers_type_uri ON stickers(type, uri)`,
}

// Store is the sticker key/value store. Per spec.md §5, the cleanup
// worker opens its own connection rather than sharing this one.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite-backed sticker store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sticker db: %w", err)
	}
	st := &Store{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var applied int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for i := applied; i < len(migrations); i++ {
		if _, err := s.db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply sticker migration %d: %w", i+1, err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("record sticker migration %d: %w", i+1, err)
		}
	}
	slog.Debug("sticker db migrated", "applied", len(migrations)-applied)
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the value for (type, uri, name).
func (s *Store) Get(ctx context.Context, typ, uri, name string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM stickers WHERE type=? AND uri=? AND name=?`, typ, uri, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get sticker: %w", err)
	}
	return value, true, nil
}

// Set upserts (type, uri, name) -> value.
func (s *Store) Set(ctx context.Context, typ, uri, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stickers(type, uri, name, value) VALUES (?,?,?,?)
		 ON CONFLICT(type, uri, name) DO UPDATE SET value=excluded.value`,
		typ, uri, name, value)
	if err != nil {
		return fmt.Errorf("set sticker: %w", err)
	}
	return nil
}

// Delete removes one sticker name, or every sticker for (type, uri) if
// name is empty.
func (s *Store) Delete(ctx context.Context, typ, uri, name string) error {
	var err error
	if name == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM stickers WHERE type=? AND uri=?`, typ, uri)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM stickers WHERE type=? AND uri=? AND name=?`, typ, uri, name)
	}
	if err != nil {
		return fmt.Errorf("delete sticker: %w", err)
	}
	return nil
}

// List returns every (name, value) pair for (type, uri).
func (s *Store) List(ctx context.Context, typ, uri string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM stickers WHERE type=? AND uri=?`, typ, uri)
	if err != nil {
		return nil, fmt.Errorf("list stickers: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan sticker row: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// Find returns every uri under type whose sticker name's value matches op
// against compareValue; op is one of "=", "<", ">" (the historical
// `sticker find` comparison operators).
func (s *Store) Find(ctx context.Context, typ, name, op, compareValue string) (map[string]string, error) {
	var cmp string
	switch op {
	case "", "=", "eq":
		cmp = "="
	case "<", "lt":
		cmp = "<"
	case ">", "gt":
		cmp = ">"
	default:
		return nil, fmt.Errorf("unsupported sticker comparison operator %q", op)
	}
	q := fmt.Sprintf(`SELECT uri, value FROM stickers WHERE type=? AND name=? AND value %s ?`, cmp)
	rows, err := s.db.QueryContext(ctx, q, typ, name, compareValue)
	if err != nil {
		return nil, fmt.Errorf("find stickers: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var uri, value string
		if err := rows.Scan(&uri, &value); err != nil {
			return nil, fmt.Errorf("scan sticker find row: %w", err)
		}
		out[uri] = value
	}
	return out, rows.Err()
}

// UniquePairs returns every distinct (type, uri) pair currently stored —
// the snapshot the cleanup worker reconciles against the Database
// (spec.md §4.8 step 1).
func (s *Store) UniquePairs(ctx context.Context) ([]Pair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT type, uri FROM stickers`)
	if err != nil {
		return nil, fmt.Errorf("unique sticker pairs: %w", err)
	}
	defer rows.Close()
	var out []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.Type, &p.URI); err != nil {
			return nil, fmt.Errorf("scan sticker pair: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Pair identifies the stickers attached to one (type, uri).
type Pair struct {
	Type string
	URI  string
}

// DeleteBatch deletes every pair in batch inside one transaction, rolling
// back on any error (spec.md §4.8 step 2 batching rule).
func (s *Store) DeleteBatch(ctx context.Context, batch []Pair) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sticker cleanup tx: %w", err)
	}
	for _, p := range batch {
		if _, err := tx.ExecContext(ctx, `DELETE FROM stickers WHERE type=? AND uri=?`, p.Type, p.URI); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete sticker pair %s/%s: %w", p.Type, p.URI, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sticker cleanup tx: %w", err)
	}
	return nil
}
