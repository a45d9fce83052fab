// Package playlistdb is the stored-playlist persistence layer
// (spec.md's supplemented "stored playlist" feature set: listplaylists,
// listplaylist, load, save, rm, rename, playlistadd, playlistclear,
// playlistdelete, playlistmove). It follows the same SQLite
// migration-slice pattern internal/stickerdb uses.
package playlistdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS playlists (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_entries (
		playlist TEXT NOT NULL REFERENCES playlists(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		uri TEXT NOT NULL,
		PRIMARY KEY (playlist, position)
	)`,
}

// Store is the stored-playlist database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite-backed playlist store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open playlist db: %w", err)
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
			return fmt.Errorf("apply playlist migration %d: %w", i+1, err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("record playlist migration %d: %w", i+1, err)
		}
	}
	slog.Debug("playlist db migrated", "applied", len(migrations)-applied)
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Names returns every stored playlist name, alphabetically.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM playlists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan playlist name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Contents returns the ordered URI list of name, or an error if name does
// not exist.
func (s *Store) Contents(ctx context.Context, name string) ([]string, error) {
	if !s.exists(ctx, name) {
		return nil, fmt.Errorf("no such playlist %q", name)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT uri FROM playlist_entries WHERE playlist=? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("list playlist contents: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("scan playlist entry: %w", err)
		}
		out = append(out, uri)
	}
	return out, rows.Err()
}

func (s *Store) exists(ctx context.Context, name string) bool {
	var n int
	_ = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlists WHERE name=?`, name).Scan(&n)
	return n > 0
}

// Save replaces (or creates) name's contents with uris, in order.
func (s *Store) Save(ctx context.Context, name string, uris []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save playlist tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO playlists(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert playlist row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_entries WHERE playlist=?`, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear playlist entries: %w", err)
	}
	for i, uri := range uris {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_entries(playlist, position, uri) VALUES (?,?,?)`, name, i, uri); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert playlist entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save playlist tx: %w", err)
	}
	return nil
}

// Append adds uri to the end of name, creating name if it doesn't exist.
func (s *Store) Append(ctx context.Context, name, uri string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append playlist tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO playlists(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert playlist row: %w", err)
	}
	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position)+1, 0) FROM playlist_entries WHERE playlist=?`, name).Scan(&next); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("compute next position: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO playlist_entries(playlist, position, uri) VALUES (?,?,?)`, name, next, uri); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("append playlist entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append playlist tx: %w", err)
	}
	return nil
}

// Clear removes every entry of name without deleting the playlist itself.
func (s *Store) Clear(ctx context.Context, name string) error {
	if !s.exists(ctx, name) {
		return fmt.Errorf("no such playlist %q", name)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM playlist_entries WHERE playlist=?`, name); err != nil {
		return fmt.Errorf("clear playlist: %w", err)
	}
	return nil
}

// Remove deletes name and its entries entirely.
func (s *Store) Remove(ctx context.Context, name string) error {
	if !s.exists(ctx, name) {
		return fmt.Errorf("no such playlist %q", name)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE name=?`, name); err != nil {
		return fmt.Errorf("remove playlist: %w", err)
	}
	return nil
}

// Rename renames oldName to newName.
func (s *Store) Rename(ctx context.Context, oldName, newName string) error {
	if !s.exists(ctx, oldName) {
		return fmt.Errorf("no such playlist %q", oldName)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE playlists SET name=? WHERE name=?`, newName, oldName); err != nil {
		return fmt.Errorf("rename playlist: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE playlist_entries SET playlist=? WHERE playlist=?`, newName, oldName); err != nil {
		return fmt.Errorf("rename playlist entries: %w", err)
	}
	return nil
}

// DeletePos removes the entry at pos from name, shifting later entries
// down by one.
func (s *Store) DeletePos(ctx context.Context, name string, pos int) error {
	uris, err := s.Contents(ctx, name)
	if err != nil {
		return err
	}
	if pos < 0 || pos >= len(uris) {
		return fmt.Errorf("no such song at position %d", pos)
	}
	uris = append(uris[:pos], uris[pos+1:]...)
	return s.Save(ctx, name, uris)
}

// Move moves the entry at from to to within name.
func (s *Store) Move(ctx context.Context, name string, from, to int) error {
	uris, err := s.Contents(ctx, name)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(uris) || to < 0 || to >= len(uris) {
		return fmt.Errorf("bad position")
	}
	item := uris[from]
	uris = append(uris[:from], uris[from+1:]...)
	uris = append(uris[:to], append([]string{item}, uris[to:]...)...)
	return s.Save(ctx, name, uris)
}
