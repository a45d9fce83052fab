// Package database defines the Database trait spec.md §1/§3 treats as an
// external collaborator: the core only consumes lookup/visit/stats/update
// operations. The on-disk index and tag extraction are explicitly out of
// scope; this package supplies the interface boundary plus an in-memory
// implementation for tests and the sticker-cleanup reconciliation path
// (spec.md §4.8).
package database

import "context"

// Song is the minimal song record the core needs: enough to drive
// SongFilter matching for sticker cleanup and `find`/`search`/`count`.
type Song struct {
	URI      string
	Tags     map[string]string // e.g. "Artist", "Title", "Album"
	Duration float64           // seconds

	// ArtData holds embedded album-art bytes for albumart/readpicture,
	// when known. Real art extraction is out of scope; this lets a
	// Database implementation (or test fixture) attach bytes directly.
	ArtData []byte
}

// Filter selects songs by (type, value) pairs, ANDed together. An empty
// filter (no conditions) is considered invalid for sticker-cleanup
// purposes per spec.md §4.8 step 2 ("empty-valid... drop the pair").
type Filter struct {
	Conditions map[string]string

	// All matches every song regardless of Conditions, for the
	// list/listall/lsinfo family which has no tag filter of its own.
	All bool
}

// Valid reports whether the filter has at least one condition, or is
// explicitly an All match.
func (f Filter) Valid() bool { return f.All || len(f.Conditions) > 0 }

// Stats summarizes the database for the `stats` command.
type Stats struct {
	Artists    int
	Albums     int
	Songs      int
	UptimeSec  int64
	DBPlaytime float64
	DBUpdate   int64
}

// Database is the trait object the core depends on (spec.md §1, §3).
// Implementations own their own internal locking; the core holds no locks
// across suspension points when calling it (spec.md §5).
type Database interface {
	// Lookup returns the song for a URI, or ok=false if not indexed.
	Lookup(ctx context.Context, uri string) (Song, bool, error)
	// Visit calls fn for every song matching filter, stopping early if fn
	// returns false.
	Visit(ctx context.Context, filter Filter, fn func(Song) bool) error
	// CountMatches reports how many songs filter matches, without
	// materializing the result set — used by the count command and by
	// internal/stickercleanup.
	CountMatches(ctx context.Context, filter Filter) (int, error)
	Stats(ctx context.Context) (Stats, error)
	// Update triggers a rescan (update/rescan commands); returns a job id.
	Update(ctx context.Context, path string, rescan bool) (uint32, error)
}

// Memory is an in-memory Database for tests and for standalone operation
// without a configured music directory.
type Memory struct {
	songs map[string]Song
	job   uint32
}

// NewMemory builds a Memory database seeded with songs.
func NewMemory(songs ...Song) *Memory {
	m := &Memory{songs: make(map[string]Song, len(songs))}
	for _, s := range songs {
		m.songs[s.URI] = s
	}
	return m
}

func (m *Memory) Lookup(_ context.Context, uri string) (Song, bool, error) {
	s, ok := m.songs[uri]
	return s, ok, nil
}

func (m *Memory) Visit(_ context.Context, filter Filter, fn func(Song) bool) error {
	for _, s := range m.songs {
		if matches(s, filter) {
			if !fn(s) {
				return nil
			}
		}
	}
	return nil
}

func (m *Memory) CountMatches(_ context.Context, filter Filter) (int, error) {
	if !filter.Valid() {
		return 0, nil
	}
	n := 0
	for _, s := range m.songs {
		if matches(s, filter) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	return Stats{Songs: len(m.songs)}, nil
}

func (m *Memory) Update(_ context.Context, _ string, _ bool) (uint32, error) {
	m.job++
	return m.job, nil
}

// Put inserts or replaces a song, for test setup.
func (m *Memory) Put(s Song) { m.songs[s.URI] = s }

// Remove deletes a song by URI, for test setup.
func (m *Memory) Remove(uri string) { delete(m.songs, uri) }

func matches(s Song, f Filter) bool {
	if !f.Valid() {
		return false
	}
	if f.All {
		return true
	}
	for k, v := range f.Conditions {
		if k == "uri" {
			if s.URI != v {
				return false
			}
			continue
		}
		if s.Tags[k] != v {
			return false
		}
	}
	return true
}
