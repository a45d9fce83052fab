// Package queue implements the ordered playback queue described in
// spec.md §3 (QueueEntry) and §4.5 (queue operations), including the
// version-counter and id-stability invariants checked in §8.
package queue

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	ErrBadRange    = errors.New("bad range")
	ErrNoSuchID    = errors.New("no such song id")
	ErrNoSuchPos   = errors.New("no such song position")
	ErrPlaylistMax = errors.New("playlist full")
)

// SongTime is a position within a track, matching spec.md's SongTime
// argument kind (non-negative float seconds are parsed into this by the
// command layer; the queue only stores the already-validated value).
type SongTime float64

// Range is a half-open [Start, End) window; End == -1 means "to the end".
type Range struct {
	Start int
	End   int
}

// Entry is one QueueEntry (spec.md §3).
type Entry struct {
	ID                   uint32
	Position             int
	URI                  string
	Tag                  string
	Priority             uint8
	HasRange             bool
	RangeStart, RangeEnd SongTime
	LastPlayedGeneration uint64
	version              uint64 // version this entry was last mutated at
}

// Queue is a finite ordered sequence of Entry with a monotonically
// increasing version counter (spec.md §3, §4.5, §8.3/§8.4).
type Queue struct {
	entries    []*Entry
	byID       map[uint32]*Entry
	nextID     uint32
	version    uint64
	maxLength  int // spec.md §9: addAllIn has no bound in the older sources; enforce max_playlist_length explicitly
	currentPos int // -1 if nothing current
}

// New creates an empty queue bounded to maxLength entries (0 = default 16384,
// matching the historical MPD default).
func New(maxLength int) *Queue {
	if maxLength <= 0 {
		maxLength = 16384
	}
	return &Queue{
		byID:       make(map[uint32]*Entry),
		maxLength:  maxLength,
		currentPos: -1,
	}
}

// Version returns the current version counter.
func (q *Queue) Version() uint64 { return q.version }

// Len returns the number of entries.
func (q *Queue) Len() int { return len(q.entries) }

// bump increments the version counter; called by every mutation.
func (q *Queue) bump() { q.version++ }

// assertConsistent re-derives positions as a sanity check; used only by
// tests, kept here so it stays next to the invariant it verifies
// (spec.md §8.3: positions are always a permutation of [0, len)).
func (q *Queue) assertConsistent() error {
	for i, e := range q.entries {
		if e.Position != i {
			return fmt.Errorf("entry id %d at index %d has stale position %d", e.ID, i, e.Position)
		}
	}
	return nil
}

func (q *Queue) renumber() {
	for i, e := range q.entries {
		e.Position = i
	}
}

// Append adds uri to the end of the queue, returning the new entry's id.
func (q *Queue) Append(uri string) (uint32, error) {
	return q.AppendTagged(uri, "")
}

// AppendTagged is Append plus an opaque client-supplied tag (addid's
// optional tag argument analogue and prefetch/tag-projection plumbing).
func (q *Queue) AppendTagged(uri, tag string) (uint32, error) {
	if len(q.entries) >= q.maxLength {
		return 0, ErrPlaylistMax
	}
	q.nextID++
	id := q.nextID
	e := &Entry{
		ID:       id,
		Position: len(q.entries),
		URI:      uri,
		Tag:      tag,
		version:  q.version + 1,
	}
	q.entries = append(q.entries, e)
	q.byID[id] = e
	q.bump()
	return id, nil
}

// InsertAt inserts uri at position pos (0 <= pos <= Len()), returning the
// new entry's id. Used by addid's optional position argument.
func (q *Queue) InsertAt(uri string, pos int) (uint32, error) {
	if pos < 0 || pos > len(q.entries) {
		return 0, ErrBadRange
	}
	if len(q.entries) >= q.maxLength {
		return 0, ErrPlaylistMax
	}
	q.nextID++
	id := q.nextID
	e := &Entry{ID: id, URI: uri, version: q.version + 1}
	q.entries = append(q.entries, nil)
	copy(q.entries[pos+1:], q.entries[pos:])
	q.entries[pos] = e
	q.byID[id] = e
	q.renumber()
	if q.currentPos >= pos {
		q.currentPos++
	}
	q.bump()
	return id, nil
}

// DeletePosition removes the entry at position i.
func (q *Queue) DeletePosition(i int) error {
	if i < 0 || i >= len(q.entries) {
		return ErrNoSuchPos
	}
	return q.deleteIndex(i)
}

// DeleteID removes the entry with the given id.
func (q *Queue) DeleteID(id uint32) error {
	e, ok := q.byID[id]
	if !ok {
		return ErrNoSuchID
	}
	return q.deleteIndex(e.Position)
}

// DeleteRange removes all entries in [r.Start, r.End).
func (q *Queue) DeleteRange(r Range) error {
	start, end, err := q.resolveRange(r)
	if err != nil {
		return err
	}
	// Delete from the back so earlier indices stay valid.
	for i := end - 1; i >= start; i-- {
		if err := q.deleteIndex(i); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) deleteIndex(i int) error {
	e := q.entries[i]
	delete(q.byID, e.ID)
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.renumber()
	switch {
	case q.currentPos == i:
		q.currentPos = -1 // advance policy (consume/single/repeat) is decided by the player layer
	case q.currentPos > i:
		q.currentPos--
	}
	q.bump()
	return nil
}

func (q *Queue) resolveRange(r Range) (start, end int, err error) {
	start = r.Start
	end = r.End
	if end == -1 {
		end = len(q.entries)
	}
	if start < 0 || start > len(q.entries) || end < start || end > len(q.entries) {
		return 0, 0, ErrBadRange
	}
	return start, end, nil
}

// MoveRange moves the contiguous slice [r.Start, r.End) so that it starts at
// dest, preserving the relative order of both the moved and non-moved
// entries (spec.md §4.5).
func (q *Queue) MoveRange(r Range, dest int) error {
	start, end, err := q.resolveRange(r)
	if err != nil {
		return err
	}
	if dest < 0 || dest > len(q.entries) {
		return ErrBadRange
	}
	moving := append([]*Entry{}, q.entries[start:end]...)
	rest := append([]*Entry{}, q.entries[:start]...)
	rest = append(rest, q.entries[end:]...)

	// dest was expressed against the original sequence; translate it into
	// an offset within rest (the sequence with the moved block removed).
	destInRest := dest
	if dest > start {
		destInRest -= end - start
		if destInRest < 0 {
			destInRest = 0
		}
	}
	if destInRest > len(rest) {
		destInRest = len(rest)
	}

	out := append([]*Entry{}, rest[:destInRest]...)
	out = append(out, moving...)
	out = append(out, rest[destInRest:]...)
	q.entries = out
	q.renumber()
	q.bump()
	return nil
}

// SwapPositions swaps the entries at positions a and b.
func (q *Queue) SwapPositions(a, b int) error {
	if a < 0 || a >= len(q.entries) || b < 0 || b >= len(q.entries) {
		return ErrBadRange
	}
	q.entries[a], q.entries[b] = q.entries[b], q.entries[a]
	q.entries[a].Position, q.entries[b].Position = a, b
	if q.currentPos == a {
		q.currentPos = b
	} else if q.currentPos == b {
		q.currentPos = a
	}
	q.bump()
	return nil
}

// SwapIDs swaps the two entries with the given ids.
func (q *Queue) SwapIDs(a, b uint32) error {
	ea, ok := q.byID[a]
	if !ok {
		return ErrNoSuchID
	}
	eb, ok := q.byID[b]
	if !ok {
		return ErrNoSuchID
	}
	return q.SwapPositions(ea.Position, eb.Position)
}

// Shuffle performs a Fisher-Yates shuffle over r (spec.md §4.5).
func (q *Queue) Shuffle(r Range) error {
	start, end, err := q.resolveRange(r)
	if err != nil {
		return err
	}
	for i := end - 1; i > start; i-- {
		j := start + rand.IntN(i-start+1)
		q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	}
	q.renumber()
	q.bump()
	return nil
}

// SetPriorityRange sets the priority (0-255) of every entry in r.
func (q *Queue) SetPriorityRange(r Range, priority uint8) error {
	start, end, err := q.resolveRange(r)
	if err != nil {
		return err
	}
	for i := start; i < end; i++ {
		q.entries[i].Priority = priority
		q.entries[i].version = q.version + 1
	}
	q.bump()
	return nil
}

// SetPriorityID sets the priority of a single entry by id.
func (q *Queue) SetPriorityID(id uint32, priority uint8) error {
	e, ok := q.byID[id]
	if !ok {
		return ErrNoSuchID
	}
	e.Priority = priority
	e.version = q.version + 1
	q.bump()
	return nil
}

// SetTagID sets (or, with tag == "", clears) the override tag of a
// single entry by id (addtagid/cleartagid).
func (q *Queue) SetTagID(id uint32, tag string) error {
	e, ok := q.byID[id]
	if !ok {
		return ErrNoSuchID
	}
	e.Tag = tag
	e.version = q.version + 1
	q.bump()
	return nil
}

// RangeID sets the intra-track play window [start,end) for an entry; an
// empty window (start==end==0) means "full song".
func (q *Queue) RangeID(id uint32, start, end SongTime) error {
	e, ok := q.byID[id]
	if !ok {
		return ErrNoSuchID
	}
	if start == 0 && end == 0 {
		e.HasRange = false
		e.RangeStart, e.RangeEnd = 0, 0
	} else {
		e.HasRange = true
		e.RangeStart, e.RangeEnd = start, end
	}
	e.version = q.version + 1
	q.bump()
	return nil
}

// AtPosition returns the entry at position i, or nil.
func (q *Queue) AtPosition(i int) *Entry {
	if i < 0 || i >= len(q.entries) {
		return nil
	}
	return q.entries[i]
}

// ByID returns the entry with the given id, or nil.
func (q *Queue) ByID(id uint32) *Entry {
	return q.byID[id]
}

// All returns a snapshot slice of every entry in positional order.
func (q *Queue) All() []*Entry {
	out := make([]*Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.entries = nil
	q.byID = make(map[uint32]*Entry)
	q.currentPos = -1
	q.bump()
}

// CurrentPosition returns the playing/selected position, or -1 if none.
func (q *Queue) CurrentPosition() int { return q.currentPos }

// SetCurrentPosition sets the playing/selected position (-1 for none).
// Called by the player-control integration (play/playid/next/previous).
func (q *Queue) SetCurrentPosition(pos int) error {
	if pos != -1 && (pos < 0 || pos >= len(q.entries)) {
		return ErrNoSuchPos
	}
	q.currentPos = pos
	return nil
}

// Changes returns entries whose version is greater than since, i.e. the
// result of plchanges(since) (spec.md §4.5, §8.4), optionally windowed by
// r (pass Range{0,-1} for no window).
func (q *Queue) Changes(since uint64, r Range) ([]*Entry, error) {
	start, end, err := q.resolveRange(r)
	if err != nil {
		return nil, err
	}
	var out []*Entry
	for i := start; i < end; i++ {
		if q.entries[i].version > since {
			out = append(out, q.entries[i])
		}
	}
	return out, nil
}
