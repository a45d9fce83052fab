// Package idle implements the coalesced change-notification bus described
// in spec.md §4.2: a bitmask of well-known change kinds that can be OR'd in
// from any goroutine and is dispatched, coalesced, on a single owning
// goroutine.
package idle

import "sync/atomic"

// Kind is one of the 14 well-known change kinds (spec.md §3, IdleKind).
type Kind uint32

const (
	Database Kind = 1 << iota
	StoredPlaylist
	Playlist
	Player
	Mixer
	Output
	Options
	Sticker
	Update
	Subscription
	Message
	Neighbor
	Mount
	Partition

	// All is the OR of every known kind; used as the default idle
	// subscription set for a session that issues a bare "idle".
	All = Database | StoredPlaylist | Playlist | Player | Mixer | Output |
		Options | Sticker | Update | Subscription | Message | Neighbor |
		Mount | Partition
)

var names = []struct {
	bit  Kind
	name string
}{
	{Database, "database"},
	{StoredPlaylist, "stored_playlist"},
	{Playlist, "playlist"},
	{Player, "player"},
	{Mixer, "mixer"},
	{Output, "output"},
	{Options, "options"},
	{Sticker, "sticker"},
	{Update, "update"},
	{Subscription, "subscription"},
	{Message, "message"},
	{Neighbor, "neighbor"},
	{Mount, "mount"},
	{Partition, "partition"},
}

// Names returns the "changed: NAME" names of every set bit in mask, in the
// canonical order above.
func Names(mask Kind) []string {
	var out []string
	for _, n := range names {
		if mask&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

// ParseName returns the bit for a channel name, and whether it was recognised.
func ParseName(name string) (Kind, bool) {
	for _, n := range names {
		if n.name == name {
			return n.bit, true
		}
	}
	return 0, false
}

// Monitor coalesces OrMask calls from any goroutine into a single dispatch
// on whatever goroutine calls Run. It satisfies spec.md §4.2 and
// the no-lost-bit law in §8.2: every OrMask call is guaranteed a subsequent
// Handler invocation whose snapshot includes the bits it set, unless the
// monitor has been closed first.
type Monitor struct {
	mask    atomic.Uint32
	pending chan struct{} // capacity 1; a token means a dispatch is scheduled
	handler func(Kind)
	done    chan struct{}
}

// NewMonitor creates a monitor that calls handler, on the goroutine that
// calls Run, whenever bits are OR'd in via OrMask.
func NewMonitor(handler func(Kind)) *Monitor {
	return &Monitor{
		pending: make(chan struct{}, 1),
		handler: handler,
		done:    make(chan struct{}),
	}
}

// OrMask atomically merges bits into the pending mask. Safe from any
// goroutine. If this call transitions the mask from zero, it schedules
// exactly one future dispatch; if a dispatch is already scheduled (or in
// flight), this call's bits are folded into that same dispatch or the next
// one — coalescing per spec.md §4.2.
func (m *Monitor) OrMask(bits Kind) {
	if bits == 0 {
		return
	}
	m.mask.Or(uint32(bits))
	select {
	case m.pending <- struct{}{}:
	default:
		// A dispatch is already pending; our bits will be picked up by it
		// (or, if it already read-and-cleared, by the next one we just
		// failed to schedule — but OrMask above already re-set the bits,
		// so the in-flight handler call, if it hasn't snapshotted yet,
		// will see them; if it has, the next token will fire).
	}
}

// Run blocks, invoking handler every time OrMask has set new bits, until
// Close is called. Intended to be run on the owning goroutine (the
// EventLoop thread in spec.md's terms).
func (m *Monitor) Run() {
	for {
		select {
		case <-m.pending:
			snapshot := Kind(m.mask.Swap(0))
			if snapshot != 0 {
				m.handler(snapshot)
			}
		case <-m.done:
			return
		}
	}
}

// Close stops Run and releases any goroutine blocked inside it. After
// Close, OrMask calls are no longer guaranteed to dispatch.
func (m *Monitor) Close() {
	close(m.done)
}
