// Package partition implements the independent playback universe described
// in spec.md §3 (Partition) and §4.5: a queue, a player handle, an output
// set, policy state, and the client list and idle monitors that let
// mutations reach attached sessions.
package partition

import (
	"errors"
	"sync"
	"time"

	"github.com/bken/audiompd/internal/idle"
	"github.com/bken/audiompd/internal/output"
	"github.com/bken/audiompd/internal/player"
	"github.com/bken/audiompd/internal/queue"
)

var (
	// ErrNotEmpty is returned by Partition.Deletable checks (wired by
	// internal/instance.DeletePartition) when a partition still has
	// attached clients or non-dummy outputs (spec.md §5).
	ErrNotEmpty = errors.New("partition not empty")
)

// Client is the minimal surface a Partition needs from an attached
// ClientSession: enough to deliver idle notifications and count/evict
// members without importing internal/session (which imports this
// package's PartitionView-satisfying methods, not the other way; a
// plain interface here avoids the cycle — spec.md §9's intrusive-list
// guidance: "model as two membership handles each carrying a stable
// session identifier").
type Client interface {
	SessionID() uint64
	NotifyIdle(kind idle.Kind)
}

// Partition is one independent playback universe (spec.md §3).
type Partition struct {
	name string

	queue   *queue.Queue
	player  player.Control
	outputs *output.Set

	mu             sync.RWMutex
	random         bool
	repeat         bool
	single         bool
	consume        bool
	crossfade      time.Duration
	mixRampDB      float64
	mixRampDelay   time.Duration
	replayGainMode player.ReplayGainMode

	// IdleLocal carries the 14 IdleKind bits (spec.md §4.2); GlobalEvents
	// carries the sync/tag-modified/border-pause signals a player thread
	// raises via on_player_sync et al. Both are started by New and run on
	// their own goroutine for the partition's lifetime.
	IdleLocal    *idle.Monitor
	GlobalEvents *idle.Monitor

	clientsMu sync.Mutex
	clients   map[uint64]Client
}

// New creates a Partition named name with the given queue capacity (0 =
// default), an in-memory player and an empty output set. The caller must
// call Close when the partition is deleted or the server shuts down, to
// stop the idle-monitor goroutines.
func New(name string, maxQueueLen int) *Partition {
	p := &Partition{
		name:           name,
		queue:          queue.New(maxQueueLen),
		player:         player.NewSimple(),
		outputs:        output.NewSet(),
		mixRampDB:      -17,
		replayGainMode: player.ReplayGainOff,
		clients:        make(map[uint64]Client),
	}
	p.IdleLocal = idle.NewMonitor(p.dispatchLocal)
	p.GlobalEvents = idle.NewMonitor(p.dispatchGlobal)
	go p.IdleLocal.Run()
	go p.GlobalEvents.Run()
	return p
}

// Close stops the partition's idle-monitor goroutines. Safe to call once.
func (p *Partition) Close() {
	p.IdleLocal.Close()
	p.GlobalEvents.Close()
}

func (p *Partition) dispatchLocal(mask idle.Kind) {
	p.clientsMu.Lock()
	clients := make([]Client, 0, len(p.clients))
	for _, c := range p.clients {
		clients = append(clients, c)
	}
	p.clientsMu.Unlock()
	for _, c := range clients {
		c.NotifyIdle(mask)
	}
}

// dispatchGlobal reconciles sync/tag-modified/border-pause events with the
// queue's notion of "current" (spec.md §4.5 sync_with_player). The player
// callbacks that raise these bits are opaque per spec.md §1; this handler
// is the seam where a real PlayerControl implementation would plug in
// prefetch-of-next-entry triggering.
func (p *Partition) dispatchGlobal(mask idle.Kind) {
	// No-op: with the in-memory player.Simple
	// used by this repo's test/standalone configuration, "current" is
	// already tracked directly on queue.Queue by the command handlers
	// (play/playid/next/previous). A real decoder-backed PlayerControl
	// would call p.queue.SetCurrentPosition from here.
}

// Name returns the partition's name.
func (p *Partition) Name() string { return p.name }

// Queue returns the partition's queue.
func (p *Partition) Queue() *queue.Queue { return p.queue }

// Player returns the partition's player control handle.
func (p *Partition) Player() player.Control { return p.player }

// Outputs returns the partition's output set.
func (p *Partition) Outputs() *output.Set { return p.outputs }

func (p *Partition) Random() bool     { p.mu.RLock(); defer p.mu.RUnlock(); return p.random }
func (p *Partition) SetRandom(b bool) { p.mu.Lock(); p.random = b; p.mu.Unlock() }
func (p *Partition) Repeat() bool     { p.mu.RLock(); defer p.mu.RUnlock(); return p.repeat }
func (p *Partition) SetRepeat(b bool) { p.mu.Lock(); p.repeat = b; p.mu.Unlock() }
func (p *Partition) Single() bool     { p.mu.RLock(); defer p.mu.RUnlock(); return p.single }
func (p *Partition) SetSingle(b bool) { p.mu.Lock(); p.single = b; p.mu.Unlock() }
func (p *Partition) Consume() bool     { p.mu.RLock(); defer p.mu.RUnlock(); return p.consume }
func (p *Partition) SetConsume(b bool) { p.mu.Lock(); p.consume = b; p.mu.Unlock() }

func (p *Partition) Crossfade() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.crossfade
}
func (p *Partition) SetCrossfade(d time.Duration) { p.mu.Lock(); p.crossfade = d; p.mu.Unlock() }

func (p *Partition) MixRampDB() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mixRampDB
}
func (p *Partition) SetMixRampDB(db float64) { p.mu.Lock(); p.mixRampDB = db; p.mu.Unlock() }

func (p *Partition) MixRampDelay() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mixRampDelay
}
func (p *Partition) SetMixRampDelay(d time.Duration) { p.mu.Lock(); p.mixRampDelay = d; p.mu.Unlock() }

func (p *Partition) ReplayGainMode() player.ReplayGainMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.replayGainMode
}
func (p *Partition) SetReplayGainMode(m player.ReplayGainMode) {
	p.mu.Lock()
	p.replayGainMode = m
	p.mu.Unlock()
}

// Broadcast raises bits in the partition's local idle mask (spec.md §4.2).
// Safe from any goroutine.
func (p *Partition) Broadcast(kind idle.Kind) {
	p.IdleLocal.OrMask(kind)
}

// Attach registers c as attached to this partition (spec.md §3 "clients:
// intrusive list of ClientSessions currently attached").
func (p *Partition) Attach(c Client) {
	p.clientsMu.Lock()
	p.clients[c.SessionID()] = c
	p.clientsMu.Unlock()
}

// Detach removes c from this partition's client list.
func (p *Partition) Detach(c Client) {
	p.clientsMu.Lock()
	delete(p.clients, c.SessionID())
	p.clientsMu.Unlock()
}

// ClientCount returns the number of sessions currently attached.
func (p *Partition) ClientCount() int {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	return len(p.clients)
}

// Deletable reports whether this partition may be deleted: empty client
// list and every output dummy or absent (spec.md §5).
func (p *Partition) Deletable() bool {
	return p.ClientCount() == 0 && p.outputs.AllDummyOrEmpty()
}

// SendMessage delivers message to every session in this partition
// subscribed to channel, returning the recipient count (spec.md §4.3).
// SendMessage itself only fans the payload out to members of THIS
// partition; internal/command's cmdSendMessage loops this over every
// partition in the Instance, matching spec.md's "subscribe" being
// partition-agnostic (channels are a cross-partition namespace).
func (p *Partition) SendMessage(channel, message string) int {
	p.clientsMu.Lock()
	clients := make([]Client, 0, len(p.clients))
	for _, c := range p.clients {
		clients = append(clients, c)
	}
	p.clientsMu.Unlock()

	n := 0
	for _, c := range clients {
		if d, ok := c.(interface{ Deliver(channel, message string) bool }); ok {
			if d.Deliver(channel, message) {
				n++
			}
		}
	}
	return n
}
