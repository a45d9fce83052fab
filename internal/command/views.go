package command

import (
	"time"

	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/idle"
	"github.com/bken/audiompd/internal/output"
	"github.com/bken/audiompd/internal/player"
	"github.com/bken/audiompd/internal/queue"
)

// SessionView, PartitionView, and InstanceView are the seams between
// this package and internal/session, internal/partition, and
// internal/instance. Those packages implement these interfaces
// structurally; command never imports them, which keeps the dependency
// arrow pointing one way (session -> command) and avoids a cycle.
type SessionView interface {
	Permission() Permission
	SetPermission(Permission)
	Partition() PartitionView
	Instance() InstanceView

	BinaryLimit() int
	SetBinaryLimit(int)

	Subscribe(channel string) error
	Unsubscribe(channel string) error
	Channels() []string
	ReadMessages() []SessionMessage
	TagTypesEnabled() []string

	// MovePartition migrates this session to the named partition
	// (spec.md "Partition migration").
	MovePartition(name string) error
}

// SessionMessage is one queued client/server message (spec.md §4.3
// "max 64 queued messages").
type SessionMessage struct {
	Channel string
	Message string
}

// PartitionView is the per-Partition surface commands operate on.
type PartitionView interface {
	Name() string
	Queue() *queue.Queue
	Player() player.Control
	Outputs() *output.Set

	Random() bool
	SetRandom(bool)
	Repeat() bool
	SetRepeat(bool)
	Single() bool
	SetSingle(bool)
	Consume() bool
	SetConsume(bool)
	Crossfade() time.Duration
	SetCrossfade(time.Duration)
	MixRampDB() float64
	SetMixRampDB(float64)
	MixRampDelay() time.Duration
	SetMixRampDelay(time.Duration)
	ReplayGainMode() player.ReplayGainMode
	SetReplayGainMode(player.ReplayGainMode)

	// Broadcast raises bits in this partition's idle mask (spec.md §4.2).
	Broadcast(kind idle.Kind)

	// SendMessage delivers message to every session subscribed to
	// channel within this partition, returning the number of recipients.
	SendMessage(channel, message string) int
}

// InstanceView is the cross-partition surface commands operate on.
type InstanceView interface {
	Database() database.Database
	Partitions() []PartitionView
	PartitionByName(name string) (PartitionView, bool)
	NewPartition(name string) error
	DeletePartition(name string) error

	StickerEnabled() bool
	StickerGet(typ, uri, name string) (string, bool, error)
	StickerSet(typ, uri, name, value string) error
	StickerDelete(typ, uri, name string) error
	StickerList(typ, uri string) (map[string]string, error)
	StickerFind(typ, name, op, value string) (map[string]string, error)

	PlaylistEnabled() bool
	PlaylistNames() ([]string, error)
	PlaylistContents(name string) ([]string, error)
	PlaylistLoad(name string, q *queue.Queue) error
	PlaylistSave(name string, q *queue.Queue) error
	PlaylistRemove(name string) error
	PlaylistRename(oldName, newName string) error
	PlaylistAppend(name, uri string) error
	PlaylistClear(name string) error
	PlaylistDeletePos(name string, pos int) error
	PlaylistMove(name string, from, to int) error

	Stats() database.Stats
	Uptime() time.Duration

	// Authenticate checks password against the configured password list
	// and returns the permission set it grants (spec.md's "password"
	// command). ok is false for a password matching nothing configured.
	Authenticate(password string) (Permission, bool)

	// Mounts backs listmounts/mount/unmount: named storage mount points
	// layered under the root music directory.
	Mounts() map[string]string
	Mount(name, uri string) error
	Unmount(name string) error
}
