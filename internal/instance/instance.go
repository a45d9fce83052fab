// Package instance implements the cross-partition Instance described in
// spec.md §3: the Database handle, the set of Partitions, and the
// stickers/stored-playlists collaborators every command dispatches
// against via command.InstanceView.
package instance

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/bken/audiompd/internal/command"
	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/partition"
	"github.com/bken/audiompd/internal/playlistdb"
	"github.com/bken/audiompd/internal/queue"
	"github.com/bken/audiompd/internal/stickerdb"
	"github.com/bken/audiompd/internal/tagcache"
)

// defaultPartitionName is the partition created at startup; DeletePartition
// always refuses it (spec.md §5).
const defaultPartitionName = "default"

var partitionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrDefaultPartition is returned by DeletePartition for the reserved name.
var ErrDefaultPartition = fmt.Errorf("the default partition cannot be deleted")

// ErrBadPartitionName is returned for a partition name outside
// [A-Za-z0-9_-]+ or one that already exists.
var ErrBadPartitionName = fmt.Errorf("bad partition name")

// Instance is the top-level daemon state: every Partition, the shared
// Database handle, and the optional sticker/playlist collaborators.
type Instance struct {
	db database.Database

	stickers *stickerdb.Store // nil disables stickers
	playlists *playlistdb.Store // nil disables stored playlists

	startedAt time.Time

	maxQueueLen int

	mu         sync.RWMutex
	partitions []*partition.Partition

	passwordsMu sync.RWMutex
	passwords   map[string]command.Permission // password -> granted permission

	mountsMu sync.RWMutex
	mounts   map[string]string // mount point name -> storage URI

	tags *tagcache.Cache // shared remote-URI tag cache (spec.md §2 RemoteTagCache)
}

// New creates an Instance with a single "default" partition. stickers and
// playlists may be nil to disable those subsystems (spec.md's "sticker
// database disabled" / "stored playlists disabled" ACK paths).
func New(db database.Database, stickers *stickerdb.Store, playlists *playlistdb.Store) *Instance {
	inst := &Instance{
		db:        db,
		stickers:  stickers,
		playlists: playlists,
		startedAt: time.Now(),
		passwords: make(map[string]command.Permission),
		mounts:    make(map[string]string),
		tags:      tagcache.New(0),
	}
	inst.partitions = []*partition.Partition{partition.New(defaultPartitionName, 0)}
	return inst
}

// SetMaxQueueLength configures the queue length cap (spec.md's
// max_playlist_length) applied to the default partition and every
// partition created afterward via NewPartition. Mirrors the teacher's
// post-construction setter pattern (SetMaxConnections, SetPerIPLimit)
// for startup-flag wiring. Must be called before any client connects.
func (inst *Instance) SetMaxQueueLength(n int) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.maxQueueLen = n
	if len(inst.partitions) == 1 && inst.partitions[0].Deletable() {
		inst.partitions[0] = partition.New(defaultPartitionName, n)
	}
}

// SetPassword configures a password granting perm, for startup
// configuration (spec.md's password_file / --password flag equivalent).
// Calling it with an already-used password overwrites its permission set.
func (inst *Instance) SetPassword(password string, perm command.Permission) {
	inst.passwordsMu.Lock()
	defer inst.passwordsMu.Unlock()
	inst.passwords[password] = perm
}

// Authenticate implements command.InstanceView.
func (inst *Instance) Authenticate(password string) (command.Permission, bool) {
	inst.passwordsMu.RLock()
	defer inst.passwordsMu.RUnlock()
	perm, ok := inst.passwords[password]
	return perm, ok
}

// Mounts implements command.InstanceView.
func (inst *Instance) Mounts() map[string]string {
	inst.mountsMu.RLock()
	defer inst.mountsMu.RUnlock()
	out := make(map[string]string, len(inst.mounts))
	for k, v := range inst.mounts {
		out[k] = v
	}
	return out
}

// Mount implements command.InstanceView.
func (inst *Instance) Mount(name, uri string) error {
	inst.mountsMu.Lock()
	defer inst.mountsMu.Unlock()
	if _, exists := inst.mounts[name]; exists {
		return fmt.Errorf("already mounted")
	}
	inst.mounts[name] = uri
	return nil
}

// Unmount implements command.InstanceView.
func (inst *Instance) Unmount(name string) error {
	inst.mountsMu.Lock()
	defer inst.mountsMu.Unlock()
	if _, exists := inst.mounts[name]; !exists {
		return fmt.Errorf("not mounted")
	}
	delete(inst.mounts, name)
	return nil
}

// Close stops every partition's idle-monitor goroutines and closes the
// sticker/playlist stores the Instance owns.
func (inst *Instance) Close() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for _, p := range inst.partitions {
		p.Close()
	}
	var err error
	if inst.stickers != nil {
		if e := inst.stickers.Close(); e != nil {
			err = e
		}
	}
	if inst.playlists != nil {
		if e := inst.playlists.Close(); e != nil {
			err = e
		}
	}
	return err
}

// DefaultPartition returns the always-present "default" partition.
func (inst *Instance) DefaultPartition() *partition.Partition {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.partitions[0]
}

// Database implements command.InstanceView.
func (inst *Instance) Database() database.Database { return inst.db }

// Partitions implements command.InstanceView.
func (inst *Instance) Partitions() []command.PartitionView {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	out := make([]command.PartitionView, len(inst.partitions))
	for i, p := range inst.partitions {
		out[i] = p
	}
	return out
}

// PartitionByName implements command.InstanceView.
func (inst *Instance) PartitionByName(name string) (command.PartitionView, bool) {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	for _, p := range inst.partitions {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// PartitionStruct looks up the concrete *partition.Partition by name, for
// callers (internal/session) that need Attach/Detach rather than the
// PartitionView seam.
func (inst *Instance) PartitionStruct(name string) (*partition.Partition, bool) {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	for _, p := range inst.partitions {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// NewPartition implements command.InstanceView (spec.md §5 "newpartition").
func (inst *Instance) NewPartition(name string) error {
	if !partitionNamePattern.MatchString(name) {
		return ErrBadPartitionName
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for _, p := range inst.partitions {
		if p.Name() == name {
			return ErrBadPartitionName
		}
	}
	inst.partitions = append(inst.partitions, partition.New(name, inst.maxQueueLen))
	return nil
}

// DeletePartition implements command.InstanceView (spec.md §5
// "delpartition"): refuses the default partition and any partition that
// still has clients or non-dummy outputs.
func (inst *Instance) DeletePartition(name string) error {
	if name == defaultPartitionName {
		return ErrDefaultPartition
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for i, p := range inst.partitions {
		if p.Name() != name {
			continue
		}
		if !p.Deletable() {
			return partition.ErrNotEmpty
		}
		p.Close()
		inst.partitions = append(inst.partitions[:i], inst.partitions[i+1:]...)
		return nil
	}
	return fmt.Errorf("no such partition %q", name)
}

// TagCache returns the shared remote-URI tag cache, so any partition can
// overlay a streaming URI's last-seen ICY-style title/artist on top of
// its static database tags. Populating it is left to a future stream
// metadata reader; spec.md §1 scopes tag extraction itself out.
func (inst *Instance) TagCache() *tagcache.Cache { return inst.tags }

// StickerEnabled implements command.InstanceView.
func (inst *Instance) StickerEnabled() bool { return inst.stickers != nil }

func (inst *Instance) StickerGet(typ, uri, name string) (string, bool, error) {
	if inst.stickers == nil {
		return "", false, fmt.Errorf("sticker database disabled")
	}
	return inst.stickers.Get(context.Background(), typ, uri, name)
}

func (inst *Instance) StickerSet(typ, uri, name, value string) error {
	if inst.stickers == nil {
		return fmt.Errorf("sticker database disabled")
	}
	return inst.stickers.Set(context.Background(), typ, uri, name, value)
}

func (inst *Instance) StickerDelete(typ, uri, name string) error {
	if inst.stickers == nil {
		return fmt.Errorf("sticker database disabled")
	}
	return inst.stickers.Delete(context.Background(), typ, uri, name)
}

func (inst *Instance) StickerList(typ, uri string) (map[string]string, error) {
	if inst.stickers == nil {
		return nil, fmt.Errorf("sticker database disabled")
	}
	return inst.stickers.List(context.Background(), typ, uri)
}

func (inst *Instance) StickerFind(typ, name, op, value string) (map[string]string, error) {
	if inst.stickers == nil {
		return nil, fmt.Errorf("sticker database disabled")
	}
	return inst.stickers.Find(context.Background(), typ, name, op, value)
}

// PlaylistEnabled implements command.InstanceView.
func (inst *Instance) PlaylistEnabled() bool { return inst.playlists != nil }

func (inst *Instance) PlaylistNames() ([]string, error) {
	if inst.playlists == nil {
		return nil, fmt.Errorf("stored playlists disabled")
	}
	return inst.playlists.Names(context.Background())
}

func (inst *Instance) PlaylistContents(name string) ([]string, error) {
	if inst.playlists == nil {
		return nil, fmt.Errorf("stored playlists disabled")
	}
	return inst.playlists.Contents(context.Background(), name)
}

// PlaylistLoad appends the stored playlist's songs onto q (spec.md's
// "load" command).
func (inst *Instance) PlaylistLoad(name string, q *queue.Queue) error {
	if inst.playlists == nil {
		return fmt.Errorf("stored playlists disabled")
	}
	uris, err := inst.playlists.Contents(context.Background(), name)
	if err != nil {
		return err
	}
	for _, uri := range uris {
		if _, err := q.Append(uri); err != nil {
			return err
		}
	}
	return nil
}

// PlaylistSave snapshots q's current contents into the stored playlist
// name, creating or overwriting it (spec.md's "save" command).
func (inst *Instance) PlaylistSave(name string, q *queue.Queue) error {
	if inst.playlists == nil {
		return fmt.Errorf("stored playlists disabled")
	}
	entries := q.All()
	uris := make([]string, len(entries))
	for i, e := range entries {
		uris[i] = e.URI
	}
	return inst.playlists.Save(context.Background(), name, uris)
}

func (inst *Instance) PlaylistRemove(name string) error {
	if inst.playlists == nil {
		return fmt.Errorf("stored playlists disabled")
	}
	return inst.playlists.Remove(context.Background(), name)
}

func (inst *Instance) PlaylistRename(oldName, newName string) error {
	if inst.playlists == nil {
		return fmt.Errorf("stored playlists disabled")
	}
	return inst.playlists.Rename(context.Background(), oldName, newName)
}

func (inst *Instance) PlaylistAppend(name, uri string) error {
	if inst.playlists == nil {
		return fmt.Errorf("stored playlists disabled")
	}
	return inst.playlists.Append(context.Background(), name, uri)
}

func (inst *Instance) PlaylistClear(name string) error {
	if inst.playlists == nil {
		return fmt.Errorf("stored playlists disabled")
	}
	return inst.playlists.Clear(context.Background(), name)
}

func (inst *Instance) PlaylistDeletePos(name string, pos int) error {
	if inst.playlists == nil {
		return fmt.Errorf("stored playlists disabled")
	}
	return inst.playlists.DeletePos(context.Background(), name, pos)
}

func (inst *Instance) PlaylistMove(name string, from, to int) error {
	if inst.playlists == nil {
		return fmt.Errorf("stored playlists disabled")
	}
	return inst.playlists.Move(context.Background(), name, from, to)
}

// Stats implements command.InstanceView.
func (inst *Instance) Stats() database.Stats {
	s, err := inst.db.Stats(context.Background())
	if err != nil {
		return database.Stats{}
	}
	s.UptimeSec = int64(time.Since(inst.startedAt).Seconds())
	return s
}

// Uptime implements command.InstanceView.
func (inst *Instance) Uptime() time.Duration { return time.Since(inst.startedAt) }
