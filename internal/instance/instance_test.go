package instance

import (
	"testing"

	"github.com/bken/audiompd/internal/command"
	"github.com/bken/audiompd/internal/database"
)

func newTestInstance() *Instance {
	return New(database.NewMemory(), nil, nil)
}

func TestDefaultPartitionExists(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	parts := inst.Partitions()
	if len(parts) != 1 || parts[0].Name() != defaultPartitionName {
		t.Fatalf("expected single default partition, got %v", parts)
	}
}

func TestNewPartitionRejectsBadName(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	if err := inst.NewPartition("has a space"); err == nil {
		t.Fatal("expected error for invalid partition name")
	}
	if err := inst.NewPartition("valid-name_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := inst.PartitionByName("valid-name_1"); !ok {
		t.Fatal("expected partition to be findable by name")
	}
}

func TestDeletePartitionRefusesDefault(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	if err := inst.DeletePartition(defaultPartitionName); err != ErrDefaultPartition {
		t.Fatalf("got %v, want ErrDefaultPartition", err)
	}
}

func TestDeletePartitionRemovesEmptyPartition(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	if err := inst.NewPartition("extra"); err != nil {
		t.Fatal(err)
	}
	if err := inst.DeletePartition("extra"); err != nil {
		t.Fatalf("unexpected error deleting empty partition: %v", err)
	}
	if _, ok := inst.PartitionByName("extra"); ok {
		t.Fatal("expected partition to be gone")
	}
}

func TestStickersDisabledWithoutStore(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	if inst.StickerEnabled() {
		t.Fatal("expected stickers disabled with nil store")
	}
	if _, _, err := inst.StickerGet("song", "file:///a.mp3", "rating"); err == nil {
		t.Fatal("expected error for disabled sticker db")
	}
}

func TestPlaylistsDisabledWithoutStore(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	if inst.PlaylistEnabled() {
		t.Fatal("expected playlists disabled with nil store")
	}
	if _, err := inst.PlaylistNames(); err == nil {
		t.Fatal("expected error for disabled playlist db")
	}
}

func TestAuthenticateRejectsUnconfiguredPassword(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	if _, ok := inst.Authenticate("whatever"); ok {
		t.Fatal("expected no password to be configured")
	}
	inst.SetPassword("letmein", command.PermRead|command.PermControl)
	perm, ok := inst.Authenticate("letmein")
	if !ok || perm != command.PermRead|command.PermControl {
		t.Fatalf("Authenticate = (%v, %v), want (read+control, true)", perm, ok)
	}
}

func TestMountUnmountRoundTrip(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	if err := inst.Mount("nas", "nfs://server/share"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := inst.Mount("nas", "nfs://server/other"); err == nil {
		t.Fatal("expected error mounting an already-used name")
	}
	if got := inst.Mounts(); got["nas"] != "nfs://server/share" {
		t.Fatalf("Mounts() = %v", got)
	}
	if err := inst.Unmount("nas"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := inst.Unmount("nas"); err == nil {
		t.Fatal("expected error unmounting an already-gone name")
	}
}
