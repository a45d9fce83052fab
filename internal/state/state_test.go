package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	snap := Snapshot{
		Volume:          42,
		Random:          true,
		Repeat:          false,
		Single:          true,
		Consume:         false,
		CurrentSongID:   7,
		CurrentPosition: 2,
		ElapsedMs:       1500,
		PlaylistVersion: 9,
		Outputs:         map[string]bool{"speakers": true, "null": false},
	}
	if err := Save(path, snap); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Volume != 42 || !got.Random || got.Repeat || !got.Single {
		t.Fatalf("options mismatch: %+v", got)
	}
	if got.CurrentSongID != 7 || got.CurrentPosition != 2 || got.ElapsedMs != 1500 {
		t.Fatalf("playback mismatch: %+v", got)
	}
	if got.PlaylistVersion != 9 {
		t.Fatalf("playlist version = %d, want 9", got.PlaylistVersion)
	}
	if !got.Outputs["speakers"] || got.Outputs["null"] {
		t.Fatalf("outputs mismatch: %+v", got.Outputs)
	}
}

func TestLoadRejectsCorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	if err := Save(path, Snapshot{Outputs: map[string]bool{}}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data = append(data[:len(data)-2], 'f', '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestDebouncerCoalescesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	calls := 0
	d := NewDebouncer(path, 20*time.Millisecond, func() Snapshot {
		calls++
		return Snapshot{Volume: calls, Outputs: map[string]bool{}}
	})
	d.MarkDirty()
	d.MarkDirty()
	d.MarkDirty()
	time.Sleep(60 * time.Millisecond)

	if calls != 1 {
		t.Fatalf("expected exactly one flush, got %d", calls)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected state file to exist: %v", err)
	}
}
