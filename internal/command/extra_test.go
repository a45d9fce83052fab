package command

import (
	"strings"
	"testing"

	"github.com/bken/audiompd/internal/database"
)

func TestListAllInfoEmitsEverySong(t *testing.T) {
	sess, _ := newFixture()
	mem := sess.instance.db.(*database.Memory)
	mem.Put(database.Song{URI: "file:///a.mp3", Tags: map[string]string{"Artist": "A"}})
	mem.Put(database.Song{URI: "file:///b.mp3", Tags: map[string]string{"Artist": "B"}})

	out, res := runCommand(t, sess, "listallinfo")
	if res != Ok {
		t.Fatalf("result = %v, want Ok", res)
	}
	if !strings.Contains(out, "file: file:///a.mp3") || !strings.Contains(out, "file: file:///b.mp3") {
		t.Fatalf("expected both songs listed, got %q", out)
	}
}

func TestListReportsDistinctTagValues(t *testing.T) {
	sess, _ := newFixture()
	mem := sess.instance.db.(*database.Memory)
	mem.Put(database.Song{URI: "file:///a.mp3", Tags: map[string]string{"Artist": "Same"}})
	mem.Put(database.Song{URI: "file:///b.mp3", Tags: map[string]string{"Artist": "Same"}})

	out, res := runCommand(t, sess, "list", "Artist")
	if res != Ok {
		t.Fatalf("result = %v, want Ok", res)
	}
	if strings.Count(out, "Artist: Same") != 1 {
		t.Fatalf("expected one deduped entry, got %q", out)
	}
}

func TestPlaylistFindFiltersQueueByDatabaseTags(t *testing.T) {
	sess, _ := newFixture()
	mem := sess.instance.db.(*database.Memory)
	mem.Put(database.Song{URI: "file:///a.mp3", Tags: map[string]string{"Artist": "Keep"}})
	mem.Put(database.Song{URI: "file:///b.mp3", Tags: map[string]string{"Artist": "Drop"}})
	runCommand(t, sess, "add", "file:///a.mp3")
	runCommand(t, sess, "add", "file:///b.mp3")

	out, res := runCommand(t, sess, "playlistfind", "Artist", "Keep")
	if res != Ok {
		t.Fatalf("result = %v, want Ok", res)
	}
	if !strings.Contains(out, "file:///a.mp3") || strings.Contains(out, "file:///b.mp3") {
		t.Fatalf("expected only the matching entry, got %q", out)
	}
}

func TestAddTagIDThenClearTagID(t *testing.T) {
	sess, part := newFixture()
	runCommand(t, sess, "add", "file:///a.mp3")
	e := part.q.ByID(1)
	if e == nil {
		t.Fatal("expected entry id 1")
	}

	if _, res := runCommand(t, sess, "addtagid", "1", "Artist", "Override"); res != Ok {
		t.Fatalf("addtagid result = %v", res)
	}
	if e.Tag != "Override" {
		t.Fatalf("Tag = %q, want Override", e.Tag)
	}

	if _, res := runCommand(t, sess, "cleartagid", "1"); res != Ok {
		t.Fatalf("cleartagid result = %v", res)
	}
	if e.Tag != "" {
		t.Fatalf("Tag = %q, want empty after clear", e.Tag)
	}
}

func TestFindAddAppendsMatchesToQueue(t *testing.T) {
	sess, part := newFixture()
	mem := sess.instance.db.(*database.Memory)
	mem.Put(database.Song{URI: "file:///a.mp3", Tags: map[string]string{"Artist": "Keep"}})

	if _, res := runCommand(t, sess, "findadd", "Artist", "Keep"); res != Ok {
		t.Fatal("expected Ok")
	}
	if part.q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", part.q.Len())
	}
}

func TestAlbumArtServesBytes(t *testing.T) {
	sess, _ := newFixture()
	mem := sess.instance.db.(*database.Memory)
	mem.Put(database.Song{URI: "file:///a.mp3", ArtData: []byte("JFIFdata")})
	sess.binaryLimit = 1 << 20

	out, res := runCommand(t, sess, "albumart", "file:///a.mp3", "0")
	if res != Ok {
		t.Fatalf("result = %v, want Ok", res)
	}
	if !strings.Contains(out, "size: 8") || !strings.Contains(out, "binary: 8") {
		t.Fatalf("expected size/binary framing, got %q", out)
	}
}

func TestAlbumArtMissingIsNoExistACK(t *testing.T) {
	sess, _ := newFixture()
	out, _ := runCommand(t, sess, "albumart", "file:///missing.mp3", "0")
	if !strings.HasPrefix(out, "ACK [50@0]") {
		t.Fatalf("expected ACK 50, got %q", out)
	}
}

func TestPasswordGrantsConfiguredPermission(t *testing.T) {
	sess, _ := newFixture()
	sess.perm = PermNone
	sess.instance.passwords = map[string]Permission{"secret": PermRead | PermControl}

	if _, res := runCommand(t, sess, "password", "secret"); res != Ok {
		t.Fatal("expected Ok")
	}
	if sess.perm != PermRead|PermControl {
		t.Fatalf("perm = %v, want read+control", sess.perm)
	}
}

func TestPasswordRejectsUnknownValue(t *testing.T) {
	sess, _ := newFixture()
	out, _ := runCommand(t, sess, "password", "wrong")
	if !strings.HasPrefix(out, "ACK [3@0]") {
		t.Fatalf("expected ACK 3 (password), got %q", out)
	}
}

func TestMountListMountsUnmount(t *testing.T) {
	sess, part := newFixture()
	sess.instance.mountTable = map[string]string{}

	if _, res := runCommand(t, sess, "mount", "nas", "nfs://server/share"); res != Ok {
		t.Fatalf("mount result = %v", res)
	}
	if len(part.broadcast) == 0 {
		t.Fatal("expected idle.Mount broadcast")
	}
	out, _ := runCommand(t, sess, "listmounts")
	if !strings.Contains(out, "mount: nas") {
		t.Fatalf("expected mount listed, got %q", out)
	}
	if _, res := runCommand(t, sess, "unmount", "nas"); res != Ok {
		t.Fatalf("unmount result = %v", res)
	}
	out, _ = runCommand(t, sess, "listmounts")
	if strings.Contains(out, "mount: nas") {
		t.Fatalf("expected mount gone, got %q", out)
	}
}
