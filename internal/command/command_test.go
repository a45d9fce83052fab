package command

import (
	"bufio"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/idle"
	"github.com/bken/audiompd/internal/output"
	"github.com/bken/audiompd/internal/player"
	"github.com/bken/audiompd/internal/queue"
)

// fakePartition and fakeInstance/fakeSession give the registry tests a
// minimal concrete satisfying command.PartitionView/InstanceView/
// SessionView without pulling in internal/session or internal/partition
// (which depend on this package, not the other way around).
type fakePartition struct {
	name      string
	q         *queue.Queue
	p         player.Control
	outputs   *output.Set
	random    bool
	repeat    bool
	single    bool
	consume   bool
	crossfade time.Duration
	broadcast []idle.Kind
}

func newFakePartition(name string) *fakePartition {
	return &fakePartition{name: name, q: queue.New(0), p: player.NewSimple(), outputs: output.NewSet()}
}

func (p *fakePartition) Name() string           { return p.name }
func (p *fakePartition) Queue() *queue.Queue    { return p.q }
func (p *fakePartition) Player() player.Control { return p.p }
func (p *fakePartition) Outputs() *output.Set   { return p.outputs }
func (p *fakePartition) Random() bool           { return p.random }
func (p *fakePartition) SetRandom(b bool)       { p.random = b }
func (p *fakePartition) Repeat() bool           { return p.repeat }
func (p *fakePartition) SetRepeat(b bool)       { p.repeat = b }
func (p *fakePartition) Single() bool           { return p.single }
func (p *fakePartition) SetSingle(b bool)       { p.single = b }
func (p *fakePartition) Consume() bool          { return p.consume }
func (p *fakePartition) SetConsume(b bool)      { p.consume = b }
func (p *fakePartition) Crossfade() time.Duration     { return p.crossfade }
func (p *fakePartition) SetCrossfade(d time.Duration) { p.crossfade = d }
func (p *fakePartition) MixRampDB() float64           { return 0 }
func (p *fakePartition) SetMixRampDB(float64)         {}
func (p *fakePartition) MixRampDelay() time.Duration  { return 0 }
func (p *fakePartition) SetMixRampDelay(time.Duration) {}
func (p *fakePartition) ReplayGainMode() player.ReplayGainMode { return player.ReplayGainOff }
func (p *fakePartition) SetReplayGainMode(player.ReplayGainMode) {}
func (p *fakePartition) Broadcast(k idle.Kind) { p.broadcast = append(p.broadcast, k) }
func (p *fakePartition) SendMessage(channel, message string) int { return 0 }

type fakeInstance struct {
	db         database.Database
	partition  *fakePartition
	passwords  map[string]Permission
	mountTable map[string]string
}

func (i *fakeInstance) Database() database.Database { return i.db }
func (i *fakeInstance) Partitions() []PartitionView  { return []PartitionView{i.partition} }
func (i *fakeInstance) PartitionByName(name string) (PartitionView, bool) {
	if i.partition.name == name {
		return i.partition, true
	}
	return nil, false
}
func (i *fakeInstance) NewPartition(string) error    { return nil }
func (i *fakeInstance) DeletePartition(string) error { return nil }

func (i *fakeInstance) StickerEnabled() bool { return false }
func (i *fakeInstance) StickerGet(typ, uri, name string) (string, bool, error) {
	return "", false, nil
}
func (i *fakeInstance) StickerSet(typ, uri, name, value string) error { return nil }
func (i *fakeInstance) StickerDelete(typ, uri, name string) error     { return nil }
func (i *fakeInstance) StickerList(typ, uri string) (map[string]string, error) {
	return nil, nil
}
func (i *fakeInstance) StickerFind(typ, name, op, value string) (map[string]string, error) {
	return nil, nil
}

func (i *fakeInstance) PlaylistEnabled() bool                    { return false }
func (i *fakeInstance) PlaylistNames() ([]string, error)         { return nil, nil }
func (i *fakeInstance) PlaylistContents(string) ([]string, error) { return nil, nil }
func (i *fakeInstance) PlaylistLoad(string, *queue.Queue) error  { return nil }
func (i *fakeInstance) PlaylistSave(string, *queue.Queue) error  { return nil }
func (i *fakeInstance) PlaylistRemove(string) error              { return nil }
func (i *fakeInstance) PlaylistRename(string, string) error      { return nil }
func (i *fakeInstance) PlaylistAppend(string, string) error      { return nil }
func (i *fakeInstance) PlaylistClear(string) error                { return nil }
func (i *fakeInstance) PlaylistDeletePos(string, int) error       { return nil }
func (i *fakeInstance) PlaylistMove(string, int, int) error       { return nil }

func (i *fakeInstance) Stats() database.Stats { return database.Stats{} }
func (i *fakeInstance) Uptime() time.Duration { return 0 }

func (i *fakeInstance) Authenticate(password string) (Permission, bool) {
	perm, ok := i.passwords[password]
	return perm, ok
}
func (i *fakeInstance) Mounts() map[string]string {
	out := make(map[string]string, len(i.mountTable))
	for k, v := range i.mountTable {
		out[k] = v
	}
	return out
}
func (i *fakeInstance) Mount(name, uri string) error {
	if i.mountTable == nil {
		i.mountTable = make(map[string]string)
	}
	if _, exists := i.mountTable[name]; exists {
		return NewProtocolError(AckExist, "already mounted")
	}
	i.mountTable[name] = uri
	return nil
}
func (i *fakeInstance) Unmount(name string) error {
	if _, exists := i.mountTable[name]; !exists {
		return NewProtocolError(AckNoExist, "not mounted")
	}
	delete(i.mountTable, name)
	return nil
}

type fakeSession struct {
	perm        Permission
	partition   *fakePartition
	instance    *fakeInstance
	binaryLimit int
}

func (s *fakeSession) Permission() Permission        { return s.perm }
func (s *fakeSession) SetPermission(p Permission)    { s.perm = p }
func (s *fakeSession) Partition() PartitionView      { return s.partition }
func (s *fakeSession) Instance() InstanceView        { return s.instance }
func (s *fakeSession) BinaryLimit() int              { return s.binaryLimit }
func (s *fakeSession) SetBinaryLimit(n int)          { s.binaryLimit = n }
func (s *fakeSession) Subscribe(string) error        { return nil }
func (s *fakeSession) Unsubscribe(string) error      { return nil }
func (s *fakeSession) Channels() []string            { return nil }
func (s *fakeSession) ReadMessages() []SessionMessage { return nil }
func (s *fakeSession) TagTypesEnabled() []string     { return []string{"Artist", "Title"} }
func (s *fakeSession) MovePartition(string) error    { return nil }

func newFixture() (*fakeSession, *fakePartition) {
	part := newFakePartition("default")
	inst := &fakeInstance{db: database.NewMemory(), partition: part}
	sess := &fakeSession{perm: PermRead | PermAdd | PermControl | PermAdmin | PermPlayer, partition: part, instance: inst}
	return sess, part
}

func runCommand(t *testing.T, sess SessionView, line string, args ...string) (string, Result) {
	t.Helper()
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	w := NewWriter(bw, 1<<20)
	res := Dispatch(Request{Name: line, Args: args}, sess, w, 0, Standalone)
	bw.Flush()
	return buf.String(), res
}

func TestRegistrySorted(t *testing.T) {
	for i := 1; i < len(Registry); i++ {
		if !(Registry[i-1].Name < Registry[i].Name) {
			t.Fatalf("registry not sorted: %q >= %q", Registry[i-1].Name, Registry[i].Name)
		}
	}
}

func TestUnknownCommandACK(t *testing.T) {
	sess, _ := newFixture()
	out, _ := runCommand(t, sess, "frobnicate")
	want := "ACK [5@0] {frobnicate} unknown command \"frobnicate\"\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestPermissionDenied(t *testing.T) {
	sess, _ := newFixture()
	sess.perm = PermRead
	out, _ := runCommand(t, sess, "kill")
	want := "ACK [4@0] {kill} you don't have permission for \"kill\"\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestArityTooFew(t *testing.T) {
	sess, _ := newFixture()
	out, _ := runCommand(t, sess, "add")
	want := "ACK [2@0] {add} too few arguments\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestAddEmitsIdAndBroadcastsPlaylist(t *testing.T) {
	sess, part := newFixture()
	out, res := runCommand(t, sess, "add", "file:///a.mp3")
	if res != Ok {
		t.Fatalf("result = %v, want Ok", res)
	}
	if out != "Id: 1\nOK\n" {
		t.Fatalf("got %q", out)
	}
	if len(part.broadcast) != 1 || part.broadcast[0] != idle.Playlist {
		t.Fatalf("expected one IDLE_PLAYLIST broadcast, got %v", part.broadcast)
	}
}

func TestPlayBadPositionACK(t *testing.T) {
	sess, _ := newFixture()
	out, _ := runCommand(t, sess, "play", "notanumber")
	if out == "" || out[:4] != "ACK " {
		t.Fatalf("expected ACK, got %q", out)
	}
}

func TestKillReturnsKillResult(t *testing.T) {
	sess, _ := newFixture()
	_, res := runCommand(t, sess, "kill")
	if res != Kill {
		t.Fatalf("result = %v, want Kill", res)
	}
}

func TestIdleReturnsIdleResult(t *testing.T) {
	sess, _ := newFixture()
	_, res := runCommand(t, sess, "idle")
	if res != Idle {
		t.Fatalf("result = %v, want Idle", res)
	}
}

func TestStickerDisabledACK(t *testing.T) {
	sess, _ := newFixture()
	out, _ := runCommand(t, sess, "sticker", "get", "song", "file:///a.mp3", "rating")
	want := "ACK [5@0] {sticker} sticker database disabled\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestStatusReportsQueueAndPlayerState(t *testing.T) {
	sess, part := newFixture()
	_, _ = runCommand(t, sess, "add", "file:///a.mp3")
	part.q.SetCurrentPosition(0)
	out, _ := runCommand(t, sess, "status")
	if !bytes.Contains([]byte(out), []byte("state: stop")) {
		t.Fatalf("expected state: stop in %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("playlistlength: 1")) {
		t.Fatalf("expected playlistlength: 1 in %q", out)
	}
}

func TestParseRange(t *testing.T) {
	cases := []struct {
		in      string
		wantOK  bool
		wantEnd int
	}{
		{"5", true, 6},
		{"2:7", true, 7},
		{"2:", true, -1},
		{"-1", true, -1},
		{"7:2", false, 0},
	}
	for _, c := range cases {
		r, err := ParseRange(c.in)
		if c.wantOK && err != nil {
			t.Errorf("ParseRange(%q): unexpected error %v", c.in, err)
		}
		if !c.wantOK && err == nil {
			t.Errorf("ParseRange(%q): expected error", c.in)
		}
		if c.wantOK && r.End != c.wantEnd {
			t.Errorf("ParseRange(%q).End = %d, want %d", c.in, r.End, c.wantEnd)
		}
	}
}

func TestPositionRefResolve(t *testing.T) {
	p, err := ParsePositionRef("+2")
	if err != nil {
		t.Fatal(err)
	}
	abs, err := p.Resolve(3)
	if err != nil {
		t.Fatal(err)
	}
	if abs != 6 { // current(3) + 1 + 2
		t.Fatalf("abs = %d, want 6", abs)
	}

	p, _ = ParsePositionRef("-1")
	if _, err := p.Resolve(-1); err == nil {
		t.Fatal("expected error resolving relative position with no current song")
	}
}

func queueURIs(q *queue.Queue) []string {
	entries := q.All()
	uris := make([]string, len(entries))
	for i, e := range entries {
		uris[i] = e.URI
	}
	return uris
}

func TestMoveRelativeDestinationSkipsRemovedRange(t *testing.T) {
	sess, _ := newFixture()
	q := sess.Partition().Queue()
	for _, uri := range []string{"a", "b", "c", "d", "e"} {
		if _, err := q.Append(uri); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.SetCurrentPosition(2); err != nil { // current = c
		t.Fatal(err)
	}

	out, res := runCommand(t, sess, "move", "0", "+1")
	if res != Ok {
		t.Fatalf("result = %v, want Ok", res)
	}
	if out != "OK\n" {
		t.Fatalf("got %q", out)
	}
	got := queueURIs(q)
	want := []string{"b", "c", "d", "a", "e"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMoveRejectsRangeContainingCurrentSong(t *testing.T) {
	sess, _ := newFixture()
	q := sess.Partition().Queue()
	for _, uri := range []string{"a", "b", "c"} {
		if _, err := q.Append(uri); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.SetCurrentPosition(1); err != nil { // current = b
		t.Fatal(err)
	}

	out, _ := runCommand(t, sess, "move", "1", "+0")
	if out == "" || out[:4] != "ACK " {
		t.Fatalf("expected ACK rejecting a move relative to the current song itself, got %q", out)
	}
}

var _ = context.Background
