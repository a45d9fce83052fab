package queue

import "testing"

func TestAppendAssignsStablePositions(t *testing.T) {
	q := New(0)
	id1, _ := q.Append("a")
	id2, _ := q.Append("b")
	id3, _ := q.Append("c")

	if err := q.assertConsistent(); err != nil {
		t.Fatal(err)
	}
	if q.ByID(id1).Position != 0 || q.ByID(id2).Position != 1 || q.ByID(id3).Position != 2 {
		t.Fatalf("unexpected positions")
	}
}

func TestVersionMonotonicAndPlchanges(t *testing.T) {
	q := New(0)
	v0 := q.Version()
	q.Append("a")
	v1 := q.Version()
	if v1 <= v0 {
		t.Fatalf("version did not increase: %d -> %d", v0, v1)
	}
	q.Append("b")
	v2 := q.Version()

	changes, err := q.Changes(v1, Range{0, -1})
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].URI != "b" {
		t.Fatalf("plchanges(v1) = %+v, want just 'b'", changes)
	}
	changes, _ = q.Changes(v0, Range{0, -1})
	if len(changes) != 2 {
		t.Fatalf("plchanges(v0) = %+v, want both entries", changes)
	}
	_ = v2
}

func TestDeletePositionPreservesIDsAndPermutesPositions(t *testing.T) {
	q := New(0)
	ids := make([]uint32, 0, 5)
	for i := 0; i < 5; i++ {
		id, _ := q.Append(string(rune('a' + i)))
		ids = append(ids, id)
	}
	if err := q.DeletePosition(2); err != nil {
		t.Fatal(err)
	}
	if err := q.assertConsistent(); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 4 {
		t.Fatalf("len = %d, want 4", q.Len())
	}
	// id for "c" (index 2) must be gone; the rest must retain their ids.
	if q.ByID(ids[2]) != nil {
		t.Fatal("deleted entry's id still resolves")
	}
	for i, id := range ids {
		if i == 2 {
			continue
		}
		if q.ByID(id) == nil {
			t.Fatalf("entry id %d disappeared after unrelated delete", id)
		}
	}
}

func TestMoveRangePreservesOrder(t *testing.T) {
	q := New(0)
	for _, u := range []string{"a", "b", "c", "d", "e"} {
		q.Append(u)
	}
	// Move [1,3) (b,c) to position 4.
	if err := q.MoveRange(Range{1, 3}, 4); err != nil {
		t.Fatal(err)
	}
	if err := q.assertConsistent(); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range q.All() {
		got = append(got, e.URI)
	}
	want := []string{"a", "d", "e", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSwapPositions(t *testing.T) {
	q := New(0)
	q.Append("a")
	q.Append("b")
	if err := q.SwapPositions(0, 1); err != nil {
		t.Fatal(err)
	}
	if q.AtPosition(0).URI != "b" || q.AtPosition(1).URI != "a" {
		t.Fatalf("swap did not take effect")
	}
}

func TestSetTagIDOverridesAndClears(t *testing.T) {
	q := New(0)
	id, _ := q.Append("a")
	v0 := q.Version()

	if err := q.SetTagID(id, "Override"); err != nil {
		t.Fatal(err)
	}
	if q.ByID(id).Tag != "Override" {
		t.Fatalf("Tag = %q, want Override", q.ByID(id).Tag)
	}
	if q.Version() <= v0 {
		t.Fatal("expected version to advance")
	}

	if err := q.SetTagID(id, ""); err != nil {
		t.Fatal(err)
	}
	if q.ByID(id).Tag != "" {
		t.Fatalf("Tag = %q, want empty after clear", q.ByID(id).Tag)
	}
	if err := q.SetTagID(999, "x"); err != ErrNoSuchID {
		t.Fatalf("expected ErrNoSuchID, got %v", err)
	}
}

func TestMaxPlaylistLengthEnforced(t *testing.T) {
	q := New(2)
	if _, err := q.Append("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Append("b"); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Append("c"); err != ErrPlaylistMax {
		t.Fatalf("expected ErrPlaylistMax, got %v", err)
	}
}

func TestShufflePreservesMembership(t *testing.T) {
	q := New(0)
	ids := map[uint32]bool{}
	for i := 0; i < 10; i++ {
		id, _ := q.Append(string(rune('a' + i)))
		ids[id] = true
	}
	if err := q.Shuffle(Range{0, -1}); err != nil {
		t.Fatal(err)
	}
	if err := q.assertConsistent(); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 10 {
		t.Fatalf("len changed after shuffle: %d", q.Len())
	}
	for _, e := range q.All() {
		if !ids[e.ID] {
			t.Fatalf("unknown id %d after shuffle", e.ID)
		}
		delete(ids, e.ID)
	}
	if len(ids) != 0 {
		t.Fatalf("missing ids after shuffle: %v", ids)
	}
}
