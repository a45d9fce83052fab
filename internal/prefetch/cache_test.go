package prefetch

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeOpener struct {
	opens  atomic.Int32
	sizes  map[string]int64
	bodies map[string]string
}

func (f *fakeOpener) Open(_ context.Context, uri string) (io.ReadCloser, int64, error) {
	f.opens.Add(1)
	size, ok := f.sizes[uri]
	if !ok {
		return nil, 0, ErrNotEligible
	}
	return io.NopCloser(strings.NewReader(f.bodies[uri])), size, nil
}

func TestGetCreateFillsAndCaches(t *testing.T) {
	op := &fakeOpener{sizes: map[string]int64{"a": 5}, bodies: map[string]string{"a": "hello"}}
	c := New(1024, op)

	lease, err := c.Get(context.Background(), "a", true)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Contains("a") {
		t.Fatal("expected cache to contain a")
	}
	if c.TotalSize() != 5 {
		t.Fatalf("total size = %d, want 5", c.TotalSize())
	}
	lease.Release()

	// Second get should hit cache, not reopen.
	lease2, err := c.Get(context.Background(), "a", true)
	if err != nil {
		t.Fatal(err)
	}
	lease2.Release()
	if op.opens.Load() != 1 {
		t.Fatalf("opens = %d, want 1 (cache hit should not reopen)", op.opens.Load())
	}
}

func TestSizeCapBound(t *testing.T) {
	op := &fakeOpener{
		sizes:  map[string]int64{"a": 60, "b": 60},
		bodies: map[string]string{"a": strings.Repeat("x", 60), "b": strings.Repeat("y", 60)},
	}
	c := New(100, op)

	la, err := c.Get(context.Background(), "a", true)
	if err != nil {
		t.Fatal(err)
	}
	la.Release() // no lease held, so "a" is evictable

	lb, err := c.Get(context.Background(), "b", true)
	if err != nil {
		t.Fatal(err)
	}
	defer lb.Release()

	if c.TotalSize() > 100 {
		t.Fatalf("total size %d exceeds cap 100", c.TotalSize())
	}
	if c.Contains("a") {
		t.Fatal("expected 'a' to have been evicted to make room for 'b'")
	}
}

func TestLeasedItemNeverEvicted(t *testing.T) {
	op := &fakeOpener{
		sizes:  map[string]int64{"a": 60, "b": 60},
		bodies: map[string]string{"a": strings.Repeat("x", 60), "b": strings.Repeat("y", 60)},
	}
	c := New(100, op)

	la, err := c.Get(context.Background(), "a", true)
	if err != nil {
		t.Fatal(err)
	}
	defer la.Release()

	// "b" cannot fit while "a" is leased and nothing else is evictable.
	if _, err := c.Get(context.Background(), "b", true); err != ErrNotEligible {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
	if !c.Contains("a") {
		t.Fatal("leased item 'a' must not have been evicted")
	}
}

func TestSingleFlightPerURI(t *testing.T) {
	op := &fakeOpener{sizes: map[string]int64{"a": 5}, bodies: map[string]string{"a": "hello"}}
	c := New(1024, op)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := c.Get(context.Background(), "a", true)
			if err != nil {
				t.Error(err)
				return
			}
			lease.Release()
		}()
	}
	wg.Wait()
	if op.opens.Load() != 1 {
		t.Fatalf("opens = %d, want exactly 1 (single-flight)", op.opens.Load())
	}
}

func TestFlushEvictsOnlyUnleased(t *testing.T) {
	op := &fakeOpener{
		sizes:  map[string]int64{"a": 5, "b": 5},
		bodies: map[string]string{"a": "hello", "b": "world"},
	}
	c := New(1024, op)

	la, _ := c.Get(context.Background(), "a", true)
	defer la.Release()
	lb, _ := c.Get(context.Background(), "b", true)
	lb.Release()

	c.Flush()
	if !c.Contains("a") {
		t.Fatal("leased item must survive Flush")
	}
	if c.Contains("b") {
		t.Fatal("unleased item must be evicted by Flush")
	}
}
