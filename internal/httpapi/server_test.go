package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/instance"
)

func newTestInstance() *instance.Instance {
	return instance.New(database.NewMemory(
		database.Song{URI: "file:///a.mp3", Tags: map[string]string{"Artist": "A", "Title": "Song A"}},
	), nil, nil)
}

func TestHealthReportsDefaultPartition(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	api := New(inst)
	ts := httptest.NewServer(api.Echo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Partitions != 1 {
		t.Fatalf("unexpected health payload: %#v", health)
	}
}

func TestPartitionsListsDefault(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	api := New(inst)
	ts := httptest.NewServer(api.Echo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/partitions")
	if err != nil {
		t.Fatalf("GET /partitions: %v", err)
	}
	defer resp.Body.Close()
	var parts []partitionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parts); err != nil {
		t.Fatalf("decode partitions: %v", err)
	}
	if len(parts) != 1 || parts[0].Name != "default" {
		t.Fatalf("unexpected partitions payload: %#v", parts)
	}
}

func TestAlbumArtMissingReturns404(t *testing.T) {
	inst := newTestInstance()
	defer inst.Close()

	api := New(inst)
	ts := httptest.NewServer(api.Echo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/albumart/file:///a.mp3")
	if err != nil {
		t.Fatalf("GET /albumart: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for song with no art, got %d", resp.StatusCode)
	}
}

func TestAlbumArtServesBytesWithRange(t *testing.T) {
	inst := instance.New(database.NewMemory(
		database.Song{URI: "file:///a.mp3", ArtData: []byte("0123456789")},
	), nil, nil)
	defer inst.Close()

	api := New(inst)
	ts := httptest.NewServer(api.Echo())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/albumart/file:///a.mp3", nil)
	req.Header.Set("Range", "bytes=5-")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /albumart: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", resp.StatusCode)
	}
	body := make([]byte, 5)
	if _, err := resp.Body.Read(body); err != nil && err.Error() != "EOF" {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "56789" {
		t.Fatalf("got %q, want %q", body, "56789")
	}
}
