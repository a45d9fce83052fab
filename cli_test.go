package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunCLIVersion(t *testing.T) {
	if !RunCLI([]string{"version"}, "") {
		t.Fatal("expected version subcommand to be handled")
	}
}

func TestRunCLIUnknownSubcommandNotHandled(t *testing.T) {
	if RunCLI([]string{"frobnicate"}, "") {
		t.Fatal("expected unknown subcommand to be unhandled")
	}
}

func TestRunCLIStickersOnEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sticker.db")
	if !RunCLI([]string{"stickers", dbPath}, dbPath) {
		t.Fatal("expected stickers subcommand to be handled")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sticker db to be created: %v", err)
	}
}

func TestRunCLIPlaylistsOnEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "playlists.db")
	if !RunCLI([]string{"playlists", dbPath}, "") {
		t.Fatal("expected playlists subcommand to be handled")
	}
}
