package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bken/audiompd/internal/playlistdb"
	"github.com/bken/audiompd/internal/stickerdb"
)

// Version is the daemon's reported version (printed by the version subcommand).
var Version = "0.1.0-dev"

// RunCLI handles subcommand execution. Returns true if a subcommand was handled.
func RunCLI(args []string, defaultStickerDB string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "version":
		fmt.Printf("audiompd %s\n", Version)
		return true
	case "stickers":
		return cliStickers(args[1:], defaultStickerDB)
	case "playlists":
		return cliPlaylists(args[1:])
	default:
		return false
	}
}

func cliStickers(args []string, defaultPath string) bool {
	path := defaultPath
	if len(args) > 0 && args[0] != "list" {
		path = args[0]
	}
	st, err := stickerdb.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening sticker database %s: %v\n", path, err)
		os.Exit(1)
	}
	defer st.Close()

	pairs, err := st.UniquePairs(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(pairs) == 0 {
		fmt.Println("No stickers found.")
		return true
	}
	for _, p := range pairs {
		fmt.Printf("  %s %s\n", p.Type, p.URI)
	}
	return true
}

func cliPlaylists(args []string) bool {
	path := "playlists.db"
	if len(args) > 0 {
		path = args[0]
	}
	st, err := playlistdb.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening playlist database %s: %v\n", path, err)
		os.Exit(1)
	}
	defer st.Close()

	names, err := st.Names(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Println("No stored playlists found.")
		return true
	}
	for _, name := range names {
		contents, err := st.Contents(context.Background(), name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading %q: %v\n", name, err)
			continue
		}
		fmt.Printf("  %s (%d tracks)\n", name, len(contents))
	}
	return true
}
