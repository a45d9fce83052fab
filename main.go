package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/bken/audiompd/internal/command"
	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/eventloop"
	"github.com/bken/audiompd/internal/httpapi"
	"github.com/bken/audiompd/internal/instance"
	"github.com/bken/audiompd/internal/partition"
	"github.com/bken/audiompd/internal/playlistdb"
	"github.com/bken/audiompd/internal/session"
	"github.com/bken/audiompd/internal/state"
	"github.com/bken/audiompd/internal/stickercleanup"
	"github.com/bken/audiompd/internal/stickerdb"
	"github.com/bken/audiompd/internal/wsgateway"
)

func main() {
	if len(os.Args) > 1 {
		if RunCLI(os.Args[1:], "sticker.db") {
			return
		}
	}

	listenAddr := flag.String("listen", ":6600", "TCP listen address for the line protocol")
	socketPath := flag.String("socket", "", "UNIX socket path for the line protocol (empty disables)")
	httpAddr := flag.String("http-addr", "", "HTTP monitoring/album-art address (empty disables)")
	stickerDB := flag.String("sticker-db", "sticker.db", "sticker database path (empty disables stickers)")
	playlistDBPath := flag.String("playlist-db", "playlists.db", "stored-playlist database path (empty disables playlists)")
	passwords := flag.String("password", "", "comma-separated password:permission entries, permissions joined by '|', e.g. 'secret:read|add|control'")
	maxPlaylistLength := flag.Int("max-playlist-length", 16384, "maximum queue length per partition")
	cleanupInterval := flag.Duration("sticker-cleanup-interval", time.Hour, "interval between sticker-cleanup sweeps")
	stateFile := flag.String("state-file", "", "path to the persisted state file (empty disables)")
	stateSaveInterval := flag.Duration("state-save-interval", 30*time.Second, "coarse debounce period for rewriting -state-file")
	flag.Parse()

	setupLogging()

	db := database.NewMemory()

	var stickers *stickerdb.Store
	if *stickerDB != "" {
		var err error
		stickers, err = stickerdb.Open(*stickerDB)
		if err != nil {
			slog.Error("open sticker database", "path", *stickerDB, "err", err)
			os.Exit(1)
		}
		defer stickers.Close()
	}

	var playlists *playlistdb.Store
	if *playlistDBPath != "" {
		var err error
		playlists, err = playlistdb.Open(*playlistDBPath)
		if err != nil {
			slog.Error("open playlist database", "path", *playlistDBPath, "err", err)
			os.Exit(1)
		}
		defer playlists.Close()
	}

	inst := instance.New(db, stickers, playlists)
	defer inst.Close()
	inst.SetMaxQueueLength(*maxPlaylistLength)

	if err := configurePasswords(inst, *passwords); err != nil {
		slog.Error("parse -password", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	loop := eventloop.New("main")
	go loop.Run()

	printBanner(*listenAddr, *socketPath, *httpAddr, stickers != nil, playlists != nil)

	var stateDebouncer *state.Debouncer
	if *stateFile != "" {
		restoreState(inst, *stateFile)
		stateDebouncer = state.NewDebouncer(*stateFile, *stateSaveInterval, func() state.Snapshot {
			return snapshotState(inst)
		})
		defer stateDebouncer.Stop()
		go func() {
			ticker := time.NewTicker(*stateSaveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					stateDebouncer.MarkDirty()
				}
			}
		}()
	}

	if stickers != nil {
		go runStickerCleanup(ctx, stickers, db, *cleanupInterval)
	}

	var listeners []net.Listener

	tcpLn, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		slog.Error("listen", "addr", *listenAddr, "err", err)
		os.Exit(1)
	}
	listeners = append(listeners, tcpLn)
	slog.Info("listening", "proto", "tcp", "addr", *listenAddr)

	if *socketPath != "" {
		_ = os.Remove(*socketPath)
		unixLn, err := net.Listen("unix", *socketPath)
		if err != nil {
			slog.Error("listen", "addr", *socketPath, "err", err)
			os.Exit(1)
		}
		listeners = append(listeners, unixLn)
		slog.Info("listening", "proto", "unix", "addr", *socketPath)
	}

	for _, ln := range listeners {
		go acceptLoop(ctx, ln, loop, inst)
	}

	if *httpAddr != "" {
		api := httpapi.New(inst)
		gw := wsgateway.New(inst, loop)
		gw.Register(api.Echo())
		go func() {
			if err := api.Run(ctx, *httpAddr); err != nil {
				slog.Error("http server", "err", err)
			}
		}()
		slog.Info("listening", "proto", "http", "addr", *httpAddr)
	}

	<-ctx.Done()
	for _, ln := range listeners {
		_ = ln.Close()
	}
	loop.Break()
	time.Sleep(100 * time.Millisecond)
}

// restoreState applies a persisted state.Snapshot to the default
// partition at startup. A missing or corrupt file is logged and
// otherwise ignored, per spec.md's "read once on startup" wording (it
// does not specify startup failure on a bad state file).
func restoreState(inst *instance.Instance, path string) {
	snap, err := state.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("state file not restored", "path", path, "err", err)
		}
		return
	}
	part, ok := inst.PartitionStruct("default")
	if !ok {
		return
	}
	part.SetRandom(snap.Random)
	part.SetRepeat(snap.Repeat)
	part.SetSingle(snap.Single)
	part.SetConsume(snap.Consume)
	if snap.Volume >= 0 {
		_ = part.Player().SetVolume(snap.Volume)
	}
	for name, enabled := range snap.Outputs {
		o := part.Outputs().ByName(name)
		if o == nil || o.Enabled == enabled {
			continue
		}
		if enabled {
			_ = part.Outputs().Enable(indexOfOutput(part, name))
		} else {
			_ = part.Outputs().Disable(indexOfOutput(part, name))
		}
	}
	slog.Info("state restored", "path", path, "playlist_version", snap.PlaylistVersion)
}

func indexOfOutput(part *partition.Partition, name string) int {
	outs := part.Outputs().All()
	for i, o := range outs {
		if o.Name == name {
			return i
		}
	}
	return -1
}

// snapshotState captures the default partition's restorable state for
// the debounced state-file rewrite.
func snapshotState(inst *instance.Instance) state.Snapshot {
	part, ok := inst.PartitionStruct("default")
	if !ok {
		return state.Snapshot{Outputs: map[string]bool{}}
	}
	q := part.Queue()
	pos := q.CurrentPosition()
	songID := int64(-1)
	if e := q.AtPosition(pos); e != nil {
		songID = int64(e.ID)
	}
	st := part.Player().Status()
	outputs := make(map[string]bool)
	for _, o := range part.Outputs().All() {
		outputs[o.Name] = o.Enabled
	}
	return state.Snapshot{
		Volume:          st.SoftwareVolume,
		Random:          part.Random(),
		Repeat:          part.Repeat(),
		Single:          part.Single(),
		Consume:         part.Consume(),
		CurrentSongID:   songID,
		CurrentPosition: pos,
		ElapsedMs:       st.Elapsed.Milliseconds(),
		PlaylistVersion: q.Version(),
		Outputs:         outputs,
	}
}

func acceptLoop(ctx context.Context, ln net.Listener, loop *eventloop.Loop, inst *instance.Instance) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				slog.Warn("accept", "err", err)
				continue
			}
		}
		part := inst.DefaultPartition()
		sess := session.New(conn, loop, inst, part, command.PermRead|command.PermAdd)
		go sess.Serve()
	}
}

func runStickerCleanup(ctx context.Context, stickers *stickerdb.Store, db database.Database, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := stickercleanup.Run(ctx, stickers, db)
			if result.Err != nil {
				slog.Error("sticker cleanup", "err", result.Err)
				continue
			}
			slog.Info("sticker cleanup swept", "deleted", result.DeletedCount, "changed", result.Changed)
		}
	}
}

// configurePasswords parses "-password" entries of the form
// "secret:read,add,control" (mirroring mpd.conf's password directive)
// and registers each with the instance's permission table.
func configurePasswords(inst *instance.Instance, spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return fmt.Errorf("invalid password entry %q, want password:permissions", entry)
		}
		perm, err := parsePermissionList(parts[1])
		if err != nil {
			return fmt.Errorf("password entry %q: %w", entry, err)
		}
		inst.SetPassword(parts[0], perm)
	}
	return nil
}

func parsePermissionList(list string) (command.Permission, error) {
	var perm command.Permission
	for _, name := range strings.Split(list, "|") {
		name = strings.TrimSpace(name)
		switch name {
		case "read":
			perm |= command.PermRead
		case "add":
			perm |= command.PermAdd
		case "control":
			perm |= command.PermControl
		case "admin":
			perm |= command.PermAdmin
		case "player":
			perm |= command.PermPlayer
		default:
			return 0, fmt.Errorf("unknown permission %q", name)
		}
	}
	return perm, nil
}

func setupLogging() {
	var out = os.Stderr
	handler := slog.NewTextHandler(colorable.NewColorable(out), &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))
}

func printBanner(listenAddr, socketPath, httpAddr string, stickersOn, playlistsOn bool) {
	isTTY := isatty.IsTerminal(os.Stderr.Fd())
	bold := func(s string) string {
		if !isTTY {
			return s
		}
		return "\033[1m" + s + "\033[0m"
	}
	slog.Info(bold("audiompd starting"),
		"listen", listenAddr,
		"socket", orNone(socketPath),
		"http", orNone(httpAddr),
		"stickers", stickersOn,
		"playlists", playlistsOn,
		"max_rss_hint", humanize.Bytes(estimatedFootprintBytes()),
	)
}

func orNone(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}

// estimatedFootprintBytes gives the startup banner a human-readable
// memory figure; it is informational only.
func estimatedFootprintBytes() uint64 {
	return 16 * humanize.MiByte
}
