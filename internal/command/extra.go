package command

import (
	"context"

	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/idle"
)

// playlistfind/playlistsearch filter the *current queue* by TAG VALUE
// pairs, looking up each entry's tags in the database. Despite the name
// these are queue operations, not stored-playlist operations — matching
// the historical protocol's naming.
func cmdPlaylistFind(req Request, sess SessionView, w *Writer) (Result, error) {
	f, err := parseFilterArgs(req.Args)
	if err != nil {
		return Ok, err
	}
	q := sess.Partition().Queue()
	for i, e := range q.All() {
		song, ok, err := sess.Instance().Database().Lookup(context.Background(), e.URI)
		if err != nil {
			return Ok, err
		}
		if !ok {
			continue
		}
		if queueSongMatches(song, f) {
			writeEntry(w, i, e)
		}
	}
	return Ok, nil
}

func queueSongMatches(s database.Song, f database.Filter) bool {
	for k, v := range f.Conditions {
		if k == "uri" {
			if s.URI != v {
				return false
			}
			continue
		}
		if s.Tags[k] != v {
			return false
		}
	}
	return true
}

func cmdAddTagID(req Request, sess SessionView, _ *Writer) (Result, error) {
	id, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	tag, ok := req.Arg(2)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Partition().Queue().SetTagID(id, tag); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdClearTagID(req Request, sess SessionView, _ *Writer) (Result, error) {
	id, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Queue().SetTagID(id, ""); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

// list/listall/listallinfo/lsinfo/listfiles have no real directory
// hierarchy to walk (spec.md's Non-goals exclude on-disk layout); they
// all degrade to a flat visit of every indexed song. list additionally
// takes a tag type and reports distinct values instead of whole songs.
func cmdList(req Request, sess SessionView, w *Writer) (Result, error) {
	tag, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	f, err := parseFilterArgs(req.Args[1:])
	if err != nil {
		return Ok, err
	}
	seen := make(map[string]bool)
	err = sess.Instance().Database().Visit(context.Background(), database.Filter{All: true}, func(s database.Song) bool {
		if len(f.Conditions) > 0 && !queueSongMatches(s, f) {
			return true
		}
		v := s.Tags[tag]
		if v != "" && !seen[v] {
			seen[v] = true
			w.Line(tag, v)
		}
		return true
	})
	return Ok, err
}

func cmdListAll(_ Request, sess SessionView, w *Writer) (Result, error) {
	return Ok, sess.Instance().Database().Visit(context.Background(), database.Filter{All: true}, func(s database.Song) bool {
		w.Line("file", s.URI)
		return true
	})
}

func cmdListAllInfo(_ Request, sess SessionView, w *Writer) (Result, error) {
	return Ok, sess.Instance().Database().Visit(context.Background(), database.Filter{All: true}, func(s database.Song) bool {
		writeSong(w, s)
		return true
	})
}

func cmdLsInfo(_ Request, sess SessionView, w *Writer) (Result, error) {
	return cmdListAllInfo(Request{}, sess, w)
}

func cmdListFiles(_ Request, sess SessionView, w *Writer) (Result, error) {
	return cmdListAll(Request{}, sess, w)
}

func cmdListMounts(_ Request, sess SessionView, w *Writer) (Result, error) {
	for name, uri := range sess.Instance().Mounts() {
		w.Line("mount", name)
		w.Line("storage", uri)
	}
	return Ok, nil
}

func cmdMount(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	uri, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().Mount(name, uri); err != nil {
		return Ok, NewProtocolError(AckExist, "%v", err)
	}
	sess.Partition().Broadcast(idle.Mount)
	return Ok, nil
}

func cmdUnmount(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().Unmount(name); err != nil {
		return Ok, NewProtocolError(AckNoExist, "%v", err)
	}
	sess.Partition().Broadcast(idle.Mount)
	return Ok, nil
}

// findadd/searchadd append the find/search match set straight onto the
// queue instead of writing song lines; searchaddpl does the same onto a
// named stored playlist.
func cmdFindAdd(req Request, sess SessionView, _ *Writer) (Result, error) {
	f, err := parseFilterArgs(req.Args)
	if err != nil {
		return Ok, err
	}
	q := sess.Partition().Queue()
	var appendErr error
	if visitErr := sess.Instance().Database().Visit(context.Background(), f, func(s database.Song) bool {
		_, appendErr = q.Append(s.URI)
		return appendErr == nil
	}); visitErr != nil {
		return Ok, visitErr
	}
	if appendErr != nil {
		return Ok, appendErr
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdSearchAdd(req Request, sess SessionView, w *Writer) (Result, error) {
	return cmdFindAdd(req, sess, w)
}

func cmdSearchAddPl(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	f, err := parseFilterArgs(req.Args[1:])
	if err != nil {
		return Ok, err
	}
	var appendErr error
	if visitErr := sess.Instance().Database().Visit(context.Background(), f, func(s database.Song) bool {
		appendErr = sess.Instance().PlaylistAppend(name, s.URI)
		return appendErr == nil
	}); visitErr != nil {
		return Ok, visitErr
	}
	if appendErr != nil {
		return Ok, appendErr
	}
	playlistsChanged(sess)
	return Ok, nil
}

// readcomments has nothing to report: free-form comment metadata is out
// of scope (spec.md's tag/format Non-goal).
func cmdReadComments(_ Request, _ SessionView, _ *Writer) (Result, error) {
	return Ok, nil
}

func cmdAlbumArt(req Request, sess SessionView, w *Writer) (Result, error) {
	return serveArt(req, sess, w)
}

func cmdReadPicture(req Request, sess SessionView, w *Writer) (Result, error) {
	return serveArt(req, sess, w)
}

// serveArt implements the shared albumart/readpicture chunked-binary
// protocol: the client supplies a byte offset and receives up to
// binary_limit bytes of database.Song.ArtData starting there, plus the
// total size.
func serveArt(req Request, sess SessionView, w *Writer) (Result, error) {
	uri, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	offset, err := req.Uint(1)
	if err != nil {
		return Ok, err
	}
	song, ok, err := sess.Instance().Database().Lookup(context.Background(), uri)
	if err != nil {
		return Ok, err
	}
	if !ok || len(song.ArtData) == 0 {
		return Ok, NewProtocolError(AckNoExist, "No file exists")
	}
	if int(offset) > len(song.ArtData) {
		return Ok, NewProtocolError(AckArg, "Offset too large")
	}
	chunk := song.ArtData[offset:]
	if len(chunk) > sess.BinaryLimit() {
		chunk = chunk[:sess.BinaryLimit()]
	}
	w.Line("size", len(song.ArtData))
	return Ok, w.Binary(chunk)
}

// password re-authenticates the session at an instance-configured
// permission level (spec.md §6's AckPassword path for a bad password).
func cmdPassword(req Request, sess SessionView, _ *Writer) (Result, error) {
	pw, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	perm, ok := sess.Instance().Authenticate(pw)
	if !ok {
		return Ok, NewProtocolError(AckPassword, "incorrect password")
	}
	sess.SetPermission(perm)
	return Ok, nil
}

// urlhandlers reports the URI schemes this daemon accepts. Only bare
// file paths are supported; there is no stream/URL fetch layer.
func cmdURLHandlers(_ Request, _ SessionView, w *Writer) (Result, error) {
	w.Line("handler", "file")
	return Ok, nil
}

// decoders has nothing to report: no real decoder plugins are loaded
// (spec.md's audio Non-goal).
func cmdDecoders(_ Request, _ SessionView, _ *Writer) (Result, error) {
	return Ok, nil
}

// config reports static, non-sensitive daemon configuration. It's
// PermAdmin-only in the real protocol because it can leak paths; this
// daemon tracks no path-shaped configuration yet, so it reports nothing.
func cmdConfig(_ Request, _ SessionView, _ *Writer) (Result, error) {
	return Ok, nil
}
