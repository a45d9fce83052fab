package command

import (
	"context"

	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/idle"
)

// parseFilterArgs builds a database.Filter from alternating TAG VALUE
// pairs (the historical find/search/count argument convention).
func parseFilterArgs(args []string) (database.Filter, error) {
	if len(args)%2 != 0 {
		return database.Filter{}, NewProtocolError(AckArg, "not enough arguments")
	}
	f := database.Filter{Conditions: make(map[string]string)}
	for i := 0; i+1 < len(args); i += 2 {
		f.Conditions[args[i]] = args[i+1]
	}
	return f, nil
}

func writeSong(w *Writer, s database.Song) {
	w.Line("file", s.URI)
	for tag, value := range s.Tags {
		w.Line(tag, value)
	}
	if s.Duration > 0 {
		w.Line("duration", s.Duration)
	}
}

func cmdFind(req Request, sess SessionView, w *Writer) (Result, error) {
	f, err := parseFilterArgs(req.Args)
	if err != nil {
		return Ok, err
	}
	return Ok, sess.Instance().Database().Visit(context.Background(), f, func(s database.Song) bool {
		writeSong(w, s)
		return true
	})
}

// search is case-insensitive find in the real protocol; this in-memory
// database layer does exact matching only (no tag-text search engine is
// in scope — spec.md §1 excludes tag/format parsing).
func cmdSearch(req Request, sess SessionView, w *Writer) (Result, error) {
	return cmdFind(req, sess, w)
}

func cmdCount(req Request, sess SessionView, w *Writer) (Result, error) {
	f, err := parseFilterArgs(req.Args)
	if err != nil {
		return Ok, err
	}
	n, err := sess.Instance().Database().CountMatches(context.Background(), f)
	if err != nil {
		return Ok, err
	}
	w.Line("songs", n)
	return Ok, nil
}

func cmdUpdate(req Request, sess SessionView, w *Writer) (Result, error) {
	path, _ := req.Arg(0)
	id, err := sess.Instance().Database().Update(context.Background(), path, false)
	if err != nil {
		return Ok, err
	}
	sess.Partition().Broadcast(idle.Update)
	w.Line("updating_db", id)
	return Ok, nil
}

func cmdRescan(req Request, sess SessionView, w *Writer) (Result, error) {
	path, _ := req.Arg(0)
	id, err := sess.Instance().Database().Update(context.Background(), path, true)
	if err != nil {
		return Ok, err
	}
	sess.Partition().Broadcast(idle.Update)
	w.Line("updating_db", id)
	return Ok, nil
}
