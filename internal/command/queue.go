package command

import (
	"github.com/bken/audiompd/internal/idle"
	"github.com/bken/audiompd/internal/queue"
)

// playlistChanged raises IDLE_PLAYLIST after a queue mutation (spec.md §4.5:
// "mutations that change ordering or membership... emit IDLE_PLAYLIST").
func playlistChanged(sess SessionView) {
	sess.Partition().Broadcast(idle.Playlist)
}

func writeEntry(w *Writer, pos int, e *queue.Entry) {
	w.Line("file", e.URI)
	w.Line("Pos", pos)
	w.Line("Id", e.ID)
	if e.Priority != 0 {
		w.Line("Prio", e.Priority)
	}
	if e.Tag != "" {
		w.Line("Tag", e.Tag)
	}
}

func cmdAdd(req Request, sess SessionView, w *Writer) (Result, error) {
	uri, _ := req.Arg(0)
	q := sess.Partition().Queue()
	id, err := q.Append(uri)
	if err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	w.Line("Id", id)
	return Ok, nil
}

func cmdAddID(req Request, sess SessionView, w *Writer) (Result, error) {
	uri, _ := req.Arg(0)
	q := sess.Partition().Queue()
	var id uint32
	var err error
	if pos, ok := req.Arg(1); ok {
		ref, perr := ParsePositionRef(pos)
		if perr != nil {
			return Ok, perr
		}
		abs, rerr := ref.Resolve(q.CurrentPosition())
		if rerr != nil {
			return Ok, rerr
		}
		id, err = q.InsertAt(uri, abs)
	} else {
		id, err = q.Append(uri)
	}
	if err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	w.Line("Id", id)
	return Ok, nil
}

func cmdClear(_ Request, sess SessionView, _ *Writer) (Result, error) {
	sess.Partition().Queue().Clear()
	playlistChanged(sess)
	return Ok, nil
}

func cmdDelete(req Request, sess SessionView, _ *Writer) (Result, error) {
	r, err := req.Range(0)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Queue().DeleteRange(r); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdDeleteID(req Request, sess SessionView, _ *Writer) (Result, error) {
	id, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Queue().DeleteID(id); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdMove(req Request, sess SessionView, _ *Writer) (Result, error) {
	r, err := req.Range(0)
	if err != nil {
		return Ok, err
	}
	if r.End == -1 {
		return Ok, NewProtocolError(AckArg, "Open-ended range not supported")
	}
	to, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	q := sess.Partition().Queue()
	dest, err := ParseMoveDestination(to, r, q.Len(), q.CurrentPosition())
	if err != nil {
		return Ok, err
	}
	if err := q.MoveRange(r, dest); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdMoveID(req Request, sess SessionView, _ *Writer) (Result, error) {
	id, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	to, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	q := sess.Partition().Queue()
	e := q.ByID(id)
	if e == nil {
		return Ok, NewProtocolError(AckNoExist, "No such song id")
	}
	r := queue.Range{Start: e.Position, End: e.Position + 1}
	dest, err := ParseMoveDestination(to, r, q.Len(), q.CurrentPosition())
	if err != nil {
		return Ok, err
	}
	if err := q.MoveRange(r, dest); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdSwap(req Request, sess SessionView, _ *Writer) (Result, error) {
	a, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	b, err := req.Uint(1)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Queue().SwapPositions(int(a), int(b)); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdSwapID(req Request, sess SessionView, _ *Writer) (Result, error) {
	a, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	b, err := req.Uint(1)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Queue().SwapIDs(a, b); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdShuffle(req Request, sess SessionView, _ *Writer) (Result, error) {
	q := sess.Partition().Queue()
	r := queue.Range{Start: 0, End: -1}
	if _, ok := req.Arg(0); ok {
		var err error
		r, err = req.Range(0)
		if err != nil {
			return Ok, err
		}
	}
	if err := q.Shuffle(r); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdPrio(req Request, sess SessionView, _ *Writer) (Result, error) {
	priority, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	q := sess.Partition().Queue()
	for i := 1; i < len(req.Args); i++ {
		r, err := req.Range(i)
		if err != nil {
			return Ok, err
		}
		if err := q.SetPriorityRange(r, uint8(priority)); err != nil {
			return Ok, err
		}
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdPrioID(req Request, sess SessionView, _ *Writer) (Result, error) {
	priority, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	q := sess.Partition().Queue()
	for i := 1; i < len(req.Args); i++ {
		id, err := req.Uint(i)
		if err != nil {
			return Ok, err
		}
		if err := q.SetPriorityID(id, uint8(priority)); err != nil {
			return Ok, err
		}
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdRangeID(req Request, sess SessionView, _ *Writer) (Result, error) {
	id, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	rangeStr, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	start, end := queue.SongTime(0), queue.SongTime(-1)
	if rangeStr != "" {
		r, err := req.Range(1)
		if err != nil {
			return Ok, err
		}
		start = queue.SongTime(r.Start)
		end = queue.SongTime(r.End)
	}
	if err := sess.Partition().Queue().RangeID(id, start, end); err != nil {
		return Ok, err
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdPlaylistInfo(req Request, sess SessionView, w *Writer) (Result, error) {
	q := sess.Partition().Queue()
	entries := q.All()
	if s, ok := req.Arg(0); ok && s != "" {
		r, err := ParseRange(s)
		if err != nil {
			return Ok, err
		}
		start, end := r.Start, r.End
		if end < 0 || end > len(entries) {
			end = len(entries)
		}
		if start < 0 || start > len(entries) {
			return Ok, NewProtocolError(AckArg, "Bad range")
		}
		entries = entries[start:end]
		for i, e := range entries {
			writeEntry(w, start+i, e)
		}
		return Ok, nil
	}
	for i, e := range entries {
		writeEntry(w, i, e)
	}
	return Ok, nil
}

func cmdPlaylistID(req Request, sess SessionView, w *Writer) (Result, error) {
	q := sess.Partition().Queue()
	if s, ok := req.Arg(0); ok {
		id, err := parseUint(s)
		if err != nil {
			return Ok, err
		}
		e := q.ByID(id)
		if e == nil {
			return Ok, NewProtocolError(AckNoExist, "No such song id")
		}
		writeEntry(w, e.Position, e)
		return Ok, nil
	}
	for i, e := range q.All() {
		writeEntry(w, i, e)
	}
	return Ok, nil
}

func cmdPlChanges(req Request, sess SessionView, w *Writer) (Result, error) {
	version, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	q := sess.Partition().Queue()
	r := queue.Range{Start: 0, End: -1}
	if s, ok := req.Arg(1); ok {
		r, err = ParseRange(s)
		if err != nil {
			return Ok, err
		}
	}
	changed, err := q.Changes(uint64(version), r)
	if err != nil {
		return Ok, err
	}
	for _, ce := range changed {
		writeEntry(w, ce.Position, ce)
	}
	return Ok, nil
}

func cmdPlChangesPosID(req Request, sess SessionView, w *Writer) (Result, error) {
	version, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	q := sess.Partition().Queue()
	r := queue.Range{Start: 0, End: -1}
	if s, ok := req.Arg(1); ok {
		r, err = ParseRange(s)
		if err != nil {
			return Ok, err
		}
	}
	changed, err := q.Changes(uint64(version), r)
	if err != nil {
		return Ok, err
	}
	for _, ce := range changed {
		w.Line("cpos", ce.Position)
		w.Line("Id", ce.ID)
	}
	return Ok, nil
}
