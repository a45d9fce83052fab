package command

import (
	"strconv"
	"time"

	"github.com/bken/audiompd/internal/idle"
	"github.com/bken/audiompd/internal/player"
)

func playerChanged(sess SessionView) {
	sess.Partition().Broadcast(idle.Player)
}

func cmdPlay(req Request, sess SessionView, _ *Writer) (Result, error) {
	pos := -1
	if _, ok := req.Arg(0); ok {
		n, err := req.Uint(0)
		if err != nil {
			return Ok, err
		}
		pos = int(n)
	}
	if err := sess.Partition().Player().Play(pos); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func cmdPlayID(req Request, sess SessionView, _ *Writer) (Result, error) {
	id := uint32(0)
	if _, ok := req.Arg(0); ok {
		n, err := req.Uint(0)
		if err != nil {
			return Ok, err
		}
		id = n
	}
	if err := sess.Partition().Player().PlayID(id); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func cmdPause(req Request, sess SessionView, _ *Writer) (Result, error) {
	p := sess.Partition().Player()
	if _, ok := req.Arg(0); !ok {
		return Ok, togglePause(sess)
	}
	b, err := req.Bool(0)
	if err != nil {
		return Ok, err
	}
	if err := p.Pause(b); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func togglePause(sess SessionView) error {
	p := sess.Partition().Player()
	current := p.Status().State == player.StatePlay
	if err := p.Pause(current); err != nil {
		return err
	}
	playerChanged(sess)
	return nil
}

func cmdStop(_ Request, sess SessionView, _ *Writer) (Result, error) {
	if err := sess.Partition().Player().Stop(); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func cmdNext(_ Request, sess SessionView, _ *Writer) (Result, error) {
	if err := sess.Partition().Player().Next(); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func cmdPrevious(_ Request, sess SessionView, _ *Writer) (Result, error) {
	if err := sess.Partition().Player().Previous(); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func cmdSeek(req Request, sess SessionView, _ *Writer) (Result, error) {
	pos, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	t, err := req.SongTime(1)
	if err != nil {
		return Ok, err
	}
	p := sess.Partition().Player()
	if err := p.Play(int(pos)); err != nil {
		return Ok, err
	}
	if err := p.Seek(time.Duration(float64(t) * float64(time.Second))); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func cmdSeekID(req Request, sess SessionView, _ *Writer) (Result, error) {
	id, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	t, err := req.SongTime(1)
	if err != nil {
		return Ok, err
	}
	p := sess.Partition().Player()
	if err := p.PlayID(id); err != nil {
		return Ok, err
	}
	if err := p.Seek(time.Duration(float64(t) * float64(time.Second))); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func cmdSeekCur(req Request, sess SessionView, _ *Writer) (Result, error) {
	s, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	relative := len(s) > 0 && (s[0] == '+' || s[0] == '-')
	t, err := req.SignedSongTime(0)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Player().SeekCur(time.Duration(float64(t)*float64(time.Second)), relative); err != nil {
		return Ok, err
	}
	playerChanged(sess)
	return Ok, nil
}

func cmdCurrentSong(_ Request, sess SessionView, w *Writer) (Result, error) {
	q := sess.Partition().Queue()
	pos := q.CurrentPosition()
	if pos < 0 {
		return Ok, nil
	}
	e := q.AtPosition(pos)
	if e == nil {
		return Ok, nil
	}
	writeEntry(w, pos, e)
	return Ok, nil
}

func cmdStatus(_ Request, sess SessionView, w *Writer) (Result, error) {
	part := sess.Partition()
	st := part.Player().Status()
	w.Line("partition", part.Name())
	w.Line("repeat", boolInt(part.Repeat()))
	w.Line("random", boolInt(part.Random()))
	w.Line("single", boolInt(part.Single()))
	w.Line("consume", boolInt(part.Consume()))
	w.Line("playlist", part.Queue().Version())
	w.Line("playlistlength", part.Queue().Len())
	w.Line("state", st.State.String())
	if st.SoftwareVolume >= 0 {
		w.Line("volume", st.SoftwareVolume)
	}
	if pos := part.Queue().CurrentPosition(); pos >= 0 {
		if e := part.Queue().AtPosition(pos); e != nil {
			w.Line("song", pos)
			w.Line("songid", e.ID)
		}
	}
	if st.State != player.StateStop {
		w.Line("time", formatElapsedTotal(st.Elapsed, st.Duration))
		w.Line("elapsed", st.Elapsed.Seconds())
		w.Line("duration", st.Duration.Seconds())
		w.Line("bitrate", st.Bitrate)
		if st.AudioFormat != "" {
			w.Line("audio", st.AudioFormat)
		}
	}
	w.Line("xfade", part.Crossfade().Seconds())
	w.Line("mixrampdb", part.MixRampDB())
	w.Line("mixrampdelay", part.MixRampDelay().Seconds())
	if st.Error != "" {
		w.Line("error", st.Error)
	}
	return Ok, nil
}

func formatElapsedTotal(elapsed, total time.Duration) string {
	return strconv.Itoa(int(elapsed.Seconds())) + ":" + strconv.Itoa(int(total.Seconds()))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cmdClearError(_ Request, sess SessionView, _ *Writer) (Result, error) {
	sess.Partition().Player().ClearError()
	playerChanged(sess)
	return Ok, nil
}
