package command

import (
	"time"

	"github.com/bken/audiompd/internal/idle"
	"github.com/bken/audiompd/internal/player"
)

func optionsChanged(sess SessionView) {
	sess.Partition().Broadcast(idle.Options)
}

func boolOption(set func(PartitionView, bool)) Handler {
	return func(req Request, sess SessionView, _ *Writer) (Result, error) {
		b, err := req.Bool(0)
		if err != nil {
			return Ok, err
		}
		set(sess.Partition(), b)
		optionsChanged(sess)
		return Ok, nil
	}
}

var cmdRepeat = boolOption(func(p PartitionView, b bool) { p.SetRepeat(b) })
var cmdRandom = boolOption(func(p PartitionView, b bool) { p.SetRandom(b) })
var cmdSingle = boolOption(func(p PartitionView, b bool) { p.SetSingle(b) })
var cmdConsume = boolOption(func(p PartitionView, b bool) { p.SetConsume(b) })

func cmdCrossfade(req Request, sess SessionView, _ *Writer) (Result, error) {
	secs, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	sess.Partition().SetCrossfade(time.Duration(secs) * time.Second)
	optionsChanged(sess)
	return Ok, nil
}

func cmdMixRampDB(req Request, sess SessionView, _ *Writer) (Result, error) {
	db, err := req.Float(0)
	if err != nil {
		return Ok, err
	}
	sess.Partition().SetMixRampDB(db)
	optionsChanged(sess)
	return Ok, nil
}

func cmdMixRampDelay(req Request, sess SessionView, _ *Writer) (Result, error) {
	secs, err := req.Float(0)
	if err != nil {
		return Ok, err
	}
	sess.Partition().SetMixRampDelay(time.Duration(secs * float64(time.Second)))
	optionsChanged(sess)
	return Ok, nil
}

var replayGainNames = map[player.ReplayGainMode]string{
	player.ReplayGainOff:   "off",
	player.ReplayGainTrack: "track",
	player.ReplayGainAlbum: "album",
	player.ReplayGainAuto:  "auto",
}

var replayGainByName = map[string]player.ReplayGainMode{
	"off":   player.ReplayGainOff,
	"track": player.ReplayGainTrack,
	"album": player.ReplayGainAlbum,
	"auto":  player.ReplayGainAuto,
}

func cmdReplayGainMode(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	mode, ok := replayGainByName[name]
	if !ok {
		return Ok, NewProtocolError(AckArg, "Unrecognized replay gain mode: %s", name)
	}
	sess.Partition().SetReplayGainMode(mode)
	optionsChanged(sess)
	return Ok, nil
}

func cmdReplayGainStatus(_ Request, sess SessionView, w *Writer) (Result, error) {
	w.Line("replay_gain_mode", replayGainNames[sess.Partition().ReplayGainMode()])
	return Ok, nil
}

func cmdSetVol(req Request, sess SessionView, _ *Writer) (Result, error) {
	percent, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Player().SetVolume(int(percent)); err != nil {
		return Ok, err
	}
	sess.Partition().Broadcast(idle.Mixer)
	return Ok, nil
}

func cmdGetVol(_ Request, sess SessionView, w *Writer) (Result, error) {
	st := sess.Partition().Player().Status()
	if st.SoftwareVolume < 0 {
		return Ok, nil
	}
	w.Line("volume", st.SoftwareVolume)
	return Ok, nil
}

func cmdVolume(req Request, sess SessionView, _ *Writer) (Result, error) {
	delta, err := req.Int(0)
	if err != nil {
		return Ok, err
	}
	p := sess.Partition().Player()
	st := p.Status()
	target := st.SoftwareVolume + int(delta)
	if target < 0 {
		target = 0
	}
	if target > 100 {
		target = 100
	}
	if err := p.SetVolume(target); err != nil {
		return Ok, err
	}
	sess.Partition().Broadcast(idle.Mixer)
	return Ok, nil
}
