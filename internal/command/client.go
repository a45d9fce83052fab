package command

import "sort"

// cmdIdle and cmdNoIdle are recognized specially by internal/session
// before reaching the registry (spec.md §4.3: idle has its own
// Active/Waiting/Background state machine and frames its own response).
// They're registered here only so `commands`/`notcommands` can describe
// them; Dispatch never actually invokes them.
func cmdIdle(_ Request, _ SessionView, _ *Writer) (Result, error) {
	return Idle, nil
}

func cmdNoIdle(_ Request, _ SessionView, _ *Writer) (Result, error) {
	return Ok, nil
}

func cmdClose(_ Request, _ SessionView, _ *Writer) (Result, error) {
	return Close, nil
}

func cmdPing(_ Request, _ SessionView, _ *Writer) (Result, error) {
	return Ok, nil
}

func cmdKill(_ Request, _ SessionView, _ *Writer) (Result, error) {
	return Kill, nil
}

func cmdTagTypes(_ Request, sess SessionView, w *Writer) (Result, error) {
	for _, t := range sess.TagTypesEnabled() {
		w.Line("tagtype", t)
	}
	return Ok, nil
}

func cmdCommands(_ Request, sess SessionView, w *Writer) (Result, error) {
	perm := sess.Permission()
	names := make([]string, 0, len(Registry))
	for _, c := range Registry {
		if perm.Has(c.Permission) {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		w.Line("command", n)
	}
	return Ok, nil
}

func cmdNotCommands(_ Request, sess SessionView, w *Writer) (Result, error) {
	perm := sess.Permission()
	names := make([]string, 0, len(Registry))
	for _, c := range Registry {
		if !perm.Has(c.Permission) {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		w.Line("command", n)
	}
	return Ok, nil
}

func cmdBinaryLimit(req Request, sess SessionView, _ *Writer) (Result, error) {
	n, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	// spec.md §4.3: "64 <= N <= output_buffer_max - 4096".
	const outputBufferMax = 1 << 20
	if n < 64 || n > outputBufferMax-4096 {
		return Ok, NewProtocolError(AckArg, "Value too large")
	}
	sess.SetBinaryLimit(int(n))
	return Ok, nil
}

func cmdStats(_ Request, sess SessionView, w *Writer) (Result, error) {
	stats := sess.Instance().Stats()
	w.Line("artists", stats.Artists)
	w.Line("albums", stats.Albums)
	w.Line("songs", stats.Songs)
	w.Line("uptime", int64(sess.Instance().Uptime().Seconds()))
	w.Line("db_playtime", int64(stats.DBPlaytime))
	w.Line("db_update", stats.DBUpdate)
	return Ok, nil
}
