package command

import "github.com/bken/audiompd/internal/idle"

func playlistsChanged(sess SessionView) {
	sess.Partition().Broadcast(idle.StoredPlaylist)
}

func cmdListPlaylists(_ Request, sess SessionView, w *Writer) (Result, error) {
	if !sess.Instance().PlaylistEnabled() {
		return Ok, NewProtocolError(AckUnknown, "stored playlists disabled")
	}
	names, err := sess.Instance().PlaylistNames()
	if err != nil {
		return Ok, err
	}
	for _, n := range names {
		w.Line("playlist", n)
	}
	return Ok, nil
}

func cmdListPlaylist(req Request, sess SessionView, w *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	uris, err := sess.Instance().PlaylistContents(name)
	if err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such playlist")
	}
	for _, u := range uris {
		w.Line("file", u)
	}
	return Ok, nil
}

func cmdLoad(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().PlaylistLoad(name, sess.Partition().Queue()); err != nil {
		return Ok, NewProtocolError(AckPlaylistLoad, "could not load playlist: %v", err)
	}
	playlistChanged(sess)
	return Ok, nil
}

func cmdSave(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().PlaylistSave(name, sess.Partition().Queue()); err != nil {
		return Ok, err
	}
	playlistsChanged(sess)
	return Ok, nil
}

func cmdRm(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().PlaylistRemove(name); err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such playlist")
	}
	playlistsChanged(sess)
	return Ok, nil
}

func cmdRename(req Request, sess SessionView, _ *Writer) (Result, error) {
	oldName, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	newName, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().PlaylistRename(oldName, newName); err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such playlist")
	}
	playlistsChanged(sess)
	return Ok, nil
}

func cmdPlaylistAdd(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	uri, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().PlaylistAppend(name, uri); err != nil {
		return Ok, err
	}
	playlistsChanged(sess)
	return Ok, nil
}

func cmdPlaylistClear(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().PlaylistClear(name); err != nil {
		return Ok, err
	}
	playlistsChanged(sess)
	return Ok, nil
}

func cmdPlaylistDelete(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	pos, err := req.Uint(1)
	if err != nil {
		return Ok, err
	}
	if err := sess.Instance().PlaylistDeletePos(name, int(pos)); err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such song")
	}
	playlistsChanged(sess)
	return Ok, nil
}

func cmdPlaylistMove(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	from, err := req.Uint(1)
	if err != nil {
		return Ok, err
	}
	to, err := req.Uint(2)
	if err != nil {
		return Ok, err
	}
	if err := sess.Instance().PlaylistMove(name, int(from), int(to)); err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such song")
	}
	playlistsChanged(sess)
	return Ok, nil
}
