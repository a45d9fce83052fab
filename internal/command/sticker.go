package command

import "github.com/bken/audiompd/internal/idle"

// cmdSticker multiplexes `sticker {get|set|delete|list|find} TYPE URI ...`
// (spec.md §6) behind one registry entry, matching the historical command
// surface.
func cmdSticker(req Request, sess SessionView, w *Writer) (Result, error) {
	if !sess.Instance().StickerEnabled() {
		return Ok, NewProtocolError(AckUnknown, "sticker database disabled")
	}
	op, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	typ, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	uri, ok := req.Arg(2)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}

	inst := sess.Instance()
	switch op {
	case "get":
		name, ok := req.Arg(3)
		if !ok {
			return Ok, NewProtocolError(AckArg, "too few arguments")
		}
		value, found, err := inst.StickerGet(typ, uri, name)
		if err != nil {
			return Ok, err
		}
		if !found {
			return Ok, NewProtocolError(AckNoExist, "no such sticker")
		}
		w.Line("sticker", name+"="+value)
		return Ok, nil

	case "set":
		name, ok := req.Arg(3)
		if !ok {
			return Ok, NewProtocolError(AckArg, "too few arguments")
		}
		value, ok := req.Arg(4)
		if !ok {
			return Ok, NewProtocolError(AckArg, "too few arguments")
		}
		if err := inst.StickerSet(typ, uri, name, value); err != nil {
			return Ok, err
		}
		sess.Partition().Broadcast(idle.Sticker)
		return Ok, nil

	case "delete":
		name, _ := req.Arg(3)
		if err := inst.StickerDelete(typ, uri, name); err != nil {
			return Ok, err
		}
		sess.Partition().Broadcast(idle.Sticker)
		return Ok, nil

	case "list":
		values, err := inst.StickerList(typ, uri)
		if err != nil {
			return Ok, err
		}
		for name, value := range values {
			w.Line("sticker", name+"="+value)
		}
		return Ok, nil

	case "find":
		name, ok := req.Arg(3)
		if !ok {
			return Ok, NewProtocolError(AckArg, "too few arguments")
		}
		cmpOp, _ := req.Arg(4)
		value, _ := req.Arg(5)
		matches, err := inst.StickerFind(typ, name, cmpOp, value)
		if err != nil {
			return Ok, err
		}
		for matchURI, v := range matches {
			w.Line("file", matchURI)
			w.Line("sticker", name+"="+v)
		}
		return Ok, nil

	default:
		return Ok, NewProtocolError(AckArg, "unknown sticker operation: %s", op)
	}
}
