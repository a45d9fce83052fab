package command

import "errors"

// Framing controls what Dispatch writes after a successful command,
// per spec.md §4.3's command_list framing rule.
type Framing int

const (
	// Standalone writes "OK\n", for a command outside any list.
	Standalone Framing = iota
	// ListSilent writes nothing; command_list_begin (ok_mode: false)
	// defers all framing to the list's own final "OK\n".
	ListSilent
	// ListOK writes "list_OK\n", for command_list_ok_begin entries.
	ListOK
)

// Dispatch looks up req.Name, checks permission and arity, runs the
// handler, and writes the appropriate OK/list_OK/ACK framing. idx is the
// command's position within its command_list (0 for a standalone
// command) and is only used for the ACK's "@idx" field.
func Dispatch(req Request, sess SessionView, w *Writer, idx int, framing Framing) Result {
	cmd, ok := Lookup(req.Name)
	if !ok {
		w.ACK(AckUnknown, idx, req.Name, "unknown command \""+req.Name+"\"")
		return Ok
	}
	if !sess.Permission().Has(cmd.Permission) {
		w.ACK(AckPermission, idx, req.Name, "you don't have permission for \""+req.Name+"\"")
		return Ok
	}
	if err := checkArity(cmd, len(req.Args)); err != nil {
		w.ACK(AckArg, idx, req.Name, err.Error())
		return Ok
	}

	result, err := cmd.Handler(req, sess, w)
	if err != nil {
		code, msg := translateError(err)
		w.ACK(code, idx, req.Name, msg)
		return Ok
	}

	switch result {
	case Background, Idle, Close, Kill:
		return result
	default:
		switch framing {
		case ListOK:
			w.ListOK()
		case Standalone:
			w.OK()
		}
		return Ok
	}
}

func checkArity(cmd Command, n int) error {
	if cmd.MinArgs < 0 {
		return nil
	}
	if n < cmd.MinArgs {
		return errors.New("too few arguments")
	}
	if cmd.MaxArgs >= 0 && n > cmd.MaxArgs {
		return errors.New("too many arguments")
	}
	return nil
}

// translateError maps a handler's returned error to an ACK code and
// message (spec.md §7). A *ProtocolError carries its own code; anything
// else is a system error (ACK 52).
func translateError(err error) (int, string) {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return perr.Code, perr.Message
	}
	return AckSystem, err.Error()
}
