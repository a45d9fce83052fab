package command

import "github.com/bken/audiompd/internal/idle"

func outputChanged(sess SessionView) {
	sess.Partition().Broadcast(idle.Output)
}

func cmdOutputs(_ Request, sess SessionView, w *Writer) (Result, error) {
	for i, o := range sess.Partition().Outputs().All() {
		w.Line("outputid", i)
		w.Line("outputname", o.Name)
		w.Line("plugin", o.Plugin)
		w.Line("outputenabled", boolInt(o.Enabled))
	}
	return Ok, nil
}

func cmdEnableOutput(req Request, sess SessionView, _ *Writer) (Result, error) {
	i, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Outputs().Enable(int(i)); err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such output")
	}
	outputChanged(sess)
	return Ok, nil
}

func cmdDisableOutput(req Request, sess SessionView, _ *Writer) (Result, error) {
	i, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Outputs().Disable(int(i)); err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such output")
	}
	outputChanged(sess)
	return Ok, nil
}

func cmdToggleOutput(req Request, sess SessionView, _ *Writer) (Result, error) {
	i, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	if _, err := sess.Partition().Outputs().Toggle(int(i)); err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such output")
	}
	outputChanged(sess)
	return Ok, nil
}

func cmdOutputSet(req Request, sess SessionView, _ *Writer) (Result, error) {
	i, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	o := sess.Partition().Outputs().At(int(i))
	if o == nil {
		return Ok, NewProtocolError(AckNoExist, "No such output")
	}
	name, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	value, ok := req.Arg(2)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if o.Attrs == nil {
		o.Attrs = make(map[string]string)
	}
	o.Attrs[name] = value
	outputChanged(sess)
	return Ok, nil
}

func cmdMoveOutput(req Request, sess SessionView, _ *Writer) (Result, error) {
	from, err := req.Uint(0)
	if err != nil {
		return Ok, err
	}
	to, err := req.Uint(1)
	if err != nil {
		return Ok, err
	}
	if err := sess.Partition().Outputs().Move(int(from), int(to)); err != nil {
		return Ok, NewProtocolError(AckNoExist, "No such output")
	}
	outputChanged(sess)
	return Ok, nil
}
