package command

func cmdPartition(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.MovePartition(name); err != nil {
		return Ok, err
	}
	return Ok, nil
}

func cmdListPartitions(_ Request, sess SessionView, w *Writer) (Result, error) {
	for _, p := range sess.Instance().Partitions() {
		w.Line("partition", p.Name())
	}
	return Ok, nil
}

func cmdNewPartition(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().NewPartition(name); err != nil {
		return Ok, err
	}
	return Ok, nil
}

func cmdDelPartition(req Request, sess SessionView, _ *Writer) (Result, error) {
	name, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Instance().DeletePartition(name); err != nil {
		return Ok, err
	}
	return Ok, nil
}
