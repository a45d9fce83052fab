package command

func cmdSubscribe(req Request, sess SessionView, _ *Writer) (Result, error) {
	channel, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Subscribe(channel); err != nil {
		return Ok, err
	}
	return Ok, nil
}

func cmdUnsubscribe(req Request, sess SessionView, _ *Writer) (Result, error) {
	channel, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	if err := sess.Unsubscribe(channel); err != nil {
		return Ok, err
	}
	return Ok, nil
}

func cmdChannels(_ Request, sess SessionView, w *Writer) (Result, error) {
	for _, c := range sess.Channels() {
		w.Line("channel", c)
	}
	return Ok, nil
}

func cmdReadMessages(_ Request, sess SessionView, w *Writer) (Result, error) {
	for _, m := range sess.ReadMessages() {
		w.Line("channel", m.Channel)
		w.Line("message", m.Message)
	}
	return Ok, nil
}

func cmdSendMessage(req Request, sess SessionView, w *Writer) (Result, error) {
	channel, ok := req.Arg(0)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	message, ok := req.Arg(1)
	if !ok {
		return Ok, NewProtocolError(AckArg, "too few arguments")
	}
	recipients := 0
	for _, p := range sess.Instance().Partitions() {
		recipients += p.SendMessage(channel, message)
	}
	if recipients == 0 {
		return Ok, NewProtocolError(AckNoExist, "nobody subscribed to this channel")
	}
	return Ok, nil
}
