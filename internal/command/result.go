package command

// Result is what a handler returns to the dispatch loop (spec.md §4.6,
// §7). Most handlers return Ok after writing their response lines and
// leave the OK/ACK framing to Dispatch; a handler returns Background to
// signal it has installed a BackgroundCommand instead of finishing
// synchronously.
type Result int

const (
	Ok Result = iota
	Idle
	Background
	Close
	Kill
)

// Handler executes one command's business logic. It writes 0+ response
// lines via w; Dispatch adds the trailing OK/list_OK/ACK framing itself
// except when the handler returns Background (which owns its own
// completion framing from the Inject), Idle (the idle subsystem frames
// its own response), or Close/Kill (the connection is closed instead).
type Handler func(req Request, sess SessionView, w *Writer) (Result, error)
