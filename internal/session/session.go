// Package session implements ClientSession (spec.md §4.3): the
// line-buffered protocol engine that reads commands off one connection,
// drives the idle Active/Waiting state machine, frames command lists,
// and bridges to the owning Partition/Instance.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bken/audiompd/internal/command"
	"github.com/bken/audiompd/internal/eventloop"
	"github.com/bken/audiompd/internal/idle"
	"github.com/bken/audiompd/internal/instance"
	"github.com/bken/audiompd/internal/partition"
)

const (
	greeting             = "OK MPD 0.23.5\n"
	maxCommandListSize   = 1024
	maxSubscribedChannels = 16
	maxQueuedMessages     = 64
	defaultBinaryLimit    = 8192
	minBinaryLimit        = 64
)

type sessionState int

const (
	stateActive sessionState = iota
	stateWaiting
	stateCollecting
	stateBackground
)

var nextSessionID atomic.Uint64

// Session is one ClientSession: a connection, its parser state machine,
// and its attachment to a Partition/Instance.
type Session struct {
	id   uint64
	conn net.Conn
	loop *eventloop.Loop
	inst *instance.Instance

	limiter *rate.Limiter

	writeMu sync.Mutex
	bw      *bufio.Writer

	mu             sync.Mutex
	state          sessionState
	part           *partition.Partition
	perm           command.Permission
	binaryLimit    int
	pending        idle.Kind // bits accumulated while Active, awaiting the next idle call
	subscriptions  idle.Kind // bits this session is Waiting on
	collected      []command.Request
	okMode         bool // command_list_ok_begin: emit list_OK after each entry
	channels       map[string]bool
	messages       []command.SessionMessage
	bgCancel       func()
}

// New creates a Session attached to part, reading/writing conn, with its
// mutating work serialized onto loop via Inject. perm is the permission
// mask granted before any `password` command (PermRead|PermAdd for the
// unauthenticated default, per spec.md's password-gated permission mask).
func New(conn net.Conn, loop *eventloop.Loop, inst *instance.Instance, part *partition.Partition, perm command.Permission) *Session {
	s := &Session{
		id:          nextSessionID.Add(1),
		conn:        conn,
		loop:        loop,
		inst:        inst,
		part:        part,
		perm:        perm,
		binaryLimit: defaultBinaryLimit,
		channels:    make(map[string]bool),
		limiter:     rate.NewLimiter(rate.Limit(50), 100),
		bw:          bufio.NewWriter(conn),
	}
	part.Attach(s)
	return s
}

// SessionID implements partition.Client.
func (s *Session) SessionID() uint64 { return s.id }

// Serve runs the read loop until the connection closes or a `kill`/`close`
// command is processed. It blocks the calling goroutine (one per
// connection); all protocol-mutating work is still serialized onto the
// owning Loop via Inject, per spec.md §4.1's single-writer invariant.
func (s *Session) Serve() {
	defer s.cleanup()

	s.writeMu.Lock()
	s.bw.WriteString(greeting)
	err := s.bw.Flush()
	s.writeMu.Unlock()
	if err != nil {
		return
	}

	reader := bufio.NewReaderSize(s.conn, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				slog.Debug("session read error", "session", s.id, "err", err)
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if err := s.limiter.Wait(context.Background()); err != nil {
			return
		}

		done := make(chan bool, 1)
		s.loop.Inject(func() {
			cont, kill := s.processLine(line)
			done <- cont
			if kill {
				s.loop.Break()
			}
		})
		cont := <-done
		if !cont {
			return
		}

		// A Background result pauses input until the worker completes
		// (spec.md §4.6): block the read goroutine on a resume signal the
		// Inject callback installed.
		s.mu.Lock()
		bg := s.state == stateBackground
		s.mu.Unlock()
		if bg {
			<-s.awaitBackgroundDone()
		}
	}
}

// awaitBackgroundDone blocks until the installed background worker
// signals completion by flipping state back out of stateBackground.
func (s *Session) awaitBackgroundDone() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		for {
			s.mu.Lock()
			done := s.state != stateBackground
			s.mu.Unlock()
			if done {
				close(ch)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	return ch
}

func (s *Session) cleanup() {
	s.mu.Lock()
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.mu.Unlock()
	s.part.Detach(s)
	s.conn.Close()
}

// processLine runs on the Loop goroutine. It returns cont=false when the
// read goroutine should stop reading (connection closing), and kill=true
// when the EventLoop itself should shut down.
func (s *Session) processLine(line string) (cont bool, kill bool) {
	if line == "" {
		return true, false
	}
	if c := line[0]; c < 'a' || c > 'z' {
		return false, false
	}

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == stateWaiting {
		if line == "noidle" {
			s.leaveWaiting()
			return true, false
		}
		return false, false
	}

	name, args, err := tokenize(line)
	if err != nil {
		s.writeRaw(fmt.Sprintf("ACK [2@0] {} %s\n", err.Error()))
		return true, false
	}
	req := command.Request{Name: name, Args: args}

	if state == stateCollecting {
		switch name {
		case "command_list_end":
			s.runCollected()
			return true, false
		default:
			s.mu.Lock()
			if len(s.collected) >= maxCommandListSize {
				s.mu.Unlock()
				return false, false
			}
			s.collected = append(s.collected, req)
			s.mu.Unlock()
			return true, false
		}
	}

	switch name {
	case "command_list_begin", "command_list_ok_begin":
		// command_list_ok_begin emits list_OK after each successful entry;
		// command_list_begin stays silent until the final OK.
		s.mu.Lock()
		s.state = stateCollecting
		s.collected = nil
		s.okMode = name == "command_list_ok_begin"
		s.mu.Unlock()
		return true, false
	case "idle":
		s.handleIdle(args)
		return true, false
	case "noidle":
		s.writeRaw("OK\n")
		return true, false
	}

	w := command.NewWriter(s.bw, s.binaryLimitSnapshot())
	s.writeMu.Lock()
	result := command.Dispatch(req, s, w, 0, command.Standalone)
	w.Flush()
	s.writeMu.Unlock()

	switch result {
	case command.Close:
		return false, false
	case command.Kill:
		return false, true
	case command.Background:
		s.mu.Lock()
		s.state = stateBackground
		s.mu.Unlock()
		return true, false
	default:
		return true, false
	}
}

func (s *Session) binaryLimitSnapshot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binaryLimit
}

func (s *Session) runCollected() {
	s.mu.Lock()
	collected := s.collected
	okMode := s.okMode
	s.state = stateActive
	s.collected = nil
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	framing := command.ListSilent
	if okMode {
		framing = command.ListOK
	}
	w := command.NewWriter(s.bw, s.binaryLimitSnapshot())
	for i, req := range collected {
		result := command.Dispatch(req, s, w, i, framing)
		if result != command.Ok {
			// Any non-Ok result (an error, or Background/Idle/Close/Kill)
			// ends the list immediately without the final OK. The
			// connection stays open: Close and Kill inside a command list
			// do not close it.
			w.Flush()
			return
		}
	}
	w.OK()
	w.Flush()
}

func (s *Session) handleIdle(args []string) {
	mask := idle.All
	if len(args) > 0 {
		mask = 0
		for _, a := range args {
			bit, ok := idle.ParseName(a)
			if ok {
				mask |= bit
			}
		}
	}

	s.mu.Lock()
	ready := s.pending & mask
	if ready != 0 {
		s.pending &^= ready
		s.mu.Unlock()
		s.emitIdleResult(ready)
		return
	}
	s.subscriptions = mask
	s.state = stateWaiting
	s.mu.Unlock()
}

func (s *Session) leaveWaiting() {
	s.mu.Lock()
	s.state = stateActive
	s.mu.Unlock()
	s.writeRaw("OK\n")
}

func (s *Session) emitIdleResult(mask idle.Kind) {
	var b strings.Builder
	for _, n := range idle.Names(mask) {
		fmt.Fprintf(&b, "changed: %s\n", n)
	}
	b.WriteString("OK\n")
	s.writeRaw(b.String())
}

func (s *Session) writeRaw(str string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.bw.WriteString(str)
	s.bw.Flush()
}

// NotifyIdle implements partition.Client: raises bits on this session's
// pending idle mask, delivering them immediately if the session is
// currently Waiting on a matching subscription (spec.md §4.3's
// "idle_add" path). Safe from any goroutine — the partition's idle
// dispatch goroutine calls this directly.
func (s *Session) NotifyIdle(kind idle.Kind) {
	s.mu.Lock()
	if s.state == stateWaiting {
		ready := kind & s.subscriptions
		if ready != 0 {
			s.state = stateActive
			s.mu.Unlock()
			s.emitIdleResult(ready)
			return
		}
	}
	s.pending |= kind
	s.mu.Unlock()
}

// Deliver implements the duck-typed interface partition.SendMessage looks
// for: append message to this session's queue if subscribed to channel,
// returning whether it was accepted.
func (s *Session) Deliver(channel, message string) bool {
	s.mu.Lock()
	if !s.channels[channel] || len(s.messages) >= maxQueuedMessages {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages, command.SessionMessage{Channel: channel, Message: message})
	s.mu.Unlock()
	s.NotifyIdle(idle.Message)
	return true
}

// Permission implements command.SessionView.
func (s *Session) Permission() command.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perm
}

// SetPermission implements command.SessionView.
func (s *Session) SetPermission(p command.Permission) {
	s.mu.Lock()
	s.perm = p
	s.mu.Unlock()
}

// Partition implements command.SessionView.
func (s *Session) Partition() command.PartitionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.part
}

// Instance implements command.SessionView.
func (s *Session) Instance() command.InstanceView { return s.inst }

// BinaryLimit implements command.SessionView.
func (s *Session) BinaryLimit() int { return s.binaryLimitSnapshot() }

// SetBinaryLimit implements command.SessionView (spec.md §4.3:
// "64 <= N <= output_buffer_max - 4096").
func (s *Session) SetBinaryLimit(n int) {
	if n < minBinaryLimit {
		n = minBinaryLimit
	}
	s.mu.Lock()
	s.binaryLimit = n
	s.mu.Unlock()
}

// Subscribe implements command.SessionView.
func (s *Session) Subscribe(channel string) error {
	if channel == "" || !isPrintableASCII(channel) {
		return fmt.Errorf("invalid channel name")
	}
	s.mu.Lock()
	if len(s.channels) >= maxSubscribedChannels && !s.channels[channel] {
		s.mu.Unlock()
		return fmt.Errorf("subscription limit reached")
	}
	s.channels[channel] = true
	s.mu.Unlock()
	s.part.Broadcast(idle.Subscription)
	return nil
}

// Unsubscribe implements command.SessionView.
func (s *Session) Unsubscribe(channel string) error {
	s.mu.Lock()
	if !s.channels[channel] {
		s.mu.Unlock()
		return fmt.Errorf("not subscribed to %q", channel)
	}
	delete(s.channels, channel)
	s.mu.Unlock()
	s.part.Broadcast(idle.Subscription)
	return nil
}

// Channels implements command.SessionView.
func (s *Session) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for c := range s.channels {
		out = append(out, c)
	}
	return out
}

// ReadMessages implements command.SessionView: drains and returns every
// queued message.
func (s *Session) ReadMessages() []command.SessionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.messages
	s.messages = nil
	return out
}

// TagTypesEnabled implements command.SessionView.
func (s *Session) TagTypesEnabled() []string {
	return []string{"Artist", "Album", "Title", "Track", "Genre", "Date", "Composer", "Performer"}
}

// MovePartition implements command.SessionView (spec.md's "Partition
// migration").
func (s *Session) MovePartition(name string) error {
	newPart, ok := s.inst.PartitionStruct(name)
	if !ok {
		return fmt.Errorf("no such partition %q", name)
	}
	s.mu.Lock()
	old := s.part
	s.part = newPart
	s.mu.Unlock()

	old.Detach(s)
	newPart.Attach(s)
	s.NotifyIdle(idle.Playlist | idle.Player | idle.Mixer | idle.Output | idle.Options)
	return nil
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// tokenize splits a command line into its name and arguments, honoring
// MPD's double-quoted, backslash-escaped argument syntax.
func tokenize(line string) (string, []string, error) {
	var tokens []string
	i := 0
	n := len(line)
	for i < n {
		for i < n && line[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		var tok strings.Builder
		if line[i] == '"' {
			i++
			for i < n && line[i] != '"' {
				if line[i] == '\\' && i+1 < n {
					i++
				}
				tok.WriteByte(line[i])
				i++
			}
			if i >= n {
				return "", nil, errors.New("Malformed command")
			}
			i++ // closing quote
		} else {
			for i < n && line[i] != ' ' {
				tok.WriteByte(line[i])
				i++
			}
		}
		tokens = append(tokens, tok.String())
	}
	if len(tokens) == 0 {
		return "", nil, errors.New("Malformed command")
	}
	return tokens[0], tokens[1:], nil
}
