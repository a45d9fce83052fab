// Package eventloop implements the single-threaded reactor described in
// spec.md §4.1: coarse timers and cross-thread "inject" callbacks, all
// dispatched on one goroutine. The loop does not watch sockets; it has no
// readable-socket attach operation.
package eventloop

import (
	"log/slog"
	"sync"
	"time"
)

// Handle is returned by ScheduleTimer/Inject; Cancel is idempotent and
// (per spec.md §4.1) must only be called from the loop goroutine — except
// for handles returned by Inject, whose whole point is cross-thread
// cancellation: their Cancel is safe from any goroutine.
type Handle struct {
	cancel func()
}

// Cancel stops the scheduled/attached callback. Safe to call more than once.
func (h *Handle) Cancel() {
	if h == nil || h.cancel == nil {
		return
	}
	h.cancel()
}

type timerEntry struct {
	id      uint64
	fire    time.Time
	cb      func()
	active  bool
	oneShot bool
}

// Loop is a single-threaded reactor. All ScheduleTimer calls and the cb
// invocations they produce happen only on the goroutine that calls Run.
// Inject is the sole thread-safe entry point.
type Loop struct {
	name string

	mu       sync.Mutex
	timers   map[uint64]*timerEntry
	nextID   uint64
	breakCh  chan struct{}
	injectCh chan func()
	running  bool
}

// New creates a Loop. name is used only for log correlation.
func New(name string) *Loop {
	return &Loop{
		name:     name,
		timers:   make(map[uint64]*timerEntry),
		breakCh:  make(chan struct{}),
		injectCh: make(chan func(), 256),
	}
}

// ScheduleTimer arranges for cb to run once, after d, on the loop
// goroutine. Must be called from the loop goroutine (mirrors spec.md's
// EventLoop::AddTimer, which is not itself thread-safe — use Inject to
// schedule a timer from another goroutine).
func (l *Loop) ScheduleTimer(d time.Duration, cb func()) *Handle {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	entry := &timerEntry{id: id, fire: time.Now().Add(d), cb: cb, active: true, oneShot: true}
	l.timers[id] = entry
	l.mu.Unlock()

	return &Handle{cancel: func() {
		l.mu.Lock()
		delete(l.timers, id)
		l.mu.Unlock()
	}}
}

// Inject schedules cb to run on the loop goroutine. Safe to call from any
// goroutine, including the loop goroutine itself (runs after the current
// callback returns, per spec.md §4.1 ordering rules).
func (l *Loop) Inject(cb func()) *Handle {
	cancelled := make(chan struct{})
	var once sync.Once
	wrapped := func() {
		select {
		case <-cancelled:
			return
		default:
		}
		cb()
	}
	select {
	case l.injectCh <- wrapped:
	default:
		// Queue full: hand the send to a helper goroutine rather than
		// silently drop — cb must still run on the loop goroutine, and a
		// full queue means the loop is badly backed up; logging makes that
		// visible instead of hiding work.
		slog.Warn("eventloop inject queue full, deferring enqueue", "loop", l.name)
		go func() { l.injectCh <- wrapped }()
	}
	return &Handle{cancel: func() {
		once.Do(func() { close(cancelled) })
	}}
}

// Run processes timers and injected callbacks until Break is called. It
// blocks the calling goroutine; callers should run it in its own goroutine
// or as main()'s final call.
func (l *Loop) Run() {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()

	for {
		l.mu.Lock()
		var next *timerEntry
		for _, t := range l.timers {
			if next == nil || t.fire.Before(next.fire) {
				next = t
			}
		}
		l.mu.Unlock()

		var timerC <-chan time.Time
		var timer *time.Timer
		if next != nil {
			d := time.Until(next.fire)
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
			timerC = timer.C
		}

		select {
		case <-l.breakCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case cb := <-l.injectCh:
			if timer != nil {
				timer.Stop()
			}
			cb()
		case <-timerC:
			l.mu.Lock()
			if e, ok := l.timers[next.id]; ok && e.active {
				delete(l.timers, next.id)
			}
			l.mu.Unlock()
			next.cb()
		}
	}
}

// Break stops Run. Safe to call from any goroutine, and idempotent; a
// Break issued before Run has started makes Run return at once.
func (l *Loop) Break() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.breakCh:
		return
	default:
	}
	l.running = false
	close(l.breakCh)
}
