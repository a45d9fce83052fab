// Package stickercleanup implements the one-shot background reconciliation
// job between the sticker store and the Database described in spec.md
// §4.8, grounded on the teacher's ChannelRecorder worker-thread-plus-
// completion-callback shape (recording.go) and the ticker-driven purge
// idiom in main.go's PurgeExpiredBans call.
package stickercleanup

import (
	"context"
	"log/slog"

	"github.com/bken/audiompd/internal/database"
	"github.com/bken/audiompd/internal/stickerdb"
)

const batchSize = 50

// Result is reported to the completion callback (spec.md §4.8 step 4).
type Result struct {
	DeletedCount int
	Changed      bool
	Err          error
}

// Run performs one cleanup pass against db, using its own sticker-store
// connection (opened by the caller — spec.md §5 says the cleanup worker
// must not share the main thread's connection), and returns once done or
// cancelled. It never deletes a sticker whose filter the Database
// currently matches at decision time (spec.md §8.6).
func Run(ctx context.Context, stickers *stickerdb.Store, db database.Database) Result {
	pairs, err := stickers.UniquePairs(ctx)
	if err != nil {
		return Result{Err: err}
	}

	var batch []stickerdb.Pair
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := stickers.DeleteBatch(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, p := range pairs {
		select {
		case <-ctx.Done():
			return Result{DeletedCount: total, Changed: total > 0, Err: ctx.Err()}
		default:
		}

		filter := database.Filter{Conditions: map[string]string{"uri": p.URI}}
		if !filter.Valid() {
			// Not a parseable filter: drop from the candidate set, not an
			// orphan (spec.md §4.8 step 2).
			continue
		}
		n, err := db.CountMatches(ctx, filter)
		if err != nil {
			slog.Error("sticker cleanup: database query failed", "type", p.Type, "uri", p.URI, "err", err)
			continue
		}
		if n > 0 {
			continue // sticker is live
		}
		batch = append(batch, p)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return Result{DeletedCount: total, Changed: total > 0, Err: err}
			}
		}
	}
	if err := flush(); err != nil {
		return Result{DeletedCount: total, Changed: total > 0, Err: err}
	}
	return Result{DeletedCount: total, Changed: total > 0}
}

// Worker drives repeated Run passes, coalescing re-requests made while a
// pass is in flight (spec.md §4.8: "if another cleanup was requested
// during execution, immediately starts a new one").
type Worker struct {
	stickerPath string
	db          database.Database
	onDone      func(Result)

	requests chan struct{}
	cancel   context.CancelFunc
}

// NewWorker creates a Worker. onDone is invoked on the goroutine that calls
// Run (the caller is expected to bounce it onto its EventLoop via Inject,
// matching spec.md §4.8 step 4); Run's openStickers opens a fresh sticker
// connection for each pass per spec.md §5.
func NewWorker(db database.Database, onDone func(Result)) *Worker {
	return &Worker{db: db, onDone: onDone, requests: make(chan struct{}, 1)}
}

// Request asks for a cleanup pass; coalesces with a pass already queued. A
// request made while a pass is running queues one more pass after it.
func (w *Worker) Request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

// Run drives passes until ctx is cancelled. openStickers must return a
// fresh *stickerdb.Store connection (or an error) for each pass.
func (w *Worker) Run(ctx context.Context, openStickers func() (*stickerdb.Store, error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
		}

		st, err := openStickers()
		if err != nil {
			w.onDone(Result{Err: err})
			continue
		}
		res := Run(ctx, st, w.db)
		_ = st.Close()
		w.onDone(res)

		if ctx.Err() != nil {
			return
		}
	}
}
