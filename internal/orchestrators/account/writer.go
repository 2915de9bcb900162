package account

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/globalstate"
)

// DefaultWriteDelay is the quiet period after the last edit before the
// pending snapshot is committed to the remote store.
const DefaultWriteDelay = 10 * time.Second

// Writer coalesces remote snapshot writes. A new Enqueue for an account
// replaces that account's pending payload and restarts its quiet-period
// timer, so a burst of edits commits only the final state. Each account has
// its own pending slot; edits on one account never cancel another's write.
//
// A failed timer write is logged and its slot cleared. There is no retry:
// the next edit schedules a fresh write carrying the then-current state.
type Writer struct {
	repo  globalstate.Repository
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingWrite
}

type pendingWrite struct {
	timer *time.Timer
	state *entities.GlobalState
}

// WriterConfig contains configuration for the debounced writer.
type WriterConfig struct {
	Repository globalstate.Repository
	// Delay overrides the quiet period. Defaults to DefaultWriteDelay.
	Delay time.Duration
}

// Validate validates the WriterConfig.
func (cfg *WriterConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Repository == nil {
		return errors.InvalidArgument("repository cannot be nil")
	}
	return nil
}

// NewWriter creates a debounced remote snapshot writer.
func NewWriter(cfg *WriterConfig) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultWriteDelay
	}

	return &Writer{
		repo:    cfg.Repository,
		delay:   delay,
		pending: make(map[string]*pendingWrite),
	}, nil
}

// Enqueue schedules a remote write of state for the account, replacing any
// pending write for the same account. The state is cloned, so the caller
// may keep mutating its copy.
func (w *Writer) Enqueue(accountID string, state *entities.GlobalState) {
	if accountID == "" || state == nil {
		return
	}
	snapshot := state.Clone()

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[accountID]; ok {
		p.timer.Stop()
		p.state = snapshot
		p.timer.Reset(w.delay)
		return
	}

	p := &pendingWrite{state: snapshot}
	p.timer = time.AfterFunc(w.delay, func() {
		w.commit(accountID)
	})
	w.pending[accountID] = p
}

// Flush cancels the pending timer for the account and writes its payload
// immediately, synchronously with respect to the caller. Flushing with
// nothing pending is a no-op.
func (w *Writer) Flush(ctx context.Context, accountID string) error {
	w.mu.Lock()
	p, ok := w.pending[accountID]
	if ok {
		p.timer.Stop()
		delete(w.pending, accountID)
	}
	w.mu.Unlock()

	if !ok {
		return nil
	}

	_, err := w.repo.Put(ctx, globalstate.PutInput{AccountID: accountID, State: p.state})
	return err
}

// FlushAll flushes every pending write. Intended for shutdown.
func (w *Writer) FlushAll(ctx context.Context) error {
	w.mu.Lock()
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	w.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := w.Flush(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// commit runs on timer expiry.
func (w *Writer) commit(accountID string) {
	w.mu.Lock()
	p, ok := w.pending[accountID]
	if ok {
		delete(w.pending, accountID)
	}
	w.mu.Unlock()

	if !ok {
		// A Flush raced the timer and already wrote this payload.
		return
	}

	ctx := context.Background()
	if _, err := w.repo.Put(ctx, globalstate.PutInput{AccountID: accountID, State: p.state}); err != nil {
		slog.ErrorContext(ctx, "debounced snapshot write failed",
			"account_id", accountID,
			"error", err.Error())
	}
}
