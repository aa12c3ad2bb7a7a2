// Package jobs runs the periodic roster sync and access expiration sweep.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/daisy-gov/daisy/internal/reconcile"
)

// Syncer runs a full roster synchronization.
type Syncer interface {
	SynchronizeAll(ctx context.Context) (*reconcile.SyncResult, error)
}

// Expirer expires grants that ended before a date.
type Expirer interface {
	ExpireAccesses(ctx context.Context, asOf time.Time) (int64, error)
}

// Runner drives both jobs from a single goroutine, so they never overlap
// within one process.
type Runner struct {
	syncer         Syncer
	expirer        Expirer
	syncInterval   time.Duration
	expireInterval time.Duration
	now            func() time.Time
}

// New creates a new Runner. A zero interval disables that job.
func New(syncer Syncer, expirer Expirer, syncInterval, expireInterval time.Duration) *Runner {
	return &Runner{
		syncer:         syncer,
		expirer:        expirer,
		syncInterval:   syncInterval,
		expireInterval: expireInterval,
		now:            time.Now,
	}
}

// Start runs each enabled job once, then on every tick. It blocks until ctx
// is cancelled.
func (r *Runner) Start(ctx context.Context) {
	slog.Info("jobs: runner started",
		"sync_interval", r.syncInterval.String(),
		"expire_interval", r.expireInterval.String(),
	)

	syncTick := tickerChan(r.syncInterval)
	expireTick := tickerChan(r.expireInterval)
	defer syncTick.stop()
	defer expireTick.stop()

	if r.syncInterval > 0 {
		r.RunSync(ctx)
	}
	if r.expireInterval > 0 {
		r.RunExpire(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("jobs: runner stopped")
			return
		case <-syncTick.c:
			r.RunSync(ctx)
		case <-expireTick.c:
			r.RunExpire(ctx)
		}
	}
}

// RunSync performs one roster synchronization and logs its outcome.
func (r *Runner) RunSync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := r.syncer.SynchronizeAll(ctx)
	switch {
	case errors.Is(err, reconcile.ErrSyncInProgress):
		slog.Info("jobs: roster sync skipped, another run holds the lock")
	case errors.Is(err, reconcile.ErrInconsistentState):
		slog.Error("jobs: roster sync finished with inconsistencies", "error", err)
	case err != nil:
		slog.Error("jobs: roster sync failed", "error", err)
	}
}

// RunExpire performs one expiration sweep as of today.
func (r *Runner) RunExpire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.expirer.ExpireAccesses(ctx, r.now()); err != nil {
		slog.Error("jobs: access expiration failed", "error", err)
	}
}

type ticker struct {
	c    <-chan time.Time
	stop func()
}

// tickerChan returns a ticker, or a channel that never fires when d <= 0.
func tickerChan(d time.Duration) ticker {
	if d <= 0 {
		return ticker{c: nil, stop: func() {}}
	}
	t := time.NewTicker(d)
	return ticker{c: t.C, stop: t.Stop}
}
