package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/daisy-gov/daisy/internal/jobs"
	"github.com/daisy-gov/daisy/internal/reconcile"
)

type mockSyncer struct {
	mu     sync.Mutex
	calls  int
	syncFn func(ctx context.Context) (*reconcile.SyncResult, error)
}

func (m *mockSyncer) SynchronizeAll(ctx context.Context) (*reconcile.SyncResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.syncFn != nil {
		return m.syncFn(ctx)
	}
	return &reconcile.SyncResult{}, nil
}

func (m *mockSyncer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockExpirer struct {
	mu    sync.Mutex
	dates []time.Time
	err   error
}

func (m *mockExpirer) ExpireAccesses(_ context.Context, asOf time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dates = append(m.dates, asOf)
	return 0, m.err
}

func (m *mockExpirer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dates)
}

func TestStart_RunsImmediatelyThenOnTicks(t *testing.T) {
	syncer := &mockSyncer{}
	expirer := &mockExpirer{}
	r := jobs.New(syncer, expirer, 50*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	time.Sleep(180 * time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, syncer.count(), 3)
	assert.Equal(t, 1, expirer.count())
}

func TestStart_KeepsRunningAfterErrors(t *testing.T) {
	syncer := &mockSyncer{syncFn: func(context.Context) (*reconcile.SyncResult, error) {
		return &reconcile.SyncResult{Inconsistent: 1}, &reconcile.InconsistentStateError{Key: "oidc_id", Value: "u1", Matches: 2}
	}}
	expirer := &mockExpirer{err: errors.New("db down")}
	r := jobs.New(syncer, expirer, 30*time.Millisecond, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	time.Sleep(120 * time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, syncer.count(), 2)
	assert.GreaterOrEqual(t, expirer.count(), 2)
}

func TestStart_ZeroIntervalDisablesJob(t *testing.T) {
	syncer := &mockSyncer{}
	expirer := &mockExpirer{}
	r := jobs.New(syncer, expirer, 0, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	time.Sleep(70 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 0, syncer.count())
	assert.GreaterOrEqual(t, expirer.count(), 2)
}

func TestRunSync_ToleratesLockedAndFailedRuns(t *testing.T) {
	syncer := &mockSyncer{syncFn: func(context.Context) (*reconcile.SyncResult, error) {
		return nil, reconcile.ErrSyncInProgress
	}}
	r := jobs.New(syncer, &mockExpirer{}, time.Hour, time.Hour)

	r.RunSync(context.Background())

	syncer.syncFn = func(context.Context) (*reconcile.SyncResult, error) {
		return nil, errors.New("realm unavailable")
	}
	r.RunSync(context.Background())
	assert.Equal(t, 2, syncer.count())
}

func TestRunExpire_SkipsWhenCancelled(t *testing.T) {
	expirer := &mockExpirer{}
	r := jobs.New(&mockSyncer{}, expirer, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.RunExpire(ctx)
	assert.Equal(t, 0, expirer.count())
}
