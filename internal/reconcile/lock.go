package reconcile

import (
	"context"
	"sync"
)

// Locker hands out run-level locks. ok is false when the key is already held.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

// LocalLocker is an in-process Locker. It only guards runs inside one
// process; use database.AdvisoryLocker when several replicas share a store.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

func (l *LocalLocker) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}
