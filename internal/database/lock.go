package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLocker hands out session-level Postgres advisory locks. The lock is
// held on a dedicated pool connection until the returned release func runs, so
// it is visible to every process sharing the database.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker creates an AdvisoryLocker on the given pool.
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

// TryLock attempts to take the advisory lock identified by key without waiting.
// ok is false when another session holds it.
func (l *AdvisoryLocker) TryLock(ctx context.Context, key string) (release func(), ok bool, err error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquiring connection for lock: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", key).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("taking advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, false, nil
	}

	release = func() {
		// The job context may already be cancelled at this point.
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock(hashtext($1))", key); err != nil {
			slog.Error("database: failed to release advisory lock", "key", key, "error", err)
		}
		conn.Release()
	}
	return release, true, nil
}
