// Package database owns the Postgres connection pool, the embedded schema
// migrations and the advisory locks used to serialize roster syncs.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "daisy"

// DB is the shared pgx pool handed to every repository.
type DB struct {
	pool *pgxpool.Pool
}

// PoolOption adjusts the pool configuration parsed from the database URL.
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps the pool size. Zero keeps the pgx default. The advisory
// lock pins one connection for the length of a sync.
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// WithConnectTimeout bounds each new connection attempt. Zero keeps the
// value from the URL.
func WithConnectTimeout(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.ConnConfig.ConnectTimeout = d
		}
	}
}

// ParseConfig parses databaseURL and applies opts. Sessions are tagged with
// application_name unless the URL already sets one.
func ParseConfig(databaseURL string, opts ...PoolOption) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// New connects a pool and pings it once, so a bad URL or unreachable server
// fails at startup rather than on the first request.
func New(ctx context.Context, databaseURL string, opts ...PoolOption) (*DB, error) {
	cfg, err := ParseConfig(databaseURL, opts...)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Ping reports whether the database answers; used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Pool exposes the pool to repositories and the advisory locker.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close releases every pooled connection.
func (db *DB) Close() {
	db.pool.Close()
}
