// Package db wraps the PostgreSQL connection pool used for event storage.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions configures the pgx pool beyond what the DSN itself carries.
type PoolOptions struct {
	MinConns int32
	MaxConns int32
	// StatementCacheCapacity bounds the per-connection prepared statement
	// and description cache, mirroring POSTGRES_CAPACITY.
	StatementCacheCapacity int
}

// Postgres wraps a pgxpool.Pool with the handful of helpers the repository
// layer needs. Direct SQL access is used instead of an ORM so that array
// binds (UNNEST) reach the wire unchanged.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool from a DSN, applying MinConns/MaxConns
// on top of whatever the DSN specifies, and pings once before returning.
func NewPostgres(ctx context.Context, dsn string, opts PoolOptions) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.StatementCacheCapacity > 0 {
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
		cfg.ConnConfig.DescriptionCacheCapacity = opts.StatementCacheCapacity
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Exec executes a statement that returns no rows.
func (p *Postgres) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	return err
}

// Query executes a query returning multiple rows. Caller must close the rows.
func (p *Postgres) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}

// QueryRow executes a query expected to return at most one row.
func (p *Postgres) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Pool exposes the underlying pgxpool.Pool for callers that need a
// connection directly, such as the command bus flusher.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}
