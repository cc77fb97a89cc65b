package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	billing "shop-billing/internal/billing/domain"
)

const (
	defaultMaxConns       = 10
	defaultAcquireTimeout = 2 * time.Second
)

// DBTX is the query surface shared by pool connections and transactions.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PoolConfig configures the bounded connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	AcquireTimeout  time.Duration
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Pool bounds the number of backend connections shared by concurrent queries.
// A caller that cannot get a connection within AcquireTimeout fails with
// billing.ErrPoolExhausted instead of opening a new one.
type Pool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewPool opens a pool. It does not block on connectivity; call Ping for that.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres pool: empty dsn")
	}
	pgCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: parse dsn: %w", err)
	}
	pgCfg.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		pgCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= pgCfg.MaxConns {
		pgCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pgCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pgCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}
	return &Pool{pool: pool, acquireTimeout: acquireTimeout}, nil
}

// Ping verifies a connection can be acquired and used.
func (p *Pool) Ping(ctx context.Context) error {
	return p.withConn(ctx, func(conn DBTX) error {
		_, err := conn.Exec(ctx, "SELECT 1")
		return err
	})
}

// Stat exposes pool statistics for metrics.
func (p *Pool) Stat() *pgxpool.Stat {
	if p == nil || p.pool == nil {
		return nil
	}
	return p.pool.Stat()
}

// Close releases all connections.
func (p *Pool) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

func (p *Pool) withConn(ctx context.Context, fn func(conn DBTX) error) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("%w: nil pool", billing.ErrStoreUnavailable)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	conn, err := p.pool.Acquire(acquireCtx)
	cancel()
	if err != nil {
		return acquireError(ctx, err)
	}
	defer conn.Release()

	if err := fn(conn); err != nil {
		return storeError(ctx, err)
	}
	return nil
}

// acquireError classifies a failed acquire. An acquire timeout while the caller
// is still waiting means every connection is busy.
func acquireError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: no connection within acquire timeout", billing.ErrPoolExhausted)
	}
	return fmt.Errorf("%w: acquire: %w", billing.ErrStoreUnavailable, err)
}

// storeError classifies a backend error. Caller cancellation wins over I/O failure,
// and domain errors raised inside the callback pass through untouched.
func storeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, billing.ErrStoreUnavailable) ||
		errors.Is(err, billing.ErrNotFound) ||
		errors.Is(err, billing.ErrInvalidGranularity) ||
		errors.Is(err, billing.ErrInvalidPeriodStart) ||
		errors.Is(err, billing.ErrInvalidArgument) {
		return err
	}
	return fmt.Errorf("%w: %w", billing.ErrStoreUnavailable, err)
}
