package pgpool

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the concrete implementation of DB backed by pgxpool.
// It intentionally wraps (does not embed) *pgxpool.Pool.
type Pool struct {
	pool           *pgxpool.Pool
	host           string
	acquireTimeout time.Duration
	logger         *slog.Logger
}

var (
	_ DB   = (*Pool)(nil)
	_ Conn = (*pgxpool.Conn)(nil)
)

// Acquire leases a handle from the pool. When every handle is checked out
// and the pool is at its maximum size, Acquire waits until one is released;
// waiters are served in arrival order.
//
// A failure is returned as a *SafeError matching ErrDatabaseConnection, or
// ErrAcquireTimeout when the wait hit Config.AcquireTimeout or a deadline
// on ctx.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		err = translateAcquireError(ctx, err, p.host)
		p.logger.Warn("pgpool: acquire failed", "host", p.host, "error", err.Error())
		return nil, err
	}
	return conn, nil
}

// Ping acquires a handle and checks server connectivity with it.
func (p *Pool) Ping(ctx context.Context) error {
	return WithConn(ctx, p, func(conn Conn) error {
		return conn.Ping(ctx)
	})
}

// Stats returns a snapshot of pool statistics.
func (p *Pool) Stats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		MaxSize:              s.MaxConns(),
		Total:                s.TotalConns(),
		Idle:                 s.IdleConns(),
		Acquired:             s.AcquiredConns(),
		AcquireCount:         s.AcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
	}
}

func (p *Pool) Close() {
	p.pool.Close()
	p.logger.Info("pgpool: pool closed", "host", p.host)
}

// translateAcquireError classifies an Acquire failure by the context the
// caller waited on. A deadline inside the cause chain alone, such as a
// connect timeout while dialing, means the store is unreachable.
func translateAcquireError(ctx context.Context, err error, host string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newSafeError(ErrAcquireTimeout, err, "pgpool: timed out acquiring connection (host=%s)", host)
	}
	return newSafeError(ErrDatabaseConnection, err, "pgpool: failed to acquire connection (host=%s)", host)
}
