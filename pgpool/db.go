package pgpool

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is a connection handle leased from a DB. It is owned by exactly one
// caller until Release. Release is safe to call more than once; only the
// first call returns the handle.
//
// *pgxpool.Conn satisfies Conn.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Release()
}

// DB is the contract handlers depend on. Pass it explicitly to whatever
// needs a connection; there is no package-level pool.
//
// All blocking methods take a context. Canceling it aborts a pending
// Acquire.
type DB interface {
	// Acquire leases a handle, waiting in FIFO order while the pool is
	// saturated. Errors match ErrDatabaseConnection or ErrAcquireTimeout.
	Acquire(ctx context.Context) (Conn, error)

	// Ping acquires a handle, pings the server and releases the handle.
	Ping(ctx context.Context) error

	// Stats returns a snapshot of pool bookkeeping.
	Stats() PoolStats

	// Close releases all pool resources. Call once during graceful shutdown.
	Close()
}

// PoolStats is a point-in-time view of pool bookkeeping.
type PoolStats struct {
	MaxSize              int32 `json:"max_size"`
	Total                int32 `json:"total"`
	Idle                 int32 `json:"idle"`
	Acquired             int32 `json:"acquired"`
	AcquireCount         int64 `json:"acquire_count"`
	EmptyAcquireCount    int64 `json:"empty_acquire_count"`
	CanceledAcquireCount int64 `json:"canceled_acquire_count"`
}
