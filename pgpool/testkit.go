package pgpool

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
)

// ErrNotMocked is returned when a TestConn method is called without a
// corresponding Func field set.
var ErrNotMocked = errors.New("pgpool.TestConn: method not mocked, set the corresponding Func field")

// TestConn is a fake connection handle for unit tests. Unset Func fields
// return ErrNotMocked, except Ping which succeeds.
type TestConn struct {
	// ID is assigned by TestPool in creation order, starting at 1.
	ID int64

	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	PingFunc     func(ctx context.Context) error

	broken atomic.Bool
}

func (c *TestConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if c.ExecFunc != nil {
		return c.ExecFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, ErrNotMocked
}

func (c *TestConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if c.QueryFunc != nil {
		return c.QueryFunc(ctx, sql, args...)
	}
	return &ErrRows{ErrValue: ErrNotMocked}, ErrNotMocked
}

func (c *TestConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if c.QueryRowFunc != nil {
		return c.QueryRowFunc(ctx, sql, args...)
	}
	return &ErrRow{Err: ErrNotMocked}
}

func (c *TestConn) Ping(ctx context.Context) error {
	if c.PingFunc != nil {
		return c.PingFunc(ctx)
	}
	return nil
}

// MarkBroken makes the next release destroy the handle instead of
// returning it to the idle set.
func (c *TestConn) MarkBroken() { c.broken.Store(true) }

// Broken reports whether MarkBroken was called.
func (c *TestConn) Broken() bool { return c.broken.Load() }

// TestPoolConfig configures NewTestPool.
type TestPoolConfig struct {
	// MaxSize defaults to DefaultMaxSize.
	MaxSize int32

	// AcquireTimeout behaves like Config.AcquireTimeout.
	AcquireTimeout time.Duration

	// NewConn customizes each handle as it is opened. Returning an error
	// simulates an unreachable server.
	NewConn func(c *TestConn) error
}

// TestPool is an in-memory DB for unit tests. It has the same bounded,
// first-come-first-served acquisition semantics and error kinds as Pool.
type TestPool struct {
	pool           *puddle.Pool[*TestConn]
	acquireTimeout time.Duration
	nextID         atomic.Int64
	destroyed      atomic.Int64
}

var _ DB = (*TestPool)(nil)

// NewTestPool creates an empty TestPool. It panics on an invalid MaxSize.
func NewTestPool(cfg TestPoolConfig) *TestPool {
	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	tp := &TestPool{acquireTimeout: cfg.AcquireTimeout}
	pool, err := puddle.NewPool(&puddle.Config[*TestConn]{
		Constructor: func(context.Context) (*TestConn, error) {
			c := &TestConn{ID: tp.nextID.Add(1)}
			if cfg.NewConn != nil {
				if err := cfg.NewConn(c); err != nil {
					return nil, err
				}
			}
			return c, nil
		},
		Destructor: func(*TestConn) {
			tp.destroyed.Add(1)
		},
		MaxSize: maxSize,
	})
	if err != nil {
		panic(fmt.Sprintf("pgpool.NewTestPool: %v", err))
	}
	tp.pool = pool
	return tp
}

func (p *TestPool) Acquire(ctx context.Context) (Conn, error) {
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, translateAcquireError(ctx, err, "testpool")
	}
	return &testLease{TestConn: res.Value(), res: res}, nil
}

func (p *TestPool) Ping(ctx context.Context) error {
	return WithConn(ctx, p, func(conn Conn) error {
		return conn.Ping(ctx)
	})
}

func (p *TestPool) Stats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		MaxSize:              s.MaxResources(),
		Total:                s.TotalResources(),
		Idle:                 s.IdleResources(),
		Acquired:             s.AcquiredResources(),
		AcquireCount:         s.AcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
	}
}

func (p *TestPool) Close() { p.pool.Close() }

// Opened returns how many handles the pool has created.
func (p *TestPool) Opened() int64 { return p.nextID.Load() }

// Destroyed returns how many handles the pool has closed.
func (p *TestPool) Destroyed() int64 { return p.destroyed.Load() }

// AsTestConn returns the TestConn behind a handle leased from a TestPool.
func AsTestConn(conn Conn) (*TestConn, bool) {
	l, ok := conn.(*testLease)
	if !ok {
		return nil, false
	}
	return l.TestConn, true
}

type testLease struct {
	*TestConn
	res  *puddle.Resource[*TestConn]
	once sync.Once
}

func (l *testLease) Release() {
	l.once.Do(func() {
		if l.TestConn.Broken() {
			l.res.Destroy()
			return
		}
		l.res.Release()
	})
}

// ErrRow implements pgx.Row. Its Scan always returns Err.
type ErrRow struct {
	Err error
}

func (r *ErrRow) Scan(dest ...any) error {
	return r.Err
}

// ErrRows implements pgx.Rows and always returns the configured error.
type ErrRows struct {
	ErrValue error
}

func (r *ErrRows) Close()                                       {}
func (r *ErrRows) Err() error                                   { return r.ErrValue }
func (r *ErrRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *ErrRows) Conn() *pgx.Conn                              { return nil }
func (r *ErrRows) RawValues() [][]byte                          { return nil }
func (r *ErrRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *ErrRows) Next() bool                                   { return false }
func (r *ErrRows) Values() ([]any, error)                       { return nil, r.ErrValue }
func (r *ErrRows) Scan(dest ...any) error                       { return r.ErrValue }

// NewRow returns a pgx.Row backed by the provided values. Scan assigns each
// value to the matching destination when the types are assignable.
func NewRow(values ...any) pgx.Row {
	return valueRow(values)
}

type valueRow []any

func (r valueRow) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return fmt.Errorf("pgpool.valueRow: scan dest count %d != column count %d", len(dest), len(r))
	}

	for i, val := range r {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("pgpool.valueRow: scan target at column %d is not a non-nil pointer", i)
		}
		target := dv.Elem()
		if val == nil {
			target.SetZero()
			continue
		}
		vv := reflect.ValueOf(val)
		if !vv.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("pgpool.valueRow: cannot scan %T into %s at column %d", val, target.Type(), i)
		}
		target.Set(vv)
	}
	return nil
}
