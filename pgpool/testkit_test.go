package pgpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestTestConn_UnsetMethodsReturnErrNotMocked(t *testing.T) {
	t.Parallel()

	c := &TestConn{}

	tag, err := c.Exec(context.Background(), "UPDATE x SET y=1")
	if !errors.Is(err, ErrNotMocked) {
		t.Fatalf("Exec error=%v, want %v", err, ErrNotMocked)
	}
	if tag.String() != "" {
		t.Fatalf("Exec tag=%q, want empty", tag.String())
	}

	rows, err := c.Query(context.Background(), "SELECT 1")
	if !errors.Is(err, ErrNotMocked) {
		t.Fatalf("Query error=%v, want %v", err, ErrNotMocked)
	}
	if rows.Next() {
		t.Fatal("ErrRows.Next() returned true")
	}
	if !errors.Is(rows.Err(), ErrNotMocked) {
		t.Fatalf("rows.Err()=%v, want %v", rows.Err(), ErrNotMocked)
	}

	if err := c.QueryRow(context.Background(), "SELECT 1").Scan(new(any)); !errors.Is(err, ErrNotMocked) {
		t.Fatalf("QueryRow.Scan error=%v, want %v", err, ErrNotMocked)
	}

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error=%v, want nil", err)
	}
}

func TestTestPool_HandlesAreCreatedLazilyAndReused(t *testing.T) {
	t.Parallel()

	pool := NewTestPool(TestPoolConfig{MaxSize: 4})
	defer pool.Close()

	if got := pool.Opened(); got != 0 {
		t.Fatalf("opened=%d before first acquire, want 0", got)
	}

	for range 3 {
		conn, err := pool.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		conn.Release()
	}

	if got := pool.Opened(); got != 1 {
		t.Fatalf("opened=%d, want 1", got)
	}
	s := pool.Stats()
	if s.MaxSize != 4 || s.Total != 1 || s.Idle != 1 || s.AcquireCount != 3 {
		t.Fatalf("Stats()=%+v", s)
	}
}

func TestTestPool_NeverExceedsMaxSizeOrDoubleLeases(t *testing.T) {
	t.Parallel()

	const maxSize = 3
	pool := NewTestPool(TestPoolConfig{MaxSize: maxSize})
	defer pool.Close()

	var (
		mu      sync.Mutex
		leased  = map[int64]bool{}
		current int
		peak    int
	)

	var g errgroup.Group
	for range 24 {
		g.Go(func() error {
			conn, err := pool.Acquire(context.Background())
			if err != nil {
				return err
			}
			tc, _ := AsTestConn(conn)

			mu.Lock()
			if leased[tc.ID] {
				mu.Unlock()
				return errors.New("handle leased to two callers")
			}
			leased[tc.ID] = true
			current++
			peak = max(peak, current)
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			leased[tc.ID] = false
			current--
			mu.Unlock()

			conn.Release()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("worker error: %v", err)
	}

	if peak > maxSize {
		t.Fatalf("peak concurrent leases=%d, want <= %d", peak, maxSize)
	}
	if got := pool.Opened(); got > maxSize {
		t.Fatalf("opened=%d, want <= %d", got, maxSize)
	}
}

func TestTestPool_WaitersAreServedInArrivalOrder(t *testing.T) {
	t.Parallel()

	pool := NewTestPool(TestPoolConfig{MaxSize: 1})
	defer pool.Close()

	holderA, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("A Acquire() error = %v", err)
	}

	type result struct {
		name string
		conn Conn
		err  error
	}
	results := make(chan result, 2)
	acquire := func(name string) {
		conn, err := pool.Acquire(context.Background())
		results <- result{name: name, conn: conn, err: err}
	}

	go acquire("B")
	assertPending(t, results, "B")

	go acquire("C")
	assertPending(t, results, "C")

	holderA.Release()

	first := <-results
	if first.err != nil {
		t.Fatalf("%s Acquire() error = %v", first.name, first.err)
	}
	if first.name != "B" {
		t.Fatalf("first waiter served=%s, want B", first.name)
	}
	assertPending(t, results, "C")

	first.conn.Release()
	second := <-results
	if second.err != nil || second.name != "C" {
		t.Fatalf("second result=%s err=%v, want C", second.name, second.err)
	}
	second.conn.Release()

	if got := pool.Opened(); got != 1 {
		t.Fatalf("opened=%d, want 1", got)
	}
}

func assertPending[T any](t *testing.T, ch <-chan T, who string) {
	t.Helper()

	select {
	case <-ch:
		t.Fatalf("%s acquired while the pool was saturated", who)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTestPool_AcquireTimeout(t *testing.T) {
	t.Parallel()

	pool := NewTestPool(TestPoolConfig{MaxSize: 1, AcquireTimeout: 20 * time.Millisecond})
	defer pool.Close()

	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release()

	start := time.Now()
	_, err = pool.Acquire(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	assertSafeErrorKind(t, err, ErrAcquireTimeout)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected deadline cause")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Acquire waited %v, want about 20ms", elapsed)
	}
}

func TestTestPool_CanceledWaitIsConnectionError(t *testing.T) {
	t.Parallel()

	pool := NewTestPool(TestPoolConfig{MaxSize: 1})
	defer pool.Close()

	held, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pool.Acquire(ctx)
	assertSafeErrorKind(t, err, ErrDatabaseConnection)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error=%v, want context.Canceled in chain", err)
	}
}

func TestTestPool_BrokenHandleIsDestroyedOnRelease(t *testing.T) {
	t.Parallel()

	pool := NewTestPool(TestPoolConfig{MaxSize: 1})
	defer pool.Close()

	conn, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	tc, ok := AsTestConn(conn)
	if !ok {
		t.Fatal("AsTestConn() failed for a TestPool handle")
	}
	tc.MarkBroken()
	conn.Release()
	conn.Release()

	// puddle destroys in the background.
	waitFor(t, func() bool { return pool.Destroyed() == 1 && pool.Stats().Total == 0 })

	next, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer next.Release()
	if ntc, _ := AsTestConn(next); ntc.ID != 2 {
		t.Fatalf("next handle ID=%d, want a fresh handle", ntc.ID)
	}
}

func TestTestPool_ClosedPoolIsConnectionError(t *testing.T) {
	t.Parallel()

	pool := NewTestPool(TestPoolConfig{MaxSize: 1})
	pool.Close()

	_, err := pool.Acquire(context.Background())
	assertSafeErrorKind(t, err, ErrDatabaseConnection)
}

func TestAsTestConn_RejectsForeignHandles(t *testing.T) {
	t.Parallel()

	if _, ok := AsTestConn(nil); ok {
		t.Fatal("AsTestConn(nil) returned ok")
	}
}

func TestNewRow_ScanAssignableTypes(t *testing.T) {
	t.Parallel()

	var (
		s   string
		i   int
		i64 int64
		b   bool
		f   float64
		a   any
		p   *string
	)
	if err := NewRow("x", 2, int64(3), true, 1.5, "any", nil).Scan(&s, &i, &i64, &b, &f, &a, &p); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if s != "x" || i != 2 || i64 != 3 || !b || f != 1.5 || a != "any" || p != nil {
		t.Fatalf("unexpected scan result: %q %d %d %v %v %v %v", s, i, i64, b, f, a, p)
	}
}

func TestNewRow_ScanErrors(t *testing.T) {
	t.Parallel()

	var s string
	if err := NewRow("a", "b").Scan(&s); err == nil {
		t.Fatal("expected arity error")
	}
	var i int
	if err := NewRow("a").Scan(&i); err == nil {
		t.Fatal("expected type mismatch error")
	}
	if err := NewRow("a").Scan(s); err == nil {
		t.Fatal("expected non-pointer error")
	}
}

func TestErrRow_ScanReturnsStoredError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("row error")
	err := (&ErrRow{Err: sentinel}).Scan(new(any))
	if !errors.Is(err, sentinel) {
		t.Fatalf("error=%v, want %v", err, sentinel)
	}
}
