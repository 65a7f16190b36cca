package pgpool

import (
	"context"
	"errors"
)

// HealthStatus is the response type for health check endpoints.
type HealthStatus struct {
	Status   string     `json:"status"`
	Database string     `json:"database"`
	Pool     *PoolStats `json:"pool,omitempty"`
}

// HealthCheck leases a handle, pings the server with it and releases it.
// The result is suitable for health check API endpoints.
func HealthCheck(ctx context.Context, db DB) (*HealthStatus, error) {
	if err := db.Ping(ctx); err != nil {
		return nil, newSafeError(errorKind(err, ErrDatabaseConnection), err, "pgpool: health check failed")
	}

	stats := db.Stats()
	return &HealthStatus{Status: "ok", Database: "postgres", Pool: &stats}, nil
}

// WithConn leases a handle for the duration of fn. The handle is released
// when fn returns or panics.
func WithConn(ctx context.Context, db DB, fn func(Conn) error) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(conn)
}

// errorKind returns the kind carried by err when it is a *SafeError, or
// fallback otherwise.
func errorKind(err error, fallback error) error {
	var se *SafeError
	if errors.As(err, &se) && se.kind != nil {
		return se.kind
	}
	return fallback
}
