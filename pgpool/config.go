package pgpool

import (
	"fmt"
	"strings"
	"time"
)

// RecyclingMethod selects how much checking a handle gets when it moves
// between the idle set and a caller.
type RecyclingMethod int

const (
	// RecycleFast inspects only local connection state on release. A handle
	// is pinged on checkout only after sitting idle for over a second.
	RecycleFast RecyclingMethod = iota

	// RecycleVerified pings every idle handle on checkout and discards it if
	// the ping fails.
	RecycleVerified
)

func (m RecyclingMethod) String() string {
	switch m {
	case RecycleFast:
		return "fast"
	case RecycleVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// ParseRecyclingMethod accepts the names returned by String. An empty name
// selects RecycleFast.
func ParseRecyclingMethod(name string) (RecyclingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fast":
		return RecycleFast, nil
	case "verified":
		return RecycleVerified, nil
	default:
		return RecycleFast, fmt.Errorf("pgpool: unknown recycling method %q", name)
	}
}

const (
	DefaultMaxSize           = 16
	DefaultConnectTimeout    = 10 * time.Second
	DefaultHealthCheckPeriod = 30 * time.Second
	DefaultMaxConnLifetime   = 30 * time.Minute
	DefaultMaxConnIdleTime   = 5 * time.Minute
)

// Config controls the behavior of the connection pool.
type Config struct {
	// Host, User and Database are required.
	Host     string
	User     string
	Database string

	// Password may be empty when the server trusts the client.
	Password string

	// Port defaults to the libpq default (5432).
	Port uint16

	// SSLMode is passed through as the libpq sslmode parameter when set.
	SSLMode string

	// MaxSize bounds the number of live handles. Defaults to 16.
	MaxSize int32

	// Recycling defaults to RecycleFast.
	Recycling RecyclingMethod

	// AcquireTimeout bounds how long Acquire waits for a handle.
	// Zero waits until the caller's context is done.
	AcquireTimeout time.Duration

	// ConnectTimeout defaults to 10s.
	ConnectTimeout time.Duration

	// HealthCheckPeriod defaults to 30s.
	HealthCheckPeriod time.Duration

	// MaxConnLifetime defaults to 30m.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime defaults to 5m.
	MaxConnIdleTime time.Duration
}
