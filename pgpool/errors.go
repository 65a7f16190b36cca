package pgpool

import (
	"errors"
	"fmt"
)

// Startup errors. A process that sees one of these cannot serve requests.
var (
	ErrInvalidConfig    = errors.New("pgpool: invalid configuration")
	ErrPoolConstruction = errors.New("pgpool: pool construction failed")
	ErrHealthCheck      = errors.New("pgpool: startup health check failed")
)

// Per-request errors. These are returned to the caller that hit them and do
// not affect other requests.
var (
	ErrDatabaseConnection = errors.New("pgpool: database connection failed")
	ErrAcquireTimeout     = errors.New("pgpool: timed out waiting for a connection")
)

// SafeError wraps a cause with an error string safe for default production
// logging. The wrapped cause may still contain sensitive detail.
//
// errors.Is matches both the error kind (one of the Err* sentinels) and
// anything in the cause chain.
type SafeError struct {
	msg   string
	kind  error
	cause error
}

func newSafeError(kind, cause error, format string, args ...any) *SafeError {
	return &SafeError{msg: fmt.Sprintf(format, args...), kind: kind, cause: cause}
}

func (e *SafeError) Error() string { return e.msg }

// Kind returns the sentinel classifying this error.
func (e *SafeError) Kind() error { return e.kind }

func (e *SafeError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// IsStartupError reports whether err belongs to the fatal startup category.
func IsStartupError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrPoolConstruction) ||
		errors.Is(err, ErrHealthCheck)
}
