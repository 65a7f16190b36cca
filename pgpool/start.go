package pgpool

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
)

// Option configures Start for advanced use cases.
type Option func(*startOptions)

type startOptions struct {
	pgxConfigModifier func(*pgxpool.Config)
	logger            *slog.Logger
}

// newPoolWithConfig is a package-private seam used by tests to force
// deterministic pool-construction failures without network dependencies.
var newPoolWithConfig = pgxpool.NewWithConfig

// WithPgxConfig allows low-level pgxpool configuration.
//
// The modifier runs after the package defaults and recycling hooks are
// applied.
func WithPgxConfig(fn func(*pgxpool.Config)) Option {
	return func(o *startOptions) {
		o.pgxConfigModifier = fn
	}
}

// WithLogger sets the logger used for pool lifecycle events and failed
// queries. SQL text and arguments are never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *startOptions) {
		o.logger = logger
	}
}

// Start builds the pool without opening any connection. Handles are created
// on demand by Acquire, up to Config.MaxSize.
//
// Errors match ErrInvalidConfig or ErrPoolConstruction. Both mean the
// process cannot serve requests; there is no degraded mode.
func Start(ctx context.Context, cfg Config, opts ...Option) (*Pool, error) {
	var o startOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	pgxCfg, err := pgxpool.ParseConfig(cfg.connString())
	if err != nil {
		// SECURITY: parse errors from upstream may echo the password.
		return nil, newSafeError(ErrInvalidConfig, nil, "pgpool: invalid connection parameters (host=%s)", cfg.Host)
	}

	applyPoolDefaults(pgxCfg, cfg)
	applyRecycling(pgxCfg, cfg.Recycling)

	if o.logger != nil {
		pgxCfg.ConnConfig.Tracer = newTraceLogger(o.logger)
	}
	if o.pgxConfigModifier != nil {
		o.pgxConfigModifier(pgxCfg)
	}

	logger.Info("pgpool: creating pool",
		"host", cfg.Host,
		"database", cfg.Database,
		"max_size", pgxCfg.MaxConns,
		"recycling", cfg.Recycling.String(),
	)

	pool, err := newPoolWithConfig(ctx, pgxCfg)
	if err != nil {
		// SECURITY: cause may include sensitive details; keep outer error safe.
		return nil, newSafeError(ErrPoolConstruction, err, "pgpool: failed to create pool (host=%s)", cfg.Host)
	}

	return &Pool{
		pool:           pool,
		host:           cfg.Host,
		acquireTimeout: cfg.AcquireTimeout,
		logger:         logger,
	}, nil
}

// StartAndVerify calls Start and then acquires and releases one handle. If
// the server is unreachable or the credentials are rejected, the pool is
// closed and an error matching ErrHealthCheck is returned.
func StartAndVerify(ctx context.Context, cfg Config, opts ...Option) (*Pool, error) {
	p, err := Start(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	conn, err := p.Acquire(ctx)
	if err != nil {
		p.pool.Close()
		return nil, newSafeError(ErrHealthCheck, err,
			"pgpool: startup health check failed (host=%s, is the server reachable and are the credentials valid?)", cfg.Host)
	}
	conn.Release()

	p.logger.Info("pgpool: pool verified", "host", cfg.Host, "database", cfg.Database)
	return p, nil
}

func (c Config) validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "Host")
	}
	if c.User == "" {
		missing = append(missing, "User")
	}
	if c.Database == "" {
		missing = append(missing, "Database")
	}
	if len(missing) > 0 {
		return newSafeError(ErrInvalidConfig, nil, "pgpool: %s required", strings.Join(missing, ", "))
	}
	if c.MaxSize < 0 {
		return newSafeError(ErrInvalidConfig, nil, "pgpool: MaxSize must not be negative")
	}
	if c.Recycling != RecycleFast && c.Recycling != RecycleVerified {
		return newSafeError(ErrInvalidConfig, nil, "pgpool: unknown recycling method %d", int(c.Recycling))
	}
	if c.AcquireTimeout < 0 || c.ConnectTimeout < 0 || c.HealthCheckPeriod < 0 ||
		c.MaxConnLifetime < 0 || c.MaxConnIdleTime < 0 {
		return newSafeError(ErrInvalidConfig, nil, "pgpool: durations must not be negative")
	}
	return nil
}

// connString renders the keyword/value form understood by pgconn.
func (c Config) connString() string {
	var b strings.Builder
	add := func(key, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(quoteConnValue(value))
	}

	add("host", c.Host)
	if c.Port != 0 {
		add("port", strconv.Itoa(int(c.Port)))
	}
	add("user", c.User)
	add("password", c.Password)
	add("dbname", c.Database)
	add("sslmode", c.SSLMode)
	return b.String()
}

func quoteConnValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func applyPoolDefaults(pgxCfg *pgxpool.Config, cfg Config) {
	if cfg.MaxSize > 0 {
		pgxCfg.MaxConns = cfg.MaxSize
	} else {
		pgxCfg.MaxConns = DefaultMaxSize
	}
	// No pre-warming: the startup health check opens the first handle.
	pgxCfg.MinConns = 0

	if cfg.HealthCheckPeriod > 0 {
		pgxCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	} else {
		pgxCfg.HealthCheckPeriod = DefaultHealthCheckPeriod
	}

	if cfg.MaxConnLifetime > 0 {
		pgxCfg.MaxConnLifetime = cfg.MaxConnLifetime
	} else {
		pgxCfg.MaxConnLifetime = DefaultMaxConnLifetime
	}

	if cfg.MaxConnIdleTime > 0 {
		pgxCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	} else {
		pgxCfg.MaxConnIdleTime = DefaultMaxConnIdleTime
	}

	if cfg.ConnectTimeout > 0 {
		pgxCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		pgxCfg.ConnConfig.ConnectTimeout = DefaultConnectTimeout
	}
}

// applyRecycling installs the checkout hooks. Release needs none: pgxpool
// already destroys a handle that is closed, busy or inside a transaction
// instead of returning it to the idle set.
//
// RecycleFast keeps pgxpool's default of pinging only handles that sat idle
// for over a second. RecycleVerified pings every handle on checkout and
// discards the ones that fail, so the caller gets a fresh handle instead.
func applyRecycling(pgxCfg *pgxpool.Config, method RecyclingMethod) {
	if method == RecycleVerified {
		pgxCfg.ShouldPing = func(context.Context, pgxpool.ShouldPingParams) bool { return false }
		pgxCfg.PrepareConn = verifyOnCheckout
	}
}

// verifyOnCheckout reports whether conn answers a ping. A false result makes
// pgxpool destroy conn and try another handle.
func verifyOnCheckout(ctx context.Context, conn *pgx.Conn) (bool, error) {
	return conn.Ping(ctx) == nil, nil
}

func newTraceLogger(logger *slog.Logger) *tracelog.TraceLog {
	return &tracelog.TraceLog{
		Logger: tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
			attrs := make([]any, 0, 2*len(data)+2)
			attrs = append(attrs, "pgx_level", level.String())
			for k, v := range data {
				if k == "sql" || k == "args" {
					continue
				}
				attrs = append(attrs, k, v)
			}
			logger.Log(ctx, slogLevel(level), "pgx: "+msg, attrs...)
		}),
		LogLevel: tracelog.LogLevelWarn,
	}
}

func slogLevel(level tracelog.LogLevel) slog.Level {
	switch level {
	case tracelog.LogLevelError:
		return slog.LevelError
	case tracelog.LogLevelWarn:
		return slog.LevelWarn
	case tracelog.LogLevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
