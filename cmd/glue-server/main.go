// Package main runs the glue HTTP server on top of a verified PostgreSQL
// pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-go/vango-glue/internal/config"
	"github.com/vango-go/vango-glue/internal/httpapi"
	"github.com/vango-go/vango-glue/internal/logger"
	"github.com/vango-go/vango-glue/pgpool"
)

// Options holds the command-line flags.
type Options struct {
	ConfigPath string // optional YAML file
	EnvFile    string // dotenv file holding PG.* variables
	Addr       string // overrides the configured listen address
}

const (
	exitError   = 1
	exitStartup = 2
)

const defaultShutdownTimeout = 15 * time.Second

// Set via ldflags during build.
var version = "dev"

func main() {
	var opts Options

	rootCmd := &cobra.Command{
		Use:   "glue-server",
		Short: "Serve JSON endpoints backed by a pooled PostgreSQL connection",
		Long: `glue-server reads PG.HOST, PG.USER, PG.DBNAME (required), PG.PASSWORD
and PG.PORT from the environment or an env file, opens a connection pool,
verifies it with one round trip and then serves HTTP.

It exits with status 2 if the pool cannot be configured or verified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "Env file with PG.* variables (skipped if missing)")
	rootCmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (overrides config and SERVER_ADDR)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func run(ctx context.Context, opts Options, stderr io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return errWithCode(err, exitStartup)
	}
	if opts.Addr != "" {
		cfg.Address = opts.Addr
	}

	log, err := logger.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return errWithCode(err, exitStartup)
	}
	slog.SetDefault(log)

	pool, err := startPool(ctx, cfg, opts.EnvFile, log)
	if err != nil {
		log.Error("database unavailable, refusing to serve", "error", err.Error())
		return errWithCode(err, startupExitCode(err))
	}
	defer pool.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           httpapi.NewRouter(pool, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := serve(ctx, srv, cfg.ShutdownTimeout, log); err != nil {
		return errWithCode(err, exitError)
	}
	return nil
}

// startPool builds the pool from the PG.* variables and verifies it before
// any traffic is accepted.
func startPool(ctx context.Context, cfg *config.ServerConfig, envFile string, log *slog.Logger) (*pgpool.Pool, error) {
	if err := pgpool.LoadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	pgCfg, err := pgpool.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyPool(&pgCfg); err != nil {
		return nil, err
	}

	if cfg.Pool.StartupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Pool.StartupTimeout)
		defer cancel()
	}

	pool, err := pgpool.StartAndVerify(ctx, pgCfg, pgpool.WithLogger(log))
	if err != nil {
		return nil, err
	}
	log.Info("database pool ready",
		"host", pgCfg.Host,
		"database", pgCfg.Database,
		"max_size", pool.Stats().MaxSize,
		"recycling", pgCfg.Recycling.String(),
	)
	return pool, nil
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, log *slog.Logger) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// startupExitCode returns exitStartup for the fatal pgpool startup errors
// and exitError for anything else.
func startupExitCode(err error) int {
	if pgpool.IsStartupError(err) {
		return exitStartup
	}
	return exitError
}

func errWithCode(err error, code int) error {
	return codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e codedError) Unwrap() error { return e.err }
