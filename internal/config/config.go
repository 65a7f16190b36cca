// Package config loads glue-server settings: defaults, then an optional YAML
// file, then environment overrides.
//
// Database credentials are not part of this file. They come from the PG.*
// environment variables read by pgpool.ConfigFromEnv.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-go/vango-glue/internal/logger"
	"github.com/vango-go/vango-glue/pgpool"
)

// ServerConfig represents server configuration
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Logging         LoggingConfig `yaml:"logging"`
	Pool            PoolConfig    `yaml:"pool"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PoolConfig tunes the pool built from the PG.* variables. Zero values keep
// the pgpool defaults.
type PoolConfig struct {
	MaxSize        int32         `yaml:"max_size"`
	Recycling      string        `yaml:"recycling"` // fast | verified
	SSLMode        string        `yaml:"sslmode"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Address:         ":8080",
		ShutdownTimeout: 15 * time.Second,
		Logging: LoggingConfig{
			Level:  logger.InfoLevel,
			Format: logger.TextFormat,
		},
		Pool: PoolConfig{
			MaxSize:        pgpool.DefaultMaxSize,
			Recycling:      pgpool.RecycleFast.String(),
			AcquireTimeout: 5 * time.Second,
			StartupTimeout: 15 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment.
func Load(path string) (*ServerConfig, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*ServerConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	applyEnvOverrides(cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *ServerConfig, lookup func(string) (string, bool)) {
	if v, ok := lookup("SERVER_ADDR"); ok && v != "" {
		cfg.Address = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		cfg.Logging.Format = v
	}
}

// Validate validates the configuration
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if _, err := logger.New(io.Discard, c.Logging.Level, c.Logging.Format); err != nil {
		return err
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout cannot be negative")
	}
	if c.Pool.MaxSize < 0 {
		return fmt.Errorf("pool max size cannot be negative")
	}
	if _, err := pgpool.ParseRecyclingMethod(c.Pool.Recycling); err != nil {
		return err
	}
	if c.Pool.AcquireTimeout < 0 || c.Pool.ConnectTimeout < 0 || c.Pool.StartupTimeout < 0 {
		return fmt.Errorf("pool timeouts cannot be negative")
	}
	return nil
}

// ApplyPool copies the non-zero pool settings onto dst.
func (c *ServerConfig) ApplyPool(dst *pgpool.Config) error {
	method, err := pgpool.ParseRecyclingMethod(c.Pool.Recycling)
	if err != nil {
		return err
	}
	dst.Recycling = method

	if c.Pool.MaxSize > 0 {
		dst.MaxSize = c.Pool.MaxSize
	}
	if c.Pool.SSLMode != "" {
		dst.SSLMode = c.Pool.SSLMode
	}
	if c.Pool.AcquireTimeout > 0 {
		dst.AcquireTimeout = c.Pool.AcquireTimeout
	}
	if c.Pool.ConnectTimeout > 0 {
		dst.ConnectTimeout = c.Pool.ConnectTimeout
	}
	return nil
}

// String returns a string representation of the configuration (for logging)
func (c *ServerConfig) String() string {
	return fmt.Sprintf("Config{Address: %s, LogLevel: %s, Pool: {MaxSize: %d, Recycling: %s}}",
		c.Address, c.Logging.Level, c.Pool.MaxSize, c.Pool.Recycling)
}
