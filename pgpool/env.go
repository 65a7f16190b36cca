package pgpool

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvHost     = "PG.HOST"
	EnvUser     = "PG.USER"
	EnvDatabase = "PG.DBNAME"
	EnvPassword = "PG.PASSWORD"
	EnvPort     = "PG.PORT"
)

// ConfigFromEnv reads connection parameters from the process environment.
// PG.HOST, PG.USER and PG.DBNAME are required; an unset or blank value is
// reported without touching the network. All other Config fields keep their
// zero value and are defaulted by Start.
func ConfigFromEnv() (Config, error) {
	return configFromLookup(os.LookupEnv)
}

func configFromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		Host:     get(EnvHost),
		User:     get(EnvUser),
		Database: get(EnvDatabase),
	}
	// The password is taken verbatim; surrounding spaces may be significant.
	cfg.Password, _ = lookup(EnvPassword)

	var missing []string
	if cfg.Host == "" {
		missing = append(missing, EnvHost)
	}
	if cfg.User == "" {
		missing = append(missing, EnvUser)
	}
	if cfg.Database == "" {
		missing = append(missing, EnvDatabase)
	}
	if len(missing) > 0 {
		return Config{}, newSafeError(ErrInvalidConfig, nil,
			"pgpool: missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if raw := get(EnvPort); raw != "" {
		port, err := strconv.ParseUint(raw, 10, 16)
		if err != nil || port == 0 {
			return Config{}, newSafeError(ErrInvalidConfig, nil,
				"pgpool: %s must be a port number between 1 and 65535", EnvPort)
		}
		cfg.Port = uint16(port)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from the given files into the process
// environment. Variables already set in the environment are left untouched.
// Files that do not exist are skipped; with no arguments ".env" is tried.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return newSafeError(ErrInvalidConfig, err, "pgpool: failed to read env file %s", p)
		}
	}
	return nil
}
