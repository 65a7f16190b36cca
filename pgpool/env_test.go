package pgpool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestConfigFromLookup_ReadsVariables(t *testing.T) {
	t.Parallel()

	cfg, err := configFromLookup(mapLookup(map[string]string{
		EnvHost:     " db.example.com ",
		EnvUser:     "app",
		EnvDatabase: "appdb",
		EnvPassword: " " + testPassword,
		EnvPort:     "6543",
	}))
	if err != nil {
		t.Fatalf("configFromLookup() error = %v", err)
	}
	if cfg.Host != "db.example.com" || cfg.User != "app" || cfg.Database != "appdb" {
		t.Fatalf("unexpected config: host=%q user=%q db=%q", cfg.Host, cfg.User, cfg.Database)
	}
	if cfg.Password != " "+testPassword {
		t.Fatal("password must be taken verbatim")
	}
	if cfg.Port != 6543 {
		t.Fatalf("Port=%d, want 6543", cfg.Port)
	}
}

func TestConfigFromLookup_MissingVariablesAreReportedTogether(t *testing.T) {
	t.Parallel()

	_, err := configFromLookup(mapLookup(map[string]string{
		EnvUser:     "app",
		EnvDatabase: "  ",
		EnvPassword: testPassword,
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	if got, want := err.Error(), "pgpool: missing required environment variable(s): PG.HOST, PG.DBNAME"; got != want {
		t.Fatalf("error=%q, want %q", got, want)
	}
	assertSafeErrorKind(t, err, ErrInvalidConfig)
	assertNoSecretLeak(t, err.Error())
}

func TestConfigFromLookup_RejectsBadPort(t *testing.T) {
	t.Parallel()

	for _, port := range []string{"abc", "0", "70000", "-1"} {
		_, err := configFromLookup(mapLookup(map[string]string{
			EnvHost:     "h",
			EnvUser:     "u",
			EnvDatabase: "d",
			EnvPort:     port,
		}))
		if err == nil {
			t.Fatalf("port %q: expected error", port)
		}
		assertSafeErrorKind(t, err, ErrInvalidConfig)
		if strings.Contains(err.Error(), port) {
			t.Fatalf("port %q: error should not echo the raw value: %q", port, err.Error())
		}
	}
}

func TestConfigFromEnv_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv(EnvHost, "env-host")
	t.Setenv(EnvUser, "env-user")
	t.Setenv(EnvDatabase, "env-db")
	t.Setenv(EnvPort, "")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() error = %v", err)
	}
	if cfg.Host != "env-host" || cfg.User != "env-user" || cfg.Database != "env-db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnvFile_DoesNotOverrideAndSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "PG.HOST=file-host\nPG.USER=file-user\nPG.PASSWORD=" + testPassword + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv(EnvHost, "process-host")
	t.Setenv(EnvUser, "")
	t.Setenv(EnvPassword, "")
	// godotenv only fills variables that are unset, not ones set to "".
	os.Unsetenv(EnvUser)
	os.Unsetenv(EnvPassword)

	if err := LoadEnvFile(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}

	if got := os.Getenv(EnvHost); got != "process-host" {
		t.Fatalf("%s=%q, want process value to win", EnvHost, got)
	}
	if got := os.Getenv(EnvUser); got != "file-user" {
		t.Fatalf("%s=%q, want %q", EnvUser, got, "file-user")
	}
	if got := os.Getenv(EnvPassword); got != testPassword {
		t.Fatal("password not loaded from env file")
	}
}
