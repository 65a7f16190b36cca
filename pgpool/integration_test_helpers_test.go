//go:build integration

package pgpool

import (
	"errors"
	"regexp"
	"testing"
)

var integrationPasswordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func requireIntegrationConfig(t *testing.T) Config {
	t.Helper()

	if err := LoadEnvFile(); err != nil {
		t.Fatalf("load .env: %s", sanitizeErrorMessage(err))
	}
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("integration requires PG.HOST, PG.USER and PG.DBNAME: %v", err)
	}
	return cfg
}

func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return integrationPasswordPattern.ReplaceAllString(err.Error(), "password=[REDACTED]")
}

func mustNoErr(t *testing.T, err error, operation string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", operation, sanitizeErrorMessage(err))
	}
}

func mustIs(t *testing.T, got error, want error, operation string) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("%s: got=%s want=%v", operation, sanitizeErrorMessage(got), want)
	}
}
