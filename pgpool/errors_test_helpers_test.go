package pgpool

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

const testPassword = "supersecret"

var dsnAuthorityPattern = regexp.MustCompile(`(?i)postgres(?:ql)?://[^\s]+@`)

func assertNoSecretLeak(t *testing.T, msg string) {
	t.Helper()

	lower := strings.ToLower(msg)
	for _, marker := range []string{"postgres://", "postgresql://", "password=", testPassword} {
		if strings.Contains(lower, marker) {
			t.Fatalf("error leaked sensitive marker %q: %q", marker, msg)
		}
	}
	if dsnAuthorityPattern.MatchString(msg) {
		t.Fatalf("error leaked DSN authority info: %q", msg)
	}
}

func assertSafeErrorKind(t *testing.T, err error, kind error) {
	t.Helper()

	var se *SafeError
	if !errors.As(err, &se) {
		t.Fatalf("expected SafeError wrapper, got %T", err)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected errors.Is to match %v, got %v", kind, err)
	}
}

func validConfig() Config {
	return Config{
		Host:     "db.example.com",
		User:     "app",
		Password: testPassword,
		Database: "appdb",
	}
}
