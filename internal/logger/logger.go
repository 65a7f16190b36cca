// Package logger builds the process slog.Logger from config strings.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Level names accepted by ParseLevel.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Format names accepted by New.
const (
	TextFormat = "text"
	JSONFormat = "json"
)

// ParseLevel maps a level name to a slog.Level. Matching is case-insensitive.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case DebugLevel:
		return slog.LevelDebug, nil
	case InfoLevel, "":
		return slog.LevelInfo, nil
	case WarnLevel, "warning":
		return slog.LevelWarn, nil
	case ErrorLevel:
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", level)
	}
}

// New returns a logger writing to w with a text or JSON handler.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case JSONFormat:
		handler = slog.NewJSONHandler(w, opts)
	case TextFormat, "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", format)
	}
	return slog.New(handler), nil
}
