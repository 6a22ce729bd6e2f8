// Package logging configures the process-wide slog logger. Logs always go
// to stderr so they never interleave with NDJSON results on stdout.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing to w. JSON is used when structured is true,
// logfmt-style text otherwise.
func New(w io.Writer, structured bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if structured {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Init sets the default logger. When results are streamed to stdout the
// stderr logs are JSON, so both streams stay machine-readable.
func Init(resultsOnStdout bool, level string) {
	slog.SetDefault(New(os.Stderr, resultsOnStdout, ParseLevel(level)))
}

// ParseLevel converts "debug", "info", "warn" or "error" to a slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
