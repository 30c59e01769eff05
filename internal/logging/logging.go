// Package logging wraps log/slog with the defaults shared by every
// command: structured JSON on stderr, module/version attributes, and
// flexible level parsing.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a case-insensitive level name to a slog.Level,
// defaulting to info for unknown values.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewStructuredLogger builds a JSON logger on stderr carrying the
// module name and version on every record. Debug level enables source
// location tracking.
func NewStructuredLogger(module, version, level string) *slog.Logger {
	lvl := ParseLevel(level)
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})
	return slog.New(handler).With("module", module, "version", version)
}

// SetDefaultStructuredLogger installs a structured logger as the slog
// default so package-level slog calls share the same configuration.
func SetDefaultStructuredLogger(module, version, level string) {
	slog.SetDefault(NewStructuredLogger(module, version, level))
}
