package log

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. level accepts the usual names
// (debug, info, warn, error); anything else falls back to info.
func New(level string) *slog.Logger {
	l := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: false,
		Level:     l,
	})
	return slog.New(handler)
}
