package log

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	logger atomic.Pointer[slog.Logger]
	level  = new(slog.LevelVar)
)

func init() {
	level.Set(slog.LevelWarn)
	logger.Store(slog.New(newHandler(os.Stderr, level, FormatText)))
}

// InitWriter replaces the global logger. Stdout is left to command output,
// so callers pass stderr or a test buffer.
func InitWriter(v int, format string, w io.Writer) {
	level.Set(VerbosityToLevel(v))
	l := slog.New(newHandler(w, level, format))
	logger.Store(l)
	slog.SetDefault(l)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// Component returns the global logger tagged with component=name.
func Component(name string) *slog.Logger {
	return logger.Load().With("component", name)
}
