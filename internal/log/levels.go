// Package log holds the process-wide slog logger behind the -v and
// --log-format flags. Hook commands log through Component loggers so every
// record in the PlatformIO build output names the step that wrote it.
package log

import "log/slog"

// LevelTrace sits below debug and is only reached with -v 4.
const LevelTrace = slog.Level(-8)

// Values of -v.
const (
	VerbosityError = 0
	VerbosityWarn  = 1
	VerbosityInfo  = 2 // stamped numbers, compressed files, banners
	VerbosityDebug = 3 // config layers, skipped files, hook lookup
	VerbosityTrace = 4
)

// VerbosityToLevel maps -v=N to a slog level. Out-of-range values clamp.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= VerbosityError:
		return slog.LevelError
	case v == VerbosityWarn:
		return slog.LevelWarn
	case v == VerbosityInfo:
		return slog.LevelInfo
	case v == VerbosityDebug:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

func levelName(l slog.Level) string {
	if l == LevelTrace {
		return "TRACE"
	}
	return l.String()
}
