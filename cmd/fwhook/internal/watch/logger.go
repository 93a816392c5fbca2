package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// ChangeType is the kind of asset change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "+"
	ChangeModified ChangeType = "~"
	ChangeDeleted  ChangeType = "-"
)

// Logger writes watch session events, either as human lines or one JSON
// object per line.
type Logger struct {
	writer  io.Writer
	isTTY   bool
	verbose bool
	noColor bool
	jsonOut bool
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

// Stats summarises a watch session.
type Stats struct {
	Bundles   int
	Files     int
	Errors    int
	StartTime time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer // defaults to stdout
	Verbose bool      // print every file event
	NoColor bool
	JSON    bool
}

// NewLogger creates a logger. Colour is only used when Writer is a terminal.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		writer:  writer,
		isTTY:   isTTY,
		verbose: cfg.Verbose,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
		now:     time.Now,
		stats:   Stats{StartTime: time.Now()},
	}
}

// Ready reports that the watch loop is running.
func (l *Logger) Ready(assetCount int, source, output string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":  "ready",
			"assets": assetCount,
			"source": source,
			"output": output,
		})
		return
	}

	l.printf("fwhook: watching %d assets in %s\n", assetCount, source)
	l.printf("fwhook: compressed copies go to %s\n", output)
	l.println("fwhook: ready")
	l.println()
}

// FileChanged reports one asset event. Human output only shows it when verbose.
func (l *Logger) FileChanged(path string, change ChangeType) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":  "file_changed",
			"path":   path,
			"change": string(change),
			"time":   l.now().Format(time.RFC3339),
		})
		return
	}

	if l.verbose {
		l.printf("[%s] %s %s\n", l.timestamp(), l.colorize(string(change), change), path)
	}
}

// Bundling reports that a re-bundle is starting for the changed paths.
func (l *Logger) Bundling(paths []string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "bundling",
			"paths": paths,
			"time":  l.now().Format(time.RFC3339),
		})
		return
	}

	if len(paths) == 1 {
		l.printf("[%s] %s changed, bundling...\n", l.timestamp(), paths[0])
	} else {
		l.printf("[%s] %d assets changed, bundling...\n", l.timestamp(), len(paths))
	}
}

// Bundled reports a finished re-bundle.
func (l *Logger) Bundled(files int, took time.Duration) {
	l.mu.Lock()
	l.stats.Bundles++
	l.stats.Files += files
	l.mu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "bundled",
			"files":    files,
			"duration": took.String(),
			"time":     l.now().Format(time.RFC3339),
		})
		return
	}

	checkmark := l.colorize("✓", ChangeAdded)
	l.printf("[%s] %s %d assets compressed in %s\n", l.timestamp(), checkmark, files, took.Round(time.Millisecond))
}

// Error reports a failure. The session keeps running.
func (l *Logger) Error(err error) {
	l.mu.Lock()
	l.stats.Errors++
	l.mu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "error",
			"error": err.Error(),
			"time":  l.now().Format(time.RFC3339),
		})
		return
	}

	xmark := l.colorize("✗", ChangeDeleted)
	l.printf("[%s] %s error: %v\n", l.timestamp(), xmark, err)
}

// Shutdown reports the session summary.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "shutdown",
			"bundles":  stats.Bundles,
			"files":    stats.Files,
			"errors":   stats.Errors,
			"duration": time.Since(stats.StartTime).String(),
		})
		return
	}

	l.println()
	l.printf("fwhook: shutting down (%d bundles, %d errors)\n", stats.Bundles, stats.Errors)
}

// Stats returns the session statistics so far.
func (l *Logger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Logger) timestamp() string {
	return l.now().Format("15:04:05")
}

// colorize wraps s in the ANSI colour for change.
func (l *Logger) colorize(s string, change ChangeType) string {
	if l.noColor || !l.isTTY {
		return s
	}

	var color string
	switch change {
	case ChangeAdded:
		color = "\033[32m"
	case ChangeModified:
		color = "\033[33m"
	case ChangeDeleted:
		color = "\033[31m"
	default:
		return s
	}
	return color + s + "\033[0m"
}

func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.println(`{"event":"internal_error","error":"json marshal failed"}`)
		return
	}
	l.println(string(data))
}

// Write errors are ignored; the session output is informational.
func (l *Logger) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.writer, format, args...)
}

func (l *Logger) println(args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.writer, args...)
}
