package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/assets"
	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/bundle"
	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/incremental"
	"github.com/fsnotify/fsnotify"
)

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

// BundleFunc re-bundles the whole asset tree.
type BundleFunc func(ctx context.Context) (*bundle.Result, error)

// Config configures the watcher.
type Config struct {
	Source     string   // asset source directory
	Output     string   // shown in the ready message
	Extensions []string // nil = assets.DefaultExtensions
	Exclude    []string // doublestar globs relative to Source
	Debounce   int      // milliseconds
	Verbose    bool
	NoColor    bool
	JSON       bool
	Writer     io.Writer // event output, defaults to stdout

	// Bundle runs on every debounce flush.
	Bundle BundleFunc
}

// Watcher re-bundles assets when the source tree changes.
type Watcher struct {
	config     Config
	root       string
	fsWatcher  *fsnotify.Watcher
	debouncer  *Debouncer
	logger     *Logger
	matcher    *assets.Matcher
	ignoreDirs map[string]bool

	ctx context.Context

	// bundleMu serialises bundle runs
	bundleMu sync.Mutex
}

// New creates a watcher. The source directory must exist.
func New(cfg Config) (*Watcher, error) {
	if cfg.Bundle == nil {
		return nil, errors.New("watch: no bundle function configured")
	}

	root, err := filepath.Abs(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", cfg.Source, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("asset source %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset source %s is not a directory", root)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		config:    cfg,
		root:      root,
		fsWatcher: fsWatcher,
		logger: NewLogger(LoggerConfig{
			Writer:  cfg.Writer,
			Verbose: cfg.Verbose,
			NoColor: cfg.NoColor,
			JSON:    cfg.JSON,
		}),
		matcher:    assets.NewMatcher(cfg.Extensions, cfg.Exclude...),
		ignoreDirs: assets.IgnoreDirSet(nil),
		ctx:        context.Background(),
	}, nil
}

// Run starts the watch loop. It blocks until ctx is cancelled; changes still
// pending at that point are bundled before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	w.ctx = context.WithoutCancel(ctx)

	window := time.Duration(w.config.Debounce) * time.Millisecond
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.handleChanged)
	defer w.debouncer.Stop()

	if err := w.addRecursive(w.root, false); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}

	count := 0
	if idx, err := incremental.NewScanner(incremental.ScanConfig{
		Root:       w.root,
		Extensions: w.config.Extensions,
		Exclude:    w.config.Exclude,
	}).ScanFast(ctx); err == nil {
		count = idx.Len()
	}
	w.logger.Ready(count, w.root, w.config.Output)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

func (w *Watcher) ignored(name string) bool {
	for prefix := range w.ignoreDirs {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// isAsset reports whether path, under the watched root, is bundled.
func (w *Watcher) isAsset(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.matcher.MatchPath(filepath.ToSlash(rel))
}

// addRecursive watches dir and its subdirectories. With queue set, assets
// already inside are queued as added (a directory moved or copied in).
func (w *Watcher) addRecursive(dir string, queue bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				if w.config.Verbose {
					w.logger.Error(fmt.Errorf("permission denied: %s", path))
				}
				return nil
			}
			w.logger.Error(fmt.Errorf("walk error at %s: %w", path, err))
			return nil
		}

		if !d.IsDir() {
			if queue && w.isAsset(path) {
				w.queue(path, ChangeAdded)
			}
			return nil
		}

		if path != w.root && w.ignored(d.Name()) {
			return filepath.SkipDir
		}

		if err := w.fsWatcher.Add(path); err != nil {
			if isWatchLimitError(err) {
				return fmt.Errorf("%w at %s: %v\n"+
					"Increase limit with: sudo sysctl fs.inotify.max_user_watches=524288",
					ErrWatchLimitReached, path, err)
			}
			if w.config.Verbose {
				w.logger.Error(fmt.Errorf("failed to watch %s: %w", path, err))
			}
		}
		return nil
	})
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left on device") ||
		strings.Contains(msg, "too many open files")
}

// handleEvent processes a single filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.ignored(filepath.Base(path)) {
				return
			}
			if err := w.addRecursive(path, true); err != nil {
				w.logger.Error(fmt.Errorf("failed to watch new directory %s: %w", path, err))
			}
			return
		}
	}

	if !w.isAsset(path) {
		return
	}

	var change ChangeType
	switch {
	case event.Has(fsnotify.Create):
		change = ChangeAdded
	case event.Has(fsnotify.Write):
		change = ChangeModified
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		change = ChangeDeleted
	default:
		return // chmod
	}

	w.queue(path, change)
}

func (w *Watcher) queue(path string, change ChangeType) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	w.logger.FileChanged(rel, change)
	w.debouncer.Add(rel)
}

// handleChanged runs on every debounce flush. The bundler has no freshness
// check, so the whole tree is rebundled whatever changed.
func (w *Watcher) handleChanged(paths []string) {
	w.bundleMu.Lock()
	defer w.bundleMu.Unlock()

	w.logger.Bundling(paths)

	res, err := w.config.Bundle(w.ctx)
	if err != nil {
		w.logger.Error(fmt.Errorf("bundle failed: %w", err))
		return
	}
	if res.SourceMissing {
		w.logger.Error(fmt.Errorf("asset source %s disappeared", w.root))
		return
	}
	w.logger.Bundled(len(res.Files), res.Duration)
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
