package incremental

import (
	"context"
	"fmt"
	"path/filepath"
)

// Tracker compares the asset source tree with the snapshot saved after the
// last bundle.
type Tracker struct {
	store   Store
	scanner *Scanner
	source  string
	root    string
}

// NewTracker creates a tracker for the project at projectRoot. source may be
// absolute or relative to projectRoot. extensions and exclude select assets
// the way the bundler does.
func NewTracker(projectRoot, source string, extensions []string, exclude ...string) *Tracker {
	root := source
	if !filepath.IsAbs(root) {
		root = filepath.Join(projectRoot, source)
	}
	return &Tracker{
		store:   NewJSONStore(projectRoot),
		scanner: NewScanner(ScanConfig{Root: root, Extensions: extensions, Exclude: exclude}),
		source:  source,
		root:    root,
	}
}

// Status reports changes since the last Refresh without modifying state.
// Only assets whose mtime or size moved are hashed.
func (t *Tracker) Status(ctx context.Context) (*ChangeSet, error) {
	old, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	cur, err := t.scanner.ScanFast(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", t.root, err)
	}

	return diffEntries(entriesOf(old), entriesOf(cur), func(prev, e *Entry) bool {
		hash, err := HashFile(filepath.Join(t.root, filepath.FromSlash(e.Path)))
		if err != nil {
			return true
		}
		return prev.Hash != hash
	}), nil
}

// Refresh rescans the source tree and saves it as the new snapshot.
func (t *Tracker) Refresh(ctx context.Context) error {
	idx, err := t.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", t.root, err)
	}
	idx.Source = t.source

	if err := t.store.Save(idx); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// HasState returns true if a snapshot exists.
func (t *Tracker) HasState() bool {
	return t.store.Exists()
}

// TrackedFileCount returns the number of assets in the saved snapshot,
// or 0 if there is none.
func (t *Tracker) TrackedFileCount() int {
	idx, err := t.store.Load()
	if err != nil {
		return 0
	}
	return idx.Len()
}

// Root returns the asset source directory the tracker scans.
func (t *Tracker) Root() string {
	return t.root
}
