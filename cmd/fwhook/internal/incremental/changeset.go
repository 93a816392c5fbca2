package incremental

import (
	"path"
	"path/filepath"
	"slices"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/assets"
)

// ChangeSet lists assets that differ between two snapshots.
// Paths are slash-separated and relative to the source root.
type ChangeSet struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

// NewChangeSet creates an empty ChangeSet.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		Added:    []string{},
		Modified: []string{},
		Deleted:  []string{},
	}
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	return cs.TotalChanges() == 0
}

// TotalChanges returns the number of changed assets.
func (cs *ChangeSet) TotalChanges() int {
	if cs == nil {
		return 0
	}
	return len(cs.Added) + len(cs.Modified) + len(cs.Deleted)
}

// AffectedDirs returns sorted unique source directories containing changes.
func (cs *ChangeSet) AffectedDirs() []string {
	if cs == nil {
		return nil
	}

	dirs := make(map[string]struct{})
	for _, group := range [][]string{cs.Added, cs.Modified, cs.Deleted} {
		for _, p := range group {
			dirs[path.Dir(p)] = struct{}{}
		}
	}

	result := make([]string, 0, len(dirs))
	for dir := range dirs {
		result = append(result, dir)
	}
	slices.Sort(result)
	return result
}

// StaleOutputs maps affected source directories to their mirror under output.
func (cs *ChangeSet) StaleOutputs(output string) []string {
	dirs := cs.AffectedDirs()
	stale := make([]string, len(dirs))
	for i, dir := range dirs {
		stale[i] = filepath.Join(output, filepath.FromSlash(dir))
	}
	return stale
}

// Orphans returns the compressed outputs left behind by deleted assets.
// Bundling never removes them.
func (cs *ChangeSet) Orphans(output string) []string {
	if cs == nil {
		return nil
	}
	orphans := make([]string, len(cs.Deleted))
	for i, p := range cs.Deleted {
		orphans[i] = filepath.Join(output, filepath.FromSlash(p)+assets.GzipSuffix)
	}
	return orphans
}

// sort sorts all slices for deterministic output.
func (cs *ChangeSet) sort() {
	if cs == nil {
		return
	}
	slices.Sort(cs.Added)
	slices.Sort(cs.Modified)
	slices.Sort(cs.Deleted)
}
