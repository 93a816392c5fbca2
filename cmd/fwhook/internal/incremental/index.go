package incremental

import (
	"time"
)

// IndexVersion is the current version of the snapshot format.
const IndexVersion = 1

// Index is a snapshot of the asset source tree.
type Index struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Source    string            `json:"source"` // source dir relative to the project root
	Entries   map[string]*Entry `json:"entries"`
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		Version:   IndexVersion,
		UpdatedAt: time.Now(),
		Entries:   make(map[string]*Entry),
	}
}

// Add adds or replaces an entry.
func (idx *Index) Add(e *Entry) {
	if idx == nil || e == nil {
		return
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*Entry)
	}
	idx.Entries[e.Path] = e
}

// Get retrieves an entry by path.
func (idx *Index) Get(path string) (*Entry, bool) {
	if idx == nil || idx.Entries == nil {
		return nil, false
	}
	e, ok := idx.Entries[path]
	return e, ok
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Entries)
}

// Diff compares idx (old) against other (new). Entries with equal mtime and
// size are unchanged; otherwise their hashes decide.
func (idx *Index) Diff(other *Index) *ChangeSet {
	return diffEntries(entriesOf(idx), entriesOf(other), func(old, cur *Entry) bool {
		return old.Hash != cur.Hash
	})
}

func entriesOf(idx *Index) map[string]*Entry {
	if idx == nil || idx.Entries == nil {
		return map[string]*Entry{}
	}
	return idx.Entries
}

// diffEntries classifies paths as added, deleted, or modified. changed is
// only consulted when the stat of an entry differs.
func diffEntries(old, cur map[string]*Entry, changed func(old, cur *Entry) bool) *ChangeSet {
	cs := NewChangeSet()

	for path, e := range cur {
		prev, ok := old[path]
		switch {
		case !ok:
			cs.Added = append(cs.Added, path)
		case prev.sameStat(e):
		case changed(prev, e):
			cs.Modified = append(cs.Modified, path)
		}
	}
	for path := range old {
		if _, ok := cur[path]; !ok {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	cs.sort()
	return cs
}
