// Package incremental snapshots the asset source tree so later runs can tell
// which assets changed since the last bundle.
package incremental

// Entry is one asset's metadata and content hash.
type Entry struct {
	Path    string `json:"path"`     // slash-separated, relative to the source root
	Hash    string `json:"hash"`     // xxHash64 hex; empty in fast scans
	ModTime int64  `json:"mtime_ns"` // UnixNano
	Size    int64  `json:"size"`
}

// sameStat reports whether two entries agree on mtime and size.
func (e *Entry) sameStat(other *Entry) bool {
	return e.ModTime == other.ModTime && e.Size == other.Size
}
