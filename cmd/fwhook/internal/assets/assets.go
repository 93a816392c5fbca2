// Package assets defines which files the bundler treats as web assets.
//
// # Single Source of Truth
//
// The bundler, the incremental tracker, and the watcher all decide whether a
// path is an asset through this package, so a file that `fwhook bundle`
// compresses is exactly a file that `fwhook status` tracks and `fwhook watch`
// reacts to.
//
// Matching is DETERMINISTIC and case-sensitive on filepath.Ext, so
// "INDEX.HTML" is not an asset under the default allowlist.
//
// Exclude patterns are doublestar globs matched against the slash-separated
// path relative to the source root ("vendor/**", "**/*.min.js").
package assets

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions is the allowlist used when no configuration overrides it.
var DefaultExtensions = []string{".html", ".css", ".js"}

// CompressedSuffixes lists suffixes of files that are already compressed
// output. Such files are never assets, whatever the allowlist says.
var CompressedSuffixes = []string{".gz", ".br"}

// Suffix of the primary compressed output.
const (
	GzipSuffix   = ".gz"
	BrotliSuffix = ".br"
)

// Matcher decides whether a file is an asset.
type Matcher struct {
	extensions map[string]bool
	exclude    []string
}

// NewMatcher builds a matcher for the given allowlist and exclude globs.
// A nil or empty allowlist selects DefaultExtensions. Invalid globs never
// match; check them with ValidatePatterns first.
func NewMatcher(extensions []string, exclude ...string) *Matcher {
	return &Matcher{extensions: ExtensionSet(extensions), exclude: exclude}
}

// Match reports whether name has an allowlisted extension and does not
// already carry a compressed suffix.
func (m *Matcher) Match(name string) bool {
	if IsCompressed(name) {
		return false
	}
	return m.extensions[filepath.Ext(name)]
}

// MatchPath reports whether the file at rel (slash-separated, relative to
// the source root) is an asset and not excluded.
func (m *Matcher) MatchPath(rel string) bool {
	if !m.Match(path.Base(rel)) {
		return false
	}
	for _, pattern := range m.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

// ValidatePatterns returns an error naming the first malformed glob.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

// Extensions returns the allowlist as a set.
func (m *Matcher) Extensions() map[string]bool {
	return m.extensions
}

// IsCompressed reports whether name ends in one of CompressedSuffixes.
func IsCompressed(name string) bool {
	for _, suffix := range CompressedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ExtensionSet returns the given extensions as a set, normalising a missing
// leading dot. If extensions is empty, DefaultExtensions is used.
func ExtensionSet(extensions []string) map[string]bool {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// IgnoredDirs contains directory name prefixes the watcher does not
// subscribe to. The bundler still walks everything under the source root.
var IgnoredDirs = []string{
	".",            // Hidden directories (.git, .pio)
	"node_modules", // Node.js dependencies
}

// IgnoreDirSet returns a set of ignored directory prefixes,
// combining defaults with any additional patterns.
func IgnoreDirSet(additional []string) map[string]bool {
	dirs := make(map[string]bool)
	for _, dir := range IgnoredDirs {
		dirs[dir] = true
	}
	for _, dir := range additional {
		dirs[dir] = true
	}
	return dirs
}
