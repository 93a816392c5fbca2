package incremental

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/assets"
)

// ScanConfig configures the scanner.
type ScanConfig struct {
	Root       string
	Extensions []string // nil = assets.DefaultExtensions
	Exclude    []string // doublestar globs relative to Root
}

// Scanner builds an Index by walking the asset source tree. It selects the
// same files the bundler compresses.
type Scanner struct {
	root    string
	matcher *assets.Matcher
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScanConfig) *Scanner {
	return &Scanner{
		root:    cfg.Root,
		matcher: assets.NewMatcher(cfg.Extensions, cfg.Exclude...),
	}
}

// Scan walks the source tree and hashes every asset.
// A missing root yields an empty index.
func (s *Scanner) Scan(ctx context.Context) (*Index, error) {
	return s.walk(ctx, true)
}

// ScanFast walks the source tree recording only mtime and size.
func (s *Scanner) ScanFast(ctx context.Context) (*Index, error) {
	return s.walk(ctx, false)
}

func (s *Scanner) walk(ctx context.Context, hash bool) (*Index, error) {
	idx := NewIndex()

	if _, err := os.Stat(s.root); errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !s.matcher.MatchPath(rel) {
			return nil
		}

		// os.Stat follows symlinks the way the bundler does
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		entry := &Entry{
			Path:    rel,
			ModTime: info.ModTime().UnixNano(),
			Size:    info.Size(),
		}
		if hash {
			if entry.Hash, err = HashFile(path); err != nil {
				return err
			}
		}

		idx.Add(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}
