// Package bundle pre-compresses static web assets for embedding into firmware
// storage.
//
// Bundle walks a source tree and writes a gzip copy of every asset under a
// mirrored path in the output directory:
//
//	templates/index.html      -> data/index.html.gz
//	templates/js/app.js       -> data/js/app.js.gz
//
// Every asset is rewritten on every run; there is no freshness check.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/assets"
)

// Options configures a bundle run.
type Options struct {
	// Source is the asset tree to compress.
	Source string

	// Output receives the compressed mirror.
	Output string

	// Extensions is the asset allowlist. Empty selects assets.DefaultExtensions.
	Extensions []string

	// Exclude lists doublestar globs, relative to Source, of assets to skip.
	Exclude []string

	// Level is the gzip level (1-9). Zero selects best compression.
	Level int

	// Brotli also writes a .br sibling for every asset.
	Brotli bool

	// Logger receives the banners and one record per file. Defaults to slog.Default().
	Logger *slog.Logger
}

// File describes one compressed asset.
type File struct {
	// Source is the asset path as walked (under Options.Source).
	Source string `json:"source"`

	// Rel is Source relative to Options.Source, slash-separated.
	Rel string `json:"rel"`

	// Dest is the gzip output path.
	Dest string `json:"dest"`

	// BrotliDest is the .br output path, empty unless Options.Brotli.
	BrotliDest string `json:"brotli_dest,omitempty"`

	// Size and GzipSize are the original and compressed byte counts.
	Size     int64 `json:"size"`
	GzipSize int64 `json:"gzip_size"`

	// BrotliSize is the .br byte count, zero unless Options.Brotli.
	BrotliSize int64 `json:"brotli_size,omitempty"`
}

// Result contains the bundle output.
type Result struct {
	// SourceMissing is set when Options.Source does not exist; nothing was written.
	SourceMissing bool `json:"source_missing"`

	// Files lists compressed assets in walk (lexical) order.
	Files []File `json:"files"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`
}

// Bundle compresses every asset under opts.Source into opts.Output.
//
// A missing source directory is logged and reported through
// Result.SourceMissing with a nil error. Any other I/O failure aborts the
// run and is returned.
func Bundle(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	level := opts.Level
	if level == 0 {
		level = BestCompression
	}

	log.Info("compressing assets", "source", opts.Source, "output", opts.Output)

	info, err := os.Stat(opts.Source)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		log.Error("asset source directory does not exist", "source", opts.Source)
		return &Result{SourceMissing: true, Duration: time.Since(start)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", opts.Source, err)
	}

	matcher := assets.NewMatcher(opts.Extensions, opts.Exclude...)
	result := &Result{}

	err = filepath.WalkDir(opts.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(opts.Source, path)
		if err != nil {
			return err
		}
		if !matcher.MatchPath(filepath.ToSlash(rel)) {
			log.Debug("skipping", "path", path)
			return nil
		}
		regular, err := isRegularFile(path, d)
		if err != nil {
			return err
		}
		if !regular {
			return nil
		}

		f, err := compressAsset(path, rel, opts.Output, level, opts.Brotli)
		if err != nil {
			return err
		}
		result.Files = append(result.Files, f)

		log.Info("compressed",
			"source", f.Source,
			"dest", f.Dest,
			"size", f.Size,
			"gzip_size", f.GzipSize)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	log.Info("compression finished", "files", len(result.Files), "duration", result.Duration)
	return result, nil
}

// DestPath returns the gzip output path for an asset at rel under output.
func DestPath(output, rel string) string {
	return filepath.Join(output, rel+assets.GzipSuffix)
}

// isRegularFile reports whether the entry is a regular file, following
// symlinks. Dangling links are skipped.
func isRegularFile(path string, d fs.DirEntry) (bool, error) {
	if d.Type().IsRegular() {
		return true, nil
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false, nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		// dangling link
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// compressAsset writes the .gz (and optional .br) copies of one asset.
func compressAsset(path, rel, output string, level int, withBrotli bool) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	f := File{
		Source: path,
		Rel:    filepath.ToSlash(rel),
		Dest:   DestPath(output, rel),
		Size:   int64(len(data)),
	}

	if f.GzipSize, err = writeCompressed(f.Dest, data, gzipEncoder(level)); err != nil {
		return File{}, err
	}

	if withBrotli {
		f.BrotliDest = filepath.Join(output, rel+assets.BrotliSuffix)
		if f.BrotliSize, err = writeCompressed(f.BrotliDest, data, brotliEncoder()); err != nil {
			return File{}, err
		}
	}

	return f, nil
}
