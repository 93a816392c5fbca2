// Package stamp maintains the generated build-number fragment.
//
// Each run reads the previous fragment, increments its counter, and rewrites
// the whole file with the new counter plus the local date and time. The
// firmware compiles the fragment as ordinary constants.
package stamp

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Policy decides what a corrupt prior record means.
type Policy int

const (
	// PolicyReset treats a corrupt record like an absent one (counter restarts at 1).
	PolicyReset Policy = iota
	// PolicyStrict refuses to stamp over a corrupt record.
	PolicyStrict
)

// Next returns the build number that follows prior under policy. A counter
// at math.MaxInt has no successor and is handled like a corrupt record.
func Next(prior Prior, policy Policy) (int, error) {
	if prior.State == Found && prior.Number == math.MaxInt {
		prior = Prior{State: Corrupt, Err: fmt.Errorf("%w: counter %d cannot be incremented", ErrCorrupt, prior.Number)}
	}
	switch prior.State {
	case Found:
		return prior.Number + 1, nil
	case Corrupt:
		if policy == PolicyStrict {
			return 0, prior.Err
		}
		return 1, nil
	default:
		return 1, nil
	}
}

// Options configures a Stamper.
type Options struct {
	// Path is the generated fragment.
	Path string

	// Marker identifies the counter line (e.g. "buildNumber").
	Marker string

	// Format and GoPackage select the fragment language.
	Format    string
	GoPackage string

	// Policy resolves corrupt prior records.
	Policy Policy

	// Now supplies the wall clock. Defaults to time.Now.
	Now func() time.Time

	// Logger receives progress records. Defaults to slog.Default().
	Logger *slog.Logger
}

// Stamper rewrites the build-number fragment.
type Stamper struct {
	opts Options
}

// New creates a Stamper, filling unset options with defaults.
func New(opts Options) *Stamper {
	if opts.Marker == "" {
		opts.Marker = "buildNumber"
		if opts.Format == FormatGo {
			opts.Marker = "BuildNumber"
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Stamper{opts: opts}
}

// Stamp reads the prior counter, increments it, and overwrites the fragment.
func (s *Stamper) Stamp(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	log := s.opts.Logger
	prior := ReadPrior(s.opts.Path, s.opts.Marker)
	switch prior.State {
	case Absent:
		log.Debug("no prior build record", "path", s.opts.Path)
	case Corrupt:
		if s.opts.Policy != PolicyStrict {
			log.Warn("prior build record unreadable, counter reset", "path", s.opts.Path, "error", prior.Err)
		}
	case Found:
		log.Debug("prior build record", "path", s.opts.Path, "number", prior.Number)
	}

	n, err := Next(prior, s.opts.Policy)
	if err != nil {
		return Record{}, fmt.Errorf("refusing to stamp %s: %w", s.opts.Path, err)
	}

	rec := NewRecord(n, s.opts.Now().Local())
	data, err := Render(rec, RenderOptions{
		Format:    s.opts.Format,
		FileName:  s.opts.Path,
		GoPackage: s.opts.GoPackage,
	})
	if err != nil {
		return Record{}, err
	}

	if err := writeFile(s.opts.Path, data); err != nil {
		return Record{}, err
	}

	log.Info("build number stamped",
		"path", s.opts.Path,
		"number", rec.Number,
		"date", rec.Date,
		"time", rec.Time)
	return rec, nil
}

// writeFile replaces path with data via a temp file so a failed write
// never leaves a half-written fragment behind.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
