// Package config provides configuration management for fwhook.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/fwhook/config.toml)
//  3. Project config (.fwhook/config.toml or fwhook.toml)
//  4. Environment variables (FWHOOK_*)
//  5. CLI flags (highest priority)
package config

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// Stamp output formats.
const (
	FormatCPP = "cpp"
	FormatGo  = "go"
)

// Fragment path and counter marker used when stamp.path or stamp.marker is unset.
const (
	DefaultStampPath   = "src/build_number.cpp"
	DefaultStampMarker = "buildNumber"
	GoStampPath        = "version/version.go"
	GoStampMarker      = "BuildNumber"
)

// Config is the main configuration struct for fwhook.
type Config struct {
	// Stamp configures the build-number stamper.
	Stamp StampConfig `toml:"stamp"`

	// Bundle configures the asset bundler.
	Bundle BundleConfig `toml:"bundle"`

	// Watch configures `fwhook watch`.
	Watch WatchConfig `toml:"watch"`

	// PIO configures how the PlatformIO CLI is located.
	PIO PIOConfig `toml:"pio"`
}

// StampConfig holds build-number stamper settings.
type StampConfig struct {
	// Path is the generated fragment, relative to the project root.
	// Empty selects the format's default (see StampPath).
	Path string `toml:"path"`

	// Marker identifies the counter line in the previous fragment.
	// Empty selects the format's default (see StampMarker).
	Marker string `toml:"marker"`

	// Format is the fragment language ("cpp" or "go").
	Format string `toml:"format"`

	// GoPackage is the package clause used by the "go" format.
	GoPackage string `toml:"go_package"`

	// Strict makes a corrupt prior fragment abort the stamp instead of resetting to zero.
	Strict *bool `toml:"strict"`
}

// BundleConfig holds asset bundler settings.
type BundleConfig struct {
	// Source is the asset tree to compress, relative to the project root.
	Source string `toml:"source"`

	// Output is the directory receiving the compressed mirror.
	Output string `toml:"output"`

	// Extensions is the allowlist of file extensions (with leading dot).
	Extensions []string `toml:"extensions"`

	// Exclude lists doublestar globs, relative to Source, of files never bundled.
	Exclude []string `toml:"exclude"`

	// Level is the gzip compression level (1-9).
	Level int `toml:"level"`

	// Brotli also writes a .br sibling for every asset.
	Brotli *bool `toml:"brotli"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	// DebounceMS is the debounce window in milliseconds.
	DebounceMS int `toml:"debounce_ms"`
}

// PIOConfig holds PlatformIO CLI settings.
type PIOConfig struct {
	// Binary is an explicit path to the pio executable.
	Binary string `toml:"binary"`
}

// NewConfig creates a new Config with built-in defaults.
func NewConfig() *Config {
	falseVal := false
	return &Config{
		Stamp: StampConfig{
			Format:    FormatCPP,
			GoPackage: "version",
			Strict:    &falseVal,
		},
		Bundle: BundleConfig{
			Source:     "templates",
			Output:     "data",
			Extensions: []string{".html", ".css", ".js"},
			Level:      9,
			Brotli:     &falseVal,
		},
		Watch: WatchConfig{
			DebounceMS: 300,
		},
	}
}

// StampPath returns the fragment path, defaulting by format.
func (c *Config) StampPath() string {
	switch {
	case c.Stamp.Path != "":
		return c.Stamp.Path
	case c.Stamp.Format == FormatGo:
		return GoStampPath
	default:
		return DefaultStampPath
	}
}

// StampMarker returns the counter marker, defaulting by format. The marker
// must match the identifier the format renders or the counter never advances.
func (c *Config) StampMarker() string {
	switch {
	case c.Stamp.Marker != "":
		return c.Stamp.Marker
	case c.Stamp.Format == FormatGo:
		return GoStampMarker
	default:
		return DefaultStampMarker
	}
}

// StrictStamp reports whether a corrupt prior fragment should abort the stamp.
func (c *Config) StrictStamp() bool {
	return c.Stamp.Strict != nil && *c.Stamp.Strict
}

// BrotliEnabled reports whether .br siblings are written.
func (c *Config) BrotliEnabled() bool {
	return c.Bundle.Brotli != nil && *c.Bundle.Brotli
}

// Validate checks values that would otherwise fail deep inside a hook.
func (c *Config) Validate() error {
	if !slices.Contains([]string{FormatCPP, FormatGo}, c.Stamp.Format) {
		return fmt.Errorf("stamp.format %q is not one of %q, %q", c.Stamp.Format, FormatCPP, FormatGo)
	}
	if path := c.StampPath(); (c.Stamp.Format == FormatGo) != (filepath.Ext(path) == ".go") {
		return fmt.Errorf("stamp.path %q does not match stamp.format %q", path, c.Stamp.Format)
	}
	if c.Bundle.Source == "" || c.Bundle.Output == "" {
		return fmt.Errorf("bundle.source and bundle.output must not be empty")
	}
	if len(c.Bundle.Extensions) == 0 {
		return fmt.Errorf("bundle.extensions must list at least one extension")
	}
	if c.Bundle.Level < 1 || c.Bundle.Level > 9 {
		return fmt.Errorf("bundle.level %d out of range 1-9", c.Bundle.Level)
	}
	for _, p := range c.Bundle.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("bundle.exclude pattern %q is malformed", p)
		}
	}
	return nil
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Stamp
	if other.Stamp.Path != "" {
		c.Stamp.Path = other.Stamp.Path
	}
	if other.Stamp.Marker != "" {
		c.Stamp.Marker = other.Stamp.Marker
	}
	if other.Stamp.Format != "" {
		c.Stamp.Format = other.Stamp.Format
	}
	if other.Stamp.GoPackage != "" {
		c.Stamp.GoPackage = other.Stamp.GoPackage
	}
	if other.Stamp.Strict != nil {
		c.Stamp.Strict = other.Stamp.Strict
	}

	// Bundle
	if other.Bundle.Source != "" {
		c.Bundle.Source = other.Bundle.Source
	}
	if other.Bundle.Output != "" {
		c.Bundle.Output = other.Bundle.Output
	}
	if len(other.Bundle.Extensions) > 0 {
		c.Bundle.Extensions = other.Bundle.Extensions
	}
	if len(other.Bundle.Exclude) > 0 {
		c.Bundle.Exclude = other.Bundle.Exclude
	}
	if other.Bundle.Level != 0 {
		c.Bundle.Level = other.Bundle.Level
	}
	if other.Bundle.Brotli != nil {
		c.Bundle.Brotli = other.Bundle.Brotli
	}

	// Watch
	if other.Watch.DebounceMS != 0 {
		c.Watch.DebounceMS = other.Watch.DebounceMS
	}

	// PIO
	if other.PIO.Binary != "" {
		c.PIO.Binary = other.PIO.Binary
	}
}
