package config

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/albertocavalcante/fwhook/internal/log"
)

// isolate points the global config lookup at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.StampPath() != "src/build_number.cpp" {
		t.Errorf("stamp path should be 'src/build_number.cpp', got %q", cfg.StampPath())
	}
	if cfg.StampMarker() != "buildNumber" {
		t.Errorf("stamp marker should be 'buildNumber', got %q", cfg.StampMarker())
	}
	if cfg.StrictStamp() {
		t.Error("strict stamping should be off by default")
	}
	if cfg.Bundle.Source != "templates" || cfg.Bundle.Output != "data" {
		t.Errorf("bundle dirs should be templates -> data, got %q -> %q", cfg.Bundle.Source, cfg.Bundle.Output)
	}
	if !slices.Equal(cfg.Bundle.Extensions, []string{".html", ".css", ".js"}) {
		t.Errorf("unexpected default extensions %v", cfg.Bundle.Extensions)
	}
	if cfg.BrotliEnabled() {
		t.Error("brotli should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown format", func(c *Config) { c.Stamp.Format = "rust" }},
		{"go format with cpp path", func(c *Config) {
			c.Stamp.Format = FormatGo
			c.Stamp.Path = "src/build_number.cpp"
		}},
		{"cpp format with go path", func(c *Config) { c.Stamp.Path = "version/version.go" }},
		{"empty source", func(c *Config) { c.Bundle.Source = "" }},
		{"no extensions", func(c *Config) { c.Bundle.Extensions = nil }},
		{"level too high", func(c *Config) { c.Bundle.Level = 12 }},
		{"malformed exclude", func(c *Config) { c.Bundle.Exclude = []string{"vendor/[a"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := NewConfig()
	trueVal := true
	other := &Config{
		Bundle: BundleConfig{
			Source:     "web",
			Extensions: []string{".html", ".svg"},
			Brotli:     &trueVal,
		},
		Stamp: StampConfig{Strict: &trueVal},
	}

	base.Merge(other)

	if base.Bundle.Source != "web" {
		t.Errorf("bundle source should be 'web', got %q", base.Bundle.Source)
	}
	if base.Bundle.Output != "data" {
		t.Errorf("bundle output should keep default 'data', got %q", base.Bundle.Output)
	}
	if !slices.Equal(base.Bundle.Extensions, []string{".html", ".svg"}) {
		t.Errorf("extensions should be replaced, got %v", base.Bundle.Extensions)
	}
	if !base.BrotliEnabled() || !base.StrictStamp() {
		t.Error("bool pointers should be merged")
	}

	base.Merge(nil) // should not panic
}

func TestStampDefaultsFollowFormat(t *testing.T) {
	tests := []struct {
		name       string
		layers     []StampConfig
		wantPath   string
		wantMarker string
	}{
		{"defaults", nil, "src/build_number.cpp", "buildNumber"},
		{"go format", []StampConfig{{Format: FormatGo}}, "version/version.go", "BuildNumber"},
		{"go then cpp", []StampConfig{{Format: FormatGo}, {Format: FormatCPP}}, "src/build_number.cpp", "buildNumber"},
		{"explicit marker wins", []StampConfig{{Format: FormatGo, Marker: "Counter"}}, "version/version.go", "Counter"},
		{"explicit path kept across layers", []StampConfig{{Path: "fw/build.go"}, {Format: FormatGo}}, "fw/build.go", "BuildNumber"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			for _, layer := range tt.layers {
				cfg.Merge(&Config{Stamp: layer})
			}
			if got := cfg.StampPath(); got != tt.wantPath {
				t.Errorf("StampPath() = %q, want %q", got, tt.wantPath)
			}
			if got := cfg.StampMarker(); got != tt.wantMarker {
				t.Errorf("StampMarker() = %q, want %q", got, tt.wantMarker)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fwhook.toml")

	configContent := `
[stamp]
path = "src/version.go"
format = "go"
go_package = "buildinfo"
strict = true

[bundle]
source = "web"
extensions = [".html", ".css", ".js", ".svg"]
level = 6
brotli = true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg := loadConfigFile(configPath)
	if cfg == nil {
		t.Fatal("loadConfigFile returned nil")
	}

	if cfg.Stamp.Path != "src/version.go" || cfg.Stamp.Format != FormatGo {
		t.Errorf("stamp section not decoded: %+v", cfg.Stamp)
	}
	if cfg.Stamp.GoPackage != "buildinfo" {
		t.Errorf("go_package should be 'buildinfo', got %q", cfg.Stamp.GoPackage)
	}
	if cfg.Stamp.Strict == nil || !*cfg.Stamp.Strict {
		t.Error("strict should be true")
	}
	if len(cfg.Bundle.Extensions) != 4 {
		t.Errorf("expected 4 extensions, got %d", len(cfg.Bundle.Extensions))
	}
	if cfg.Bundle.Level != 6 {
		t.Errorf("level should be 6, got %d", cfg.Bundle.Level)
	}
}

func TestLoadConfigFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fwhook.toml")
	if err := os.WriteFile(path, []byte("[bundle\nsource = "), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	log.InitWriter(log.VerbosityWarn, log.FormatText, &buf)
	t.Cleanup(func() { log.InitWriter(log.VerbosityWarn, log.FormatText, os.Stderr) })

	if cfg := loadConfigFile(path); cfg != nil {
		t.Error("loadConfigFile should return nil for malformed TOML")
	}
	if out := buf.String(); !strings.Contains(out, "malformed config") || !strings.Contains(out, path) {
		t.Errorf("expected a warning naming %s, got: %s", path, out)
	}
}

func TestLoadFrom_MalformedProjectConfigWarns(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ProjectMarker), []byte("[env:esp32]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("[bundle]\nsource = web\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	log.InitWriter(log.VerbosityWarn, log.FormatText, &buf)
	t.Cleanup(func() { log.InitWriter(log.VerbosityWarn, log.FormatText, os.Stderr) })

	cfg := LoadFrom(dir)
	if cfg.Bundle.Source != "templates" {
		t.Errorf("malformed layer should be skipped, source = %q", cfg.Bundle.Source)
	}
	if !strings.Contains(buf.String(), ConfigFileName) {
		t.Errorf("expected a warning naming %s, got: %s", ConfigFileName, buf.String())
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("[bundle]\noutput = \"spiffs\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Bundle.Output != "spiffs" {
		t.Errorf("output should be 'spiffs', got %q", cfg.Bundle.Output)
	}
	if cfg.Bundle.Source != "templates" {
		t.Errorf("source should keep default, got %q", cfg.Bundle.Source)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFile() expected error for missing file")
	}
}

func TestApplyEnvironmentVariables(t *testing.T) {
	cfg := NewConfig()

	t.Setenv("FWHOOK_STAMP_PATH", "src/gen/build.cpp")
	t.Setenv("FWHOOK_STAMP_STRICT", "yes")
	t.Setenv("FWHOOK_BUNDLE_EXTENSIONS", ".html, .js")
	t.Setenv("FWHOOK_BUNDLE_BROTLI", "1")
	t.Setenv("FWHOOK_BUNDLE_LEVEL", "5")
	t.Setenv("FWHOOK_BUNDLE_EXCLUDE", "vendor/**,**/*.map")
	t.Setenv("FWHOOK_PIO", "/opt/pio/bin/pio")

	applyEnvironmentVariables(cfg)

	if cfg.StampPath() != "src/gen/build.cpp" {
		t.Errorf("stamp path not applied, got %q", cfg.StampPath())
	}
	if !cfg.StrictStamp() {
		t.Error("strict should be enabled via env var")
	}
	if !slices.Equal(cfg.Bundle.Extensions, []string{".html", ".js"}) {
		t.Errorf("extensions not applied, got %v", cfg.Bundle.Extensions)
	}
	if !cfg.BrotliEnabled() {
		t.Error("brotli should be enabled via env var")
	}
	if cfg.Bundle.Level != 5 {
		t.Errorf("level should be 5, got %d", cfg.Bundle.Level)
	}
	if !slices.Equal(cfg.Bundle.Exclude, []string{"vendor/**", "**/*.map"}) {
		t.Errorf("exclude not applied, got %v", cfg.Bundle.Exclude)
	}
	if cfg.PIO.Binary != "/opt/pio/bin/pio" {
		t.Errorf("pio binary not applied, got %q", cfg.PIO.Binary)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{".html,.css,.js", []string{".html", ".css", ".js"}},
		{" .html , .css ", []string{".html", ".css"}},
		{".js", []string{".js"}},
		{"", []string{}},
		{" , , ", []string{}},
	}

	for _, tt := range tests {
		result := splitAndTrim(tt.input)
		if !slices.Equal(result, tt.expected) {
			t.Errorf("splitAndTrim(%q) = %v, want %v", tt.input, result, tt.expected)
		}
	}
}

func TestProjectConfigSearch(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	projectDir := filepath.Join(tmpDir, "project")
	subDir := filepath.Join(projectDir, "src", "net")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatalf("failed to create project dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, ProjectMarker), []byte("[env:esp32]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, ConfigFileName), []byte("[bundle]\nsource = \"www\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadFrom(subDir)
	if cfg.Bundle.Source != "www" {
		t.Errorf("project config not found from subdir, source = %q", cfg.Bundle.Source)
	}

	if got := FindProjectRoot(subDir); got != projectDir {
		t.Errorf("FindProjectRoot() = %q, want %q", got, projectDir)
	}
}

func TestProjectConfigDirPreferred(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ConfigDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigDirName, "config.toml"), []byte("[bundle]\noutput = \"a\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("[bundle]\noutput = \"b\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadFrom(dir)
	if cfg.Bundle.Output != "a" {
		t.Errorf(".fwhook/config.toml should win over fwhook.toml, got %q", cfg.Bundle.Output)
	}
}

func TestApplyEnvironmentVariables_GoFormat(t *testing.T) {
	cfg := NewConfig()
	t.Setenv("FWHOOK_STAMP_FORMAT", "go")

	applyEnvironmentVariables(cfg)

	if cfg.StampPath() != GoStampPath || cfg.StampMarker() != GoStampMarker {
		t.Errorf("go format via env should select %s/%s, got %s/%s",
			GoStampPath, GoStampMarker, cfg.StampPath(), cfg.StampMarker())
	}
}
