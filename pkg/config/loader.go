package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/albertocavalcante/fwhook/internal/log"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "fwhook.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".fwhook"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "fwhook"

// ProjectMarker marks the root of a PlatformIO project.
const ProjectMarker = "platformio.ini"

// Load loads configuration starting from the current directory.
func Load() *Config {
	wd, err := os.Getwd()
	if err != nil {
		return LoadFrom("")
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration from all layers in order of precedence:
//  1. Built-in defaults
//  2. Global user config (~/.config/fwhook/config.toml)
//  3. Project config found by searching up from dir
//  4. Environment variables (FWHOOK_*)
//
// CLI flags are applied separately after LoadFrom returns.
func LoadFrom(dir string) *Config {
	cfg := NewConfig()

	// Layer 2: Global user config
	if globalCfg := loadGlobalConfig(); globalCfg != nil {
		cfg.Merge(globalCfg)
	}

	// Layer 3: Project config
	if dir != "" {
		if projectCfg := loadProjectConfigFrom(dir); projectCfg != nil {
			cfg.Merge(projectCfg)
		}
	}

	// Layer 4: Environment variables
	applyEnvironmentVariables(cfg)

	return cfg
}

// LoadFile loads an explicit config file (--config) on top of the defaults.
// Unlike the search layers, a missing or malformed file is an error.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fileCfg Config
	if _, err := toml.Decode(string(data), &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg := NewConfig()
	cfg.Merge(&fileCfg)
	applyEnvironmentVariables(cfg)
	return cfg, nil
}

// FindProjectRoot walks up from dir to the nearest directory holding
// platformio.ini or .git. It returns dir itself when no marker is found.
func FindProjectRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	current := abs
	for {
		if isProjectRoot(current) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs
		}
		current = parent
	}
}

// loadGlobalConfig loads the global user configuration from ~/.config/fwhook/config.toml.
func loadGlobalConfig() *Config {
	path := GetGlobalConfigPath()
	if path == "" {
		return nil
	}
	return loadConfigFile(path)
}

// loadProjectConfigFrom looks for project configuration starting from the given directory.
func loadProjectConfigFrom(dir string) *Config {
	current := dir
	for {
		for _, candidate := range GetProjectConfigPaths(current) {
			if cfg := loadConfigFile(candidate); cfg != nil {
				return cfg
			}
		}

		// Stop at filesystem root or project root
		if isProjectRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil
}

// isProjectRoot checks if the directory has platformio.ini or .git.
func isProjectRoot(dir string) bool {
	for _, marker := range []string{ProjectMarker, ".git"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads a configuration from a TOML file. A file that exists
// but does not parse is skipped with a warning so the layer below applies.
func loadConfigFile(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		log.Warn("ignoring malformed config file", "path", path, "error", err)
		return nil
	}

	return &cfg
}

// applyEnvironmentVariables applies FWHOOK_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) {
	// Stamper
	if v := os.Getenv("FWHOOK_STAMP_PATH"); v != "" {
		cfg.Stamp.Path = v
	}
	if v := os.Getenv("FWHOOK_STAMP_MARKER"); v != "" {
		cfg.Stamp.Marker = v
	}
	if v := os.Getenv("FWHOOK_STAMP_FORMAT"); v != "" {
		cfg.Stamp.Format = v
	}
	applyBoolEnv("FWHOOK_STAMP_STRICT", &cfg.Stamp.Strict)

	// Bundler
	if v := os.Getenv("FWHOOK_BUNDLE_SOURCE"); v != "" {
		cfg.Bundle.Source = v
	}
	if v := os.Getenv("FWHOOK_BUNDLE_OUTPUT"); v != "" {
		cfg.Bundle.Output = v
	}
	if v := os.Getenv("FWHOOK_BUNDLE_EXTENSIONS"); v != "" {
		cfg.Bundle.Extensions = splitAndTrim(v)
	}
	if v := os.Getenv("FWHOOK_BUNDLE_EXCLUDE"); v != "" {
		cfg.Bundle.Exclude = splitAndTrim(v)
	}
	if v := os.Getenv("FWHOOK_BUNDLE_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Bundle.Level = n
		}
	}
	applyBoolEnv("FWHOOK_BUNDLE_BROTLI", &cfg.Bundle.Brotli)

	// PlatformIO
	if v := os.Getenv("FWHOOK_PIO"); v != "" {
		cfg.PIO.Binary = v
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyBoolEnv applies a boolean environment variable to a pointer.
func applyBoolEnv(envVar string, target **bool) {
	if v := os.Getenv(envVar); v != "" {
		v = strings.ToLower(v)
		if v == "true" || v == "1" || v == "yes" {
			t := true
			*target = &t
		} else if v == "false" || v == "0" || v == "no" {
			f := false
			*target = &f
		}
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
