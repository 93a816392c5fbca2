package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/hooks"
	"github.com/albertocavalcante/fwhook/internal/log"
	"github.com/albertocavalcante/fwhook/pkg/config"
)

// resolveProjectDir returns --project-dir, or the project root above the
// working directory.
func resolveProjectDir() (string, error) {
	if globalFlags.projectDir != "" {
		info, err := os.Stat(globalFlags.projectDir)
		if err != nil {
			return "", fmt.Errorf("invalid project dir: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project dir %s is not a directory", globalFlags.projectDir)
		}
		return config.FindProjectRoot(globalFlags.projectDir), nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return config.FindProjectRoot(wd), nil
}

// loadConfig loads the layered config for dir, or the --config file.
func loadConfig(dir string) (*config.Config, error) {
	var cfg *config.Config
	if globalFlags.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(globalFlags.configPath); err != nil {
			return nil, err
		}
	} else {
		cfg = config.LoadFrom(dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newEnv builds the hook environment for the current project. Flag
// overrides are applied by the caller before the env is used.
func newEnv(component string) (*hooks.Env, error) {
	dir, err := resolveProjectDir()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	logger := log.Component(component)
	logger.Debug("project resolved", "dir", dir, "config", globalFlags.configPath)

	return &hooks.Env{
		ProjectDir: dir,
		Config:     cfg,
		Logger:     logger,
		Now:        time.Now,
	}, nil
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
