// Package detect inspects a PlatformIO project.
//
// A project is a directory holding platformio.ini. The file is read with
// ConfigParser semantics (indented continuation lines, ; and # comments),
// which is how PlatformIO itself reads it.
//
// # Environments
//
// Every [env:NAME] section is a build environment. The bare [env] section
// holds options shared by all environments; an environment's own option
// replaces the shared one rather than extending it.
package detect

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/ini.v1"
)

// ProjectFile marks a PlatformIO project root.
const ProjectFile = "platformio.ini"

const (
	envPrefix     = "env:"
	commonEnv     = "env"
	platformioSec = "platformio"
	extraScripts  = "extra_scripts"
)

// Project is the part of platformio.ini fwhook cares about.
type Project struct {
	// Root is the directory holding platformio.ini.
	Root string

	// Envs lists environment names in sorted order.
	Envs []string

	// DefaultEnvs is [platformio] default_envs.
	DefaultEnvs []string

	// Scripts maps each environment to its effective extra_scripts, with any
	// pre:/post: prefix kept.
	Scripts map[string][]string
}

// IsProject reports whether dir holds platformio.ini.
func IsProject(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ProjectFile))
	return err == nil && !info.IsDir()
}

// Load reads platformio.ini from root.
func Load(root string) (*Project, error) {
	path := filepath.Join(root, ProjectFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s not found in %s", ProjectFile, root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(root, data)
}

// Parse parses platformio.ini content for the project at root.
func Parse(root string, data []byte) (*Project, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
		SkipUnrecognizableLines:    true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFile, err)
	}

	p := &Project{
		Root:    root,
		Scripts: make(map[string][]string),
	}

	var shared []string
	if sec, err := f.GetSection(commonEnv); err == nil && sec.HasKey(extraScripts) {
		shared = SplitList(sec.Key(extraScripts).String())
	}

	for _, sec := range f.Sections() {
		name, ok := strings.CutPrefix(sec.Name(), envPrefix)
		if !ok || name == "" {
			continue
		}
		p.Envs = append(p.Envs, name)
		if sec.HasKey(extraScripts) {
			p.Scripts[name] = SplitList(sec.Key(extraScripts).String())
		} else {
			p.Scripts[name] = shared
		}
	}
	slices.Sort(p.Envs)

	if sec, err := f.GetSection(platformioSec); err == nil && sec.HasKey("default_envs") {
		p.DefaultEnvs = SplitList(sec.Key("default_envs").String())
	}

	return p, nil
}

// SplitList splits a PlatformIO multi-value option on newlines and commas.
func SplitList(value string) []string {
	var out []string
	for _, line := range strings.Split(value, "\n") {
		for _, item := range strings.Split(line, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// scriptPath strips the pre:/post: stage prefix from an extra_scripts entry.
func scriptPath(entry string) string {
	for _, prefix := range []string{"pre:", "post:"} {
		if rest, ok := strings.CutPrefix(entry, prefix); ok {
			return rest
		}
	}
	return entry
}

// HasScript reports whether env runs script (compared by cleaned path,
// ignoring the stage prefix).
func (p *Project) HasScript(env, script string) bool {
	want := filepath.Clean(script)
	for _, entry := range p.Scripts[env] {
		if filepath.Clean(scriptPath(entry)) == want {
			return true
		}
	}
	return false
}

// EnvsMissingScript returns the environments that do not run script.
func (p *Project) EnvsMissingScript(script string) []string {
	var missing []string
	for _, env := range p.Envs {
		if !p.HasScript(env, script) {
			missing = append(missing, env)
		}
	}
	return missing
}
