package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/detect"
	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/runner"
	"github.com/albertocavalcante/fwhook/pkg/config"
)

// ShimFile is the extra_scripts entry 'fwhook init' writes.
const ShimFile = "fwhook_hooks.py"

var initFlags struct {
	check  bool
	dryRun bool
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Set up a PlatformIO project to call fwhook",
	Long: `Sets up a PlatformIO project to run fwhook from its build.

This command will:
1. Read platformio.ini and list its environments
2. Create fwhook.toml with the default settings
3. Create fwhook_hooks.py, an extra_scripts shim that calls
   'fwhook hook pre upload' and 'fwhook hook pre buildprog'

Existing files are never modified. Environments that do not list the shim in
extra_scripts are reported so it can be added by hand.

Use --check to verify configuration without making changes (useful for CI).
Use --dry-run to preview changes without applying them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.check, "check", false,
		"Check if project is properly configured (exit 1 if not)")
	initCmd.Flags().BoolVar(&initFlags.dryRun, "dry-run", false,
		"Show what would change without applying")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	project, err := detect.Load(absPath)
	if err != nil {
		return fmt.Errorf("not a PlatformIO project: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(project.Envs) > 0 {
		fmt.Fprintf(out, "Environments: %s\n", strings.Join(project.Envs, ", "))
	} else {
		fmt.Fprintln(out, "No [env:NAME] sections in platformio.ini")
	}

	configFile := filepath.Join(absPath, config.ConfigFileName)
	shimFile := filepath.Join(absPath, ShimFile)
	missing := project.EnvsMissingScript(ShimFile)

	if initFlags.check {
		return runInitCheck(cmd, project, configFile, shimFile, missing)
	}

	if initFlags.dryRun {
		runInitDryRun(out, configFile, shimFile)
	} else if err := runInitApply(out, configFile, shimFile); err != nil {
		return err
	}

	printScriptHint(out, missing)
	return nil
}

// generateConfigContent renders the defaults as an annotated fwhook.toml.
func generateConfigContent() string {
	d := config.NewConfig()
	return fmt.Sprintf(`# fwhook configuration. Values shown are the defaults.

[stamp]
format = %q        # cpp | go
# path = %q    # %q for format = "go"
# marker = %q           # %q for format = "go"
strict = false        # fail instead of resetting on a corrupt fragment

[bundle]
source = %q
output = %q
extensions = [%s]
exclude = []          # globs relative to source, e.g. "vendor/**"
level = %d
brotli = false

[watch]
debounce_ms = %d
`, d.Stamp.Format,
		d.StampPath(), config.GoStampPath, d.StampMarker(), config.GoStampMarker,
		d.Bundle.Source, d.Bundle.Output, quoteList(d.Bundle.Extensions), d.Bundle.Level,
		d.Watch.DebounceMS)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return strings.Join(quoted, ", ")
}

// generateShimContent returns the extra_scripts shim. SCons treats a
// non-zero return from an action as failure and stops the build.
func generateShimContent() string {
	return `# Generated by 'fwhook init'. Runs fwhook build hooks from PlatformIO.
#
#   [env:NAME]
#   extra_scripts = fwhook_hooks.py
#
# Set FWHOOK_BIN if fwhook is not on PATH.
import os
import subprocess

Import("env")

FWHOOK = os.environ.get("FWHOOK_BIN", "fwhook")
PROJECT_DIR = env.subst("$PROJECT_DIR")


def hook(phase, action):
    def run(source, target, env):
        return subprocess.call([FWHOOK, "-C", PROJECT_DIR, "hook", phase, action])

    return run


env.AddPreAction("buildprog", hook("pre", "buildprog"))
env.AddPreAction("buildfs", hook("pre", "buildfs"))
env.AddPreAction("upload", hook("pre", "upload"))
`
}

func runInitCheck(cmd *cobra.Command, project *detect.Project, configFile, shimFile string, missing []string) error {
	var issues []string

	if !fileExists(shimFile) {
		issues = append(issues, fmt.Sprintf("%s not found at %s", ShimFile, shimFile))
	} else if content, err := os.ReadFile(shimFile); err == nil && !strings.Contains(string(content), "fwhook") {
		issues = append(issues, fmt.Sprintf("%s does not call fwhook", ShimFile))
	}

	for _, env := range missing {
		issues = append(issues, fmt.Sprintf("env:%s does not list %s in extra_scripts", env, ShimFile))
	}

	if fileExists(configFile) {
		cfg, err := config.LoadFile(configFile)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", config.ConfigFileName, err))
		}
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	reportPIO(cmd.Context(), out, project.Root)

	if len(issues) > 0 {
		fmt.Fprintln(errOut, "Project configuration issues:")
		for _, issue := range issues {
			fmt.Fprintf(errOut, "  - %s\n", issue)
		}
		fmt.Fprintln(errOut, "\nRun 'fwhook init' to fix")
		return errCheckFailed
	}

	fmt.Fprintf(out, "Project is properly configured (%d environments)\n", len(project.Envs))
	return nil
}

// reportPIO prints the PlatformIO CLI 'fwhook run' would use. A missing CLI
// is informational; hooks run without it.
func reportPIO(ctx context.Context, out io.Writer, dir string) {
	cfg, err := loadConfig(dir)
	if err != nil {
		cfg = config.NewConfig()
	}
	r := runner.New(runner.WithBinary(cfg.PIO.Binary))

	pio, err := r.FindPIO()
	if err != nil {
		fmt.Fprintf(out, "pio: %v\n", err)
		return
	}
	version, err := r.RunWithOutput(ctx, []string{"--version"})
	if err != nil {
		fmt.Fprintf(out, "pio: %s (version check failed: %v)\n", pio, err)
		return
	}
	fmt.Fprintf(out, "pio: %s (%s)\n", pio, strings.TrimSpace(string(version)))
}

func runInitDryRun(out io.Writer, configFile, shimFile string) {
	for _, f := range []struct{ path, content string }{
		{configFile, generateConfigContent()},
		{shimFile, generateShimContent()},
	} {
		if fileExists(f.path) {
			fmt.Fprintf(out, "%s exists (would not modify)\n\n", f.path)
			continue
		}
		fmt.Fprintf(out, "Would create %s:\n", f.path)
		fmt.Fprintln(out, f.content)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runInitApply(out io.Writer, configFile, shimFile string) error {
	for _, f := range []struct{ path, content string }{
		{configFile, generateConfigContent()},
		{shimFile, generateShimContent()},
	} {
		if fileExists(f.path) {
			fmt.Fprintf(out, "%s already exists (skipping)\n", filepath.Base(f.path))
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", filepath.Base(f.path), err)
		}
		fmt.Fprintf(out, "Created %s\n", f.path)
	}
	return nil
}

func printScriptHint(out io.Writer, missing []string) {
	if len(missing) == 0 {
		return
	}
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  Add the shim to these environments in platformio.ini: %s\n", strings.Join(missing, ", "))
	fmt.Fprintf(out, "\n    extra_scripts = %s\n", ShimFile)
}
