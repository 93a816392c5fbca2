// Package runner finds and runs the PlatformIO CLI.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrPIONotFound is returned when the PlatformIO CLI cannot be located.
var ErrPIONotFound = errors.New("PlatformIO CLI not found")

// Names the CLI is installed under.
var binaryNames = []string{"pio", "platformio"}

// Runner locates and executes the PlatformIO CLI.
type Runner struct {
	binary   string // explicit path; skips the search
	homeDir  string
	dir      string
	env      []string
	stdout   io.Writer
	stderr   io.Writer
	lookPath func(string) (string, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithBinary pins the CLI path (from FWHOOK_PIO or [pio] binary).
func WithBinary(path string) Option {
	return func(r *Runner) {
		r.binary = path
	}
}

// WithHomeDir overrides the home directory searched for the PlatformIO
// virtualenv. Used primarily for testing.
func WithHomeDir(dir string) Option {
	return func(r *Runner) {
		r.homeDir = dir
	}
}

// WithLookPath replaces the PATH lookup. Used primarily for testing.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Runner) {
		r.lookPath = fn
	}
}

// WithDir sets the working directory of the CLI.
func WithDir(dir string) Option {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithEnv adds KEY=VALUE entries to the CLI's environment.
func WithEnv(kv ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, kv...)
	}
}

// WithOutput redirects the CLI's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindPIO locates the CLI using the following search order:
// 1. Explicit binary (WithBinary)
// 2. PATH lookup of pio, then platformio
// 3. The PlatformIO virtualenv under ~/.platformio/penv
func (r *Runner) FindPIO() (string, error) {
	if r.binary != "" {
		if !fileExists(r.binary) {
			return "", fmt.Errorf("%w: %s does not exist", ErrPIONotFound, r.binary)
		}
		return r.binary, nil
	}

	for _, name := range binaryNames {
		if path, err := r.lookPath(name); err == nil {
			return path, nil
		}
	}

	if path := r.findInPenv(); path != "" {
		return path, nil
	}

	return "", ErrPIONotFound
}

// findInPenv looks inside the virtualenv the PlatformIO installer creates.
func (r *Runner) findInPenv() string {
	home := r.homeDir
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return ""
		}
	}

	binDir, exe := filepath.Join(home, ".platformio", "penv", "bin"), ""
	if runtime.GOOS == "windows" {
		binDir, exe = filepath.Join(home, ".platformio", "penv", "Scripts"), ".exe"
	}

	for _, name := range binaryNames {
		if candidate := filepath.Join(binDir, name+exe); fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// RunArgs builds the argument list for `pio run`.
func RunArgs(envs, targets []string, extra ...string) []string {
	args := []string{"run"}
	for _, e := range envs {
		args = append(args, "-e", e)
	}
	for _, t := range targets {
		args = append(args, "-t", t)
	}
	return append(args, extra...)
}

// Run executes the CLI with args and waits for it. Cancelling ctx kills the
// process.
func (r *Runner) Run(ctx context.Context, args []string) error {
	pio, err := r.FindPIO()
	if err != nil {
		return err
	}

	cmd := r.command(ctx, pio, args)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", filepath.Base(pio), args, err)
	}
	return nil
}

// RunWithOutput executes the CLI and captures its combined output.
func (r *Runner) RunWithOutput(ctx context.Context, args []string) ([]byte, error) {
	pio, err := r.FindPIO()
	if err != nil {
		return nil, err
	}

	return r.command(ctx, pio, args).CombinedOutput()
}

func (r *Runner) command(ctx context.Context, pio string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, pio, args...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	return cmd
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
