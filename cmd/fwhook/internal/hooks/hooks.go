// Package hooks maps host build actions to the work fwhook performs for them.
//
// The host build system (PlatformIO/SCons) calls `fwhook hook <phase> <action>`
// from its pre/post action callbacks. Each call resolves a fresh Env and runs
// the hooks registered for that pair, in registration order.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/albertocavalcante/fwhook/pkg/config"
)

// Phase is when a hook runs relative to the host action.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// ParsePhase validates a phase name.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhasePre, PhasePost:
		return Phase(s), nil
	default:
		return "", fmt.Errorf("unknown hook phase %q (want %q or %q)", s, PhasePre, PhasePost)
	}
}

// Env is the build state handed to every hook.
type Env struct {
	// ProjectDir is the firmware project root. Relative config paths resolve against it.
	ProjectDir string

	// Config is the resolved configuration.
	Config *config.Config

	// Logger receives hook output.
	Logger *slog.Logger

	// Now supplies the wall clock.
	Now func() time.Time

	// Action and Phase identify the host callback being served.
	Action string
	Phase  Phase
}

// Path resolves p against ProjectDir unless it is already absolute.
func (e *Env) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.ProjectDir, p)
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Env) config() *config.Config {
	if e.Config == nil {
		return config.NewConfig()
	}
	return e.Config
}

// Hook is one unit of work bound to a host action.
type Hook func(ctx context.Context, env *Env) error

type binding struct {
	phase  Phase
	action string
}

type namedHook struct {
	name string
	fn   Hook
}

// Registry maps (phase, action) pairs to ordered hook lists.
type Registry struct {
	hooks map[binding][]namedHook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[binding][]namedHook)}
}

// Register appends fn to the hooks run for phase and action.
func (r *Registry) Register(phase Phase, action, name string, fn Hook) {
	b := binding{phase: phase, action: action}
	r.hooks[b] = append(r.hooks[b], namedHook{name: name, fn: fn})
}

// Hooks returns the names of the hooks bound to phase and action, in run order.
func (r *Registry) Hooks(phase Phase, action string) []string {
	bound := r.hooks[binding{phase: phase, action: action}]
	names := make([]string, len(bound))
	for i, h := range bound {
		names[i] = h.name
	}
	return names
}

// Actions returns the sorted action names that have at least one hook.
func (r *Registry) Actions() []string {
	var actions []string
	for b := range r.hooks {
		if !slices.Contains(actions, b.action) {
			actions = append(actions, b.action)
		}
	}
	slices.Sort(actions)
	return actions
}

// Run executes the hooks bound to phase and action. It stops at the first
// failing hook and returns its error wrapped with the hook name. An action
// with no hooks succeeds.
//
// env is copied; its Phase and Action are set for the hooks.
func (r *Registry) Run(ctx context.Context, phase Phase, action string, env *Env) error {
	if env == nil {
		env = &Env{}
	}
	e := *env
	e.Phase = phase
	e.Action = action
	if e.Now == nil {
		e.Now = time.Now
	}
	base := e.logger()

	bound := r.hooks[binding{phase: phase, action: action}]
	if len(bound) == 0 {
		base.Debug("no hooks registered", "phase", phase, "action", action)
		return nil
	}

	for _, h := range bound {
		if err := ctx.Err(); err != nil {
			return err
		}
		he := e
		he.Logger = base.With("hook", h.name)
		he.Logger.Debug("running hook", "phase", phase, "action", action)
		if err := h.fn(ctx, &he); err != nil {
			return fmt.Errorf("hook %s failed: %w", h.name, err)
		}
	}
	return nil
}
