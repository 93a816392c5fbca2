package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/hooks"
	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/runner"
	"github.com/spf13/cobra"
)

var runFlags struct {
	environments []string
	targets      []string
}

// newRunner builds the PlatformIO runner. Tests replace it.
var newRunner = func(opts ...runner.Option) pioRunner {
	return runner.New(opts...)
}

type pioRunner interface {
	Run(ctx context.Context, args []string) error
}

var runCmd = &cobra.Command{
	Use:   "run [flags] [-- pio-args...]",
	Short: "Run hooks around a PlatformIO build",
	Long: `Runs the pre hooks for the build and each target, then 'pio run', then the
post hooks. Arguments after -- are passed to pio unchanged.

  fwhook run                       bundle assets, then build
  fwhook run -e esp32 -t upload    bundle, stamp, then build and upload

The pio binary is taken from pio.binary (or FWHOOK_PIO), then PATH, then
~/.platformio/penv/bin. Hooks called by the extra_scripts shim during this
build are skipped.`,
	Annotations: map[string]string{buildLogAnnotation: ""},
	RunE:        runRun,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runFlags.environments, "environment", "e", nil,
		"PlatformIO environment (repeatable)")
	runCmd.Flags().StringSliceVarP(&runFlags.targets, "target", "t", nil,
		"PlatformIO target (repeatable, e.g. upload, uploadfs)")

	rootCmd.AddCommand(runCmd)
}

// runActions lists the host actions a pio run with targets goes through.
// Every run builds.
func runActions(targets []string) []string {
	actions := []string{hooks.ActionBuild}
	for _, t := range targets {
		if !slices.Contains(actions, t) {
			actions = append(actions, t)
		}
	}
	return actions
}

func runRun(cmd *cobra.Command, args []string) error {
	env, err := newEnv("run")
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	actions := runActions(runFlags.targets)
	for _, action := range actions {
		if err := hookRegistry.Run(ctx, hooks.PhasePre, action, env); err != nil {
			return err
		}
	}

	r := newRunner(
		runner.WithBinary(env.Config.PIO.Binary),
		runner.WithDir(env.ProjectDir),
		runner.WithEnv(hooksRanEnv+"=1"),
		runner.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	)
	if err := r.Run(ctx, runner.RunArgs(runFlags.environments, runFlags.targets, args...)); err != nil {
		return fmt.Errorf("pio run failed: %w", err)
	}

	for _, action := range actions {
		if err := hookRegistry.Run(ctx, hooks.PhasePost, action, env); err != nil {
			return err
		}
	}
	return nil
}
