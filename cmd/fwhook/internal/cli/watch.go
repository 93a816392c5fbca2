package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/bundle"
	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/hooks"
	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/watch"
	"github.com/spf13/cobra"
)

var watchFlags struct {
	debounce int
	verbose  bool
	json     bool
	noColor  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch web assets and re-bundle them on change",
	Long: `Watches the asset source directory and re-runs the bundler whenever an
.html, .css or .js file changes, so data/ stays ready for 'pio run -t uploadfs'.

Example output:

  $ fwhook watch

  fwhook: watching 12 assets in /path/to/project/templates
  fwhook: compressed copies go to data
  fwhook: ready

  [14:32:15] css/style.css changed, bundling...
  [14:32:15] ✓ 12 assets compressed in 8ms

Press Ctrl+C to stop watching.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", 0,
		"Debounce window in milliseconds (default from config: 300)")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show file-level changes")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")
	watchCmd.Flags().BoolVar(&watchFlags.noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	env, err := newEnv("watch")
	if err != nil {
		return err
	}
	cfg := env.Config

	debounce := watchFlags.debounce
	if debounce <= 0 {
		debounce = cfg.Watch.DebounceMS
	}

	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	w, err := watch.New(watch.Config{
		Source:     env.Path(cfg.Bundle.Source),
		Output:     cfg.Bundle.Output,
		Extensions: cfg.Bundle.Extensions,
		Exclude:    cfg.Bundle.Exclude,
		Debounce:   debounce,
		Verbose:    watchFlags.verbose,
		NoColor:    watchFlags.noColor,
		JSON:       watchFlags.json,
		Writer:     cmd.OutOrStdout(),
		Bundle: func(ctx context.Context) (*bundle.Result, error) {
			return hooks.Bundle(ctx, env)
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	return w.Run(ctx)
}
