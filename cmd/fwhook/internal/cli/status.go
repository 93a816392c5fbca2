package cli

import (
	"fmt"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/incremental"
	"github.com/spf13/cobra"
)

var statusFlags struct {
	verbose bool
	json    bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which compressed assets are out of date",
	Long: `Compares the asset source tree against the snapshot taken by the last
'fwhook bundle' (or pre-build hook) and lists the output directories whose .gz
files are stale.

Deleted assets are reported with the orphaned .gz they left behind, since
bundling never removes outputs.

The --verbose flag shows individual file changes (new, modified, deleted).
The --json flag outputs the result as JSON for scripting.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.verbose, "verbose", false,
		"Show individual file changes")
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false,
		"Output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// StatusOutput is the JSON output format for fwhook status.
type StatusOutput struct {
	Stale         bool     `json:"stale"`
	StaleDirs     []string `json:"stale_dirs"`
	Orphans       []string `json:"orphans,omitempty"`
	NewFiles      []string `json:"new_files,omitempty"`
	ModifiedFiles []string `json:"modified_files,omitempty"`
	DeletedFiles  []string `json:"deleted_files,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	env, err := newEnv("status")
	if err != nil {
		return err
	}
	cfg := env.Config
	out := cmd.OutOrStdout()

	tracker := incremental.NewTracker(env.ProjectDir, cfg.Bundle.Source, cfg.Bundle.Extensions, cfg.Bundle.Exclude...)

	if !tracker.HasState() {
		if statusFlags.json {
			return outputJSON(out, StatusOutput{
				Stale:     true,
				StaleDirs: []string{cfg.Bundle.Output},
				Error:     "no snapshot found",
			})
		}
		fmt.Fprintln(out, "No snapshot found. Run 'fwhook bundle' to create one.")
		return nil
	}

	cs, err := tracker.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to detect stale assets: %w", err)
	}

	// Paths are shown relative to the project, the way config spells them
	staleDirs := cs.StaleOutputs(cfg.Bundle.Output)
	orphans := cs.Orphans(cfg.Bundle.Output)

	if statusFlags.json {
		return outputJSON(out, StatusOutput{
			Stale:         !cs.IsEmpty(),
			StaleDirs:     staleDirs,
			Orphans:       orphans,
			NewFiles:      cs.Added,
			ModifiedFiles: cs.Modified,
			DeletedFiles:  cs.Deleted,
		})
	}

	if cs.IsEmpty() {
		fmt.Fprintf(out, "Compressed assets are up to date (%d tracked)\n", tracker.TrackedFileCount())
		return nil
	}

	fmt.Fprintf(out, "Stale output directories (%d):\n", len(staleDirs))
	for _, dir := range staleDirs {
		fmt.Fprintf(out, "  %s\n", dir)
	}

	if len(orphans) > 0 {
		fmt.Fprintf(out, "\nOrphaned outputs (%d):\n", len(orphans))
		for _, f := range orphans {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}

	if statusFlags.verbose {
		if len(cs.Added) > 0 {
			fmt.Fprintf(out, "\nNew files (%d):\n", len(cs.Added))
			for _, f := range cs.Added {
				fmt.Fprintf(out, "  + %s\n", f)
			}
		}

		if len(cs.Modified) > 0 {
			fmt.Fprintf(out, "\nModified files (%d):\n", len(cs.Modified))
			for _, f := range cs.Modified {
				fmt.Fprintf(out, "  ~ %s\n", f)
			}
		}

		if len(cs.Deleted) > 0 {
			fmt.Fprintf(out, "\nDeleted files (%d):\n", len(cs.Deleted))
			for _, f := range cs.Deleted {
				fmt.Fprintf(out, "  - %s\n", f)
			}
		}
	}

	fmt.Fprintln(out, "\nRun 'fwhook bundle' to refresh them")
	return nil
}
