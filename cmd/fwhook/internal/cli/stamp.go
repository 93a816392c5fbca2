package cli

import (
	"fmt"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/hooks"
	"github.com/albertocavalcante/fwhook/pkg/config"
	"github.com/spf13/cobra"
)

var stampFlags struct {
	json   bool
	strict bool
	path   string
	format string
}

var stampCmd = &cobra.Command{
	Use:   "stamp",
	Short: "Increment the build number and record the build date and time",
	Long: `Reads the previous build number from the generated fragment, increments it and
rewrites the fragment with the new number and the current local date and time:

  // build_number.cpp

  int buildNumber = 42;
  const char* buildDate = "2026-10-19";
  const char* buildTime = "14:03:09";

A missing fragment starts at 1. An unparseable one also resets to 1 unless
--strict (or stamp.strict) is set, in which case the stamp fails and the file is
left untouched.`,
	Annotations: map[string]string{buildLogAnnotation: ""},
	RunE:        runStamp,
}

func init() {
	stampCmd.Flags().BoolVar(&stampFlags.json, "json", false,
		"Output the new record as JSON")
	stampCmd.Flags().BoolVar(&stampFlags.strict, "strict", false,
		"Fail instead of resetting when the previous fragment is corrupt")
	stampCmd.Flags().StringVar(&stampFlags.path, "path", "",
		"Fragment path (default src/build_number.cpp, or version/version.go for --format go)")
	stampCmd.Flags().StringVar(&stampFlags.format, "format", "",
		"Fragment format (cpp, go)")

	rootCmd.AddCommand(stampCmd)
}

// StampOutput is the JSON output format for fwhook stamp.
type StampOutput struct {
	Number int    `json:"number"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Path   string `json:"path"`
}

func runStamp(cmd *cobra.Command, _ []string) error {
	env, err := newEnv("stamp")
	if err != nil {
		return err
	}

	cfg := env.Config
	if cmd.Flags().Changed("strict") {
		cfg.Stamp.Strict = &stampFlags.strict
	}
	cfg.Merge(&config.Config{Stamp: config.StampConfig{
		Path:   stampFlags.path,
		Format: stampFlags.format,
	}})
	if err := cfg.Validate(); err != nil {
		return err
	}

	rec, err := hooks.Stamp(cmd.Context(), env)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if stampFlags.json {
		return outputJSON(out, StampOutput{
			Number: rec.Number,
			Date:   rec.Date,
			Time:   rec.Time,
			Path:   env.Path(cfg.StampPath()),
		})
	}

	fmt.Fprintf(out, "build %d (%s %s) -> %s\n", rec.Number, rec.Date, rec.Time, cfg.StampPath())
	return nil
}
