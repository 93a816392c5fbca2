package cli

import (
	"fmt"
	"time"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/hooks"
	"github.com/spf13/cobra"
)

var bundleFlags struct {
	json   bool
	brotli bool
	source string
	output string
}

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Gzip web assets into the filesystem image directory",
	Long: `Compresses every .html, .css and .js file under the asset source (default
templates/) into a mirrored .gz file under the output directory (default data/):

  templates/index.html    -> data/index.html.gz
  templates/js/app.js     -> data/js/app.js.gz

Every asset is rewritten on every run. A missing source directory is logged and
is not an error. Deleted assets leave their .gz behind; 'fwhook status' lists them.`,
	Annotations: map[string]string{buildLogAnnotation: ""},
	RunE:        runBundle,
}

func init() {
	bundleCmd.Flags().BoolVar(&bundleFlags.json, "json", false,
		"Output the compressed file list as JSON")
	bundleCmd.Flags().BoolVar(&bundleFlags.brotli, "brotli", false,
		"Also write a .br copy of every asset")
	bundleCmd.Flags().StringVar(&bundleFlags.source, "source", "",
		"Asset source directory (default from config: templates)")
	bundleCmd.Flags().StringVar(&bundleFlags.output, "output", "",
		"Output directory (default from config: data)")

	rootCmd.AddCommand(bundleCmd)
}

func runBundle(cmd *cobra.Command, _ []string) error {
	env, err := newEnv("bundle")
	if err != nil {
		return err
	}

	cfg := env.Config
	if cmd.Flags().Changed("brotli") {
		cfg.Bundle.Brotli = &bundleFlags.brotli
	}
	if bundleFlags.source != "" {
		cfg.Bundle.Source = bundleFlags.source
	}
	if bundleFlags.output != "" {
		cfg.Bundle.Output = bundleFlags.output
	}

	res, err := hooks.Bundle(cmd.Context(), env)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if bundleFlags.json {
		return outputJSON(out, res)
	}

	if res.SourceMissing {
		fmt.Fprintf(out, "No assets: %s does not exist\n", cfg.Bundle.Source)
		return nil
	}

	var size, gz int64
	for _, f := range res.Files {
		size += f.Size
		gz += f.GzipSize
	}
	fmt.Fprintf(out, "Compressed %d files (%d -> %d bytes) into %s in %s\n",
		len(res.Files), size, gz, cfg.Bundle.Output, res.Duration.Round(time.Millisecond))
	return nil
}
