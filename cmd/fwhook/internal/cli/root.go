// Package cli implements the fwhook command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/albertocavalcante/fwhook/internal/log"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity  int
	logFormat  string
	configPath string
	projectDir string
}

// buildLogAnnotation marks commands whose output lands in the host build
// log. They default to info so per-file lines show up there.
const buildLogAnnotation = "fwhook/build-log"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fwhook",
	Short: "Build hooks for PlatformIO firmware projects",
	Long: `fwhook runs the build-time steps of a PlatformIO firmware project:

  stamp   increments the build number in src/build_number.cpp
  bundle  gzips templates/**/*.{html,css,js} into data/ for the filesystem image

The host build calls 'fwhook hook <phase> <action>' from an extra_scripts shim
('fwhook init' writes one). Each step can also be run directly.`,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
	// Default behavior: show help
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fwhook %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", log.VerbosityWarn,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace); hook commands default to 2")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", log.FormatText,
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.configPath, "config", "",
		"Config file (skips the global and project config search)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.projectDir, "project-dir", "C", "",
		"Project root (default: nearest directory with platformio.ini or .git)")
}

// initLogging applies the logging flags once they are parsed.
func initLogging(cmd *cobra.Command, _ []string) error {
	format, err := log.ParseFormat(globalFlags.logFormat)
	if err != nil {
		return err
	}

	v := globalFlags.verbosity
	if _, ok := cmd.Annotations[buildLogAnnotation]; ok && !cmd.Flags().Changed("verbosity") {
		v = log.VerbosityInfo
	}

	log.InitWriter(v, format, cmd.ErrOrStderr())
	return nil
}

// errCheckFailed is returned by --check modes that found problems.
var errCheckFailed = errors.New("check failed")

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
