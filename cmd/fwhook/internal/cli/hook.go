package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/albertocavalcante/fwhook/cmd/fwhook/internal/hooks"
	"github.com/albertocavalcante/fwhook/internal/log"
	"github.com/spf13/cobra"
)

// hooksRanEnv is set on the pio child of 'fwhook run'. The extra_scripts shim
// still calls 'fwhook hook' inside that build; the hooks already ran, so those
// calls return immediately.
const hooksRanEnv = "FWHOOK_HOOKS_RAN"

var hookFlags struct {
	list bool
}

// hookRegistry serves 'fwhook hook' and 'fwhook run'. Tests swap it out.
var hookRegistry = hooks.Default()

var hookCmd = &cobra.Command{
	Use:   "hook <pre|post> <action>",
	Short: "Run the hooks bound to a host build action",
	Long: `Runs the hooks registered for a PlatformIO/SCons action. This is what the
extra_scripts shim written by 'fwhook init' calls:

  fwhook hook pre upload     stamps the build number
  fwhook hook pre build      bundles web assets

Actions with no hooks succeed without doing anything. A failing hook exits
non-zero, which aborts the host action. Use --list to show the bindings.`,
	Annotations: map[string]string{buildLogAnnotation: ""},
	Args: func(cmd *cobra.Command, args []string) error {
		if hookFlags.list {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runHook,
}

func init() {
	hookCmd.Flags().BoolVar(&hookFlags.list, "list", false,
		"List registered hooks and exit")

	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	if hookFlags.list {
		return listHooks(cmd)
	}

	phase, err := hooks.ParsePhase(args[0])
	if err != nil {
		return err
	}
	action := args[1]

	if os.Getenv(hooksRanEnv) != "" {
		log.Debug("hooks already ran for this build", "phase", phase, "action", action)
		return nil
	}

	env, err := newEnv("hook")
	if err != nil {
		return err
	}
	return hookRegistry.Run(cmd.Context(), phase, action, env)
}

func listHooks(cmd *cobra.Command) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tACTION\tHOOK")
	for _, action := range hookRegistry.Actions() {
		for _, phase := range []hooks.Phase{hooks.PhasePre, hooks.PhasePost} {
			for _, name := range hookRegistry.Hooks(phase, action) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", phase, action, name)
			}
		}
	}
	return tw.Flush()
}
