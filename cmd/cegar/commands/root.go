package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cegar",
	Short: "cegar - Counterexample guided abstraction refinement",
	Long: `cegar checks whether the error states of a model are reachable.

Models are YAML files describing either a symbolic transition system
(kind: sts) or a control flow automaton (kind: cfa).

Commands:
  check       Verify a model or every model in a directory
  doctor      Run health checks
  init        Create a configuration interactively
  version     Print version information

Use "cegar [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(newCheckCmd())
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(versionCmd)
}
