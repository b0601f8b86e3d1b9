package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set by main from linker flags.
var (
	Version   = "dev"
	BuildTime = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), versionString())
	},
}

func versionString() string {
	s := fmt.Sprintf("cegar version %s %s/%s\n", Version, runtime.GOOS, runtime.GOARCH)
	if BuildTime != "" {
		s += fmt.Sprintf("built %s\n", BuildTime)
	}
	return s
}
