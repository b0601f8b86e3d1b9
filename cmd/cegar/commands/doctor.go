package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-cegar/internal/config"
	"github.com/l3aro/go-cegar/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration, solver and precision store",
	Long: `Loads the effective configuration, decides two small queries with the
configured solver and checks that learned precisions can be stored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		result, err := healthcheck.Check(cfg, "", effectiveConfigPath())
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		printHealth(cmd.OutOrStdout(), result)

		if !result.OK() {
			return errors.New("health check failed: one or more components are not ready")
		}
		return nil
	},
}

// effectiveConfigPath returns the config file with the highest priority
// that exists, or "" when only defaults apply.
func effectiveConfigPath() string {
	for _, path := range []string{config.ProjectConfigFilePath(), config.GlobalConfigFilePath()} {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
