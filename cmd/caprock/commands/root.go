package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "caprock",
	Short: "Caprock - staged reservoir simulation pipeline",
	Long: `Caprock runs reservoir simulations as a pipeline of independent stages
sharing a Redis-backed run store of immutable, named artifacts.

Each stage (bootstrap, grid, props, schedule, simulate, export) is a separate
process invocation: it restores the run's session, verifies the artifacts it
depends on, performs its transformation, and persists its outputs. Stages can
be re-run and inspected independently, and every artifact records which stage
produced it.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
