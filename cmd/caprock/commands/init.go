package commands

import (
	"github.com/spf13/cobra"

	"github.com/caprock-sim/caprock/internal/printer"
	"github.com/caprock-sim/caprock/internal/scaffold"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter caprock.yml in the current directory",
	Long: `Create a starter caprock.yml describing a small two-phase waterflood
scenario: a 20x20x4 grid, two producers from day zero, and an injector
joining at day 365.

Edit the file, then drive the pipeline:
  caprock bootstrap
  caprock grid
  caprock props
  caprock schedule
  caprock simulate
  caprock export`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing caprock.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !initForce {
		if err := scaffold.CheckExisting(); err != nil {
			return printer.Error(
				"initialization aborted",
				err.Error(),
				nil,
			)
		}
	}

	if err := scaffold.Initialize(initForce); err != nil {
		return printer.Error("initialization failed", err.Error(), nil)
	}

	printer.Success("Created %s\n", scaffold.ConfigFileName)
	printer.Info("Next: edit the scenario, then run 'caprock bootstrap'\n")
	return nil
}
