package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caprock-sim/caprock/internal/inspect"
	"github.com/caprock-sim/caprock/internal/printer"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

var (
	artifactsOutputFormat string
	artifactsGroup        string
	artifactsStage        string
	artifactsNameGlob     string
	artifactsProvenance   bool
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts [NAME]",
	Short: "Inspect a run's artifacts",
	Long: `Inspect the artifacts a run's stages have persisted.

List Mode (no NAME):
  Displays all artifacts for the run as a table or line-delimited JSON.

Get Mode (with NAME):
  Displays a single artifact as pretty-printed JSON, including its full
  payload and the artifacts it was derived from.

Examples:
  # List all artifacts in table format
  caprock artifacts

  # Only the export datasets
  caprock artifacts --name 'export_*'

  # Stream as JSONL for scripting
  caprock artifacts --output=jsonl | jq -r .name

  # Full detail of the schedule artifact
  caprock artifacts schedule

  # Who wrote what, in order
  caprock artifacts --provenance`,
	Args: cobra.MaximumNArgs(1),
	RunE: runArtifacts,
}

func init() {
	artifactsCmd.Flags().StringVarP(&artifactsOutputFormat, "output", "o", "default", "Output format: default or jsonl (list mode only)")
	artifactsCmd.Flags().StringVar(&artifactsGroup, "group", "", "Filter by artifact group")
	artifactsCmd.Flags().StringVar(&artifactsStage, "stage", "", "Filter by producing stage")
	artifactsCmd.Flags().StringVar(&artifactsNameGlob, "name", "", "Filter by name glob pattern")
	artifactsCmd.Flags().BoolVar(&artifactsProvenance, "provenance", false, "Show the run's provenance log instead")
	rootCmd.AddCommand(artifactsCmd)
}

func runArtifacts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if artifactsProvenance {
		return inspect.Provenance(ctx, store, os.Stdout)
	}

	if len(args) == 1 {
		if err := inspect.GetArtifact(ctx, store, args[0], os.Stdout); err != nil {
			if runstore.IsArtifactMissing(err) {
				return printer.Error(
					"artifact not found",
					fmt.Sprintf("Run '%s' has no artifact named %q.", cfg.Run, args[0]),
					[]string{"list available artifacts:\n  caprock artifacts"},
				)
			}
			return err
		}
		return nil
	}

	var format inspect.OutputFormat
	switch artifactsOutputFormat {
	case "default":
		format = inspect.OutputFormatDefault
	case "jsonl":
		format = inspect.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", artifactsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	filters := &inspect.FilterCriteria{
		NameGlob:      artifactsNameGlob,
		Group:         artifactsGroup,
		ProducerStage: artifactsStage,
	}

	return inspect.ListArtifacts(ctx, store, format, filters, os.Stdout)
}
