package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caprock-sim/caprock/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a run's artifact events in real time",
	Long: `Follow the run's artifact event channel, printing a line each time a
stage persists an artifact. Useful in a second terminal while driving the
pipeline stage by stage.

Examples:
  # Watch the configured run
  caprock watch

  # Watch a different run
  caprock watch --run field-b`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := watch.Stream(ctx, store, os.Stdout); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
