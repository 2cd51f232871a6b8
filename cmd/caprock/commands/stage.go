package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/caprock-sim/caprock/internal/config"
	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/internal/printer"
	"github.com/caprock-sim/caprock/internal/solver"
	"github.com/caprock-sim/caprock/internal/stage"
	"github.com/caprock-sim/caprock/internal/stages"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

var (
	configPath  string
	runOverride string
)

// stageDescriptions drive one subcommand per pipeline stage. All of them
// share the same lifecycle; only the transformation differs.
var stageDescriptions = map[string]string{
	"bootstrap": "Initialize the run: create the session and record run metadata",
	"grid":      "Construct the simulation grid from configuration",
	"props":     "Assign rock properties by depth and resolve the fluid system",
	"schedule":  "Assemble well controls, development phases, and timesteps",
	"simulate":  "Run the external simulation engine over the assembled inputs",
	"export":    "Write one artifact per result dataset category",
}

// stageOrder fixes the listing order in help output.
var stageOrder = []string{"bootstrap", "grid", "props", "schedule", "simulate", "export"}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "caprock.yml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&runOverride, "run", "", "Run name (overrides the configured run)")

	for _, id := range stageOrder {
		stageID := id
		rootCmd.AddCommand(&cobra.Command{
			Use:   stageID,
			Short: stageDescriptions[stageID],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStage(cmd.Context(), stageID)
			},
		})
	}
}

// loadConfig reads the configuration file, applying the --run override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{fmt.Sprintf("check %s, or run 'caprock init' to create a starter file", configPath)},
		)
	}
	if runOverride != "" {
		cfg.Run = runOverride
	}
	return cfg, nil
}

// newStore connects the run store client for the configured run.
func newStore(ctx context.Context, cfg *config.Config) (*runstore.Client, error) {
	store, err := runstore.NewClient(&redis.Options{Addr: cfg.RedisAddr()}, cfg.Run)
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, printer.Error(
			"cannot reach the run store",
			fmt.Sprintf("Redis at %s did not respond: %v", cfg.RedisAddr(), err),
			[]string{"start Redis, or point redis.addr in the configuration at a running instance"},
		)
	}

	return store, nil
}

// runStage drives one stage invocation end to end.
func runStage(ctx context.Context, stageID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var sol solver.Solver
	if stageID == "simulate" {
		timeout := time.Duration(cfg.Engine.TimeoutMinutes) * time.Minute
		sol, err = solver.NewExecSolver(cfg.Engine.Command, timeout)
		if err != nil {
			return printer.Error(
				"invalid engine configuration",
				err.Error(),
				[]string{"set engine.command in " + configPath},
			)
		}
	}

	s, err := stages.ByID(stageID)
	if err != nil {
		return err
	}

	printer.Stage("Running stage %s (run: %s)\n", stageID, cfg.Run)

	runner := stage.NewRunner(cfg, store, stages.Producers, sol)
	result, err := runner.Run(ctx, s)
	if err != nil {
		return renderStageFailure(stageID, err)
	}

	printer.Success("Stage %s complete: %s\n", stageID, strings.Join(result.Artifacts, ", "))
	return nil
}

// renderStageFailure maps the pipeline's typed errors onto actionable
// messages; anything unrecognized renders with the bare error text.
func renderStageFailure(stageID string, err error) error {
	title := fmt.Sprintf("stage %s failed", stageID)

	if runstore.IsSessionNotFound(err) {
		return printer.Error(title, err.Error(),
			[]string{"run 'caprock bootstrap' first to initialize the run"})
	}

	var missing *contract.MissingArtifactError
	if errors.As(err, &missing) {
		return printer.Error(title, err.Error(), []string{missing.Remediation})
	}

	var malformed *contract.MalformedArtifactError
	if errors.As(err, &malformed) {
		return printer.Error(title, err.Error(),
			[]string{fmt.Sprintf("re-run the stage that produces %q", malformed.Name)})
	}

	var execErr *solver.ExecutionError
	if errors.As(err, &execErr) {
		explanation := execErr.Reason
		if execErr.Stderr != "" {
			explanation = fmt.Sprintf("%s\n\nEngine stderr:\n%s", execErr.Reason, execErr.Stderr)
		}
		return printer.Error(title, explanation,
			[]string{"check the engine command and its inputs, then re-run 'caprock simulate'"})
	}

	if runstore.IsArtifactConflict(err) {
		return printer.Error(title, err.Error(),
			[]string{"use a fresh run name to start over: caprock bootstrap --run <new-run>"})
	}

	return printer.Error(title, err.Error(), nil)
}
