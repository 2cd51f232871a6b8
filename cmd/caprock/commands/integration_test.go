//go:build integration

package commands

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caprock-sim/caprock/internal/config"
	"github.com/caprock-sim/caprock/internal/solver"
	"github.com/caprock-sim/caprock/internal/stage"
	"github.com/caprock-sim/caprock/internal/stages"
	"github.com/caprock-sim/caprock/internal/testutil"
)

// engineScript is a stand-in engine: it drains the bundle from stdin and
// prints results shaped for the 2x2x1 test grid.
const engineScript = `cat > /dev/null; echo '{
  "snapshots": [
    {"day": 100, "pressure": [[[2.4e7, 2.4e7], [2.4e7, 2.4e7]]], "saturation": [[[0.2, 0.2], [0.2, 0.2]]]},
    {"day": 730, "pressure": [[[2.2e7, 2.2e7], [2.2e7, 2.2e7]]], "saturation": [[[0.3, 0.3], [0.3, 0.3]]]}
  ],
  "well_ops": [
    {"well_id": "P1", "day": 100, "rate": 0.001, "bhp": 2.3e7},
    {"well_id": "P1", "day": 730, "rate": 0.001, "bhp": 2.2e7}
  ]
}'`

func integrationConfig(run string) *config.Config {
	return &config.Config{
		Version: "1.0",
		Run:     run,
		Engine:  config.EngineConfig{Command: []string{"sh", "-c", engineScript}},
		Session: config.SessionConfig{RootPaths: []string{"/tmp/caprock-e2e"}},
		Grid: config.GridConfig{
			NX: 2, NY: 2, NZ: 1,
			DX: 100, DY: 100, DZ: 20,
			DatumDepthM: 2400,
		},
		Rock: config.RockConfig{Layers: []config.RockLayer{
			{FromDepthM: 2400, ToDepthM: 2450, Porosity: 0.2, PermeabilityMD: 100},
		}},
		Fluid: config.FluidConfig{
			OilDensity: 850, WaterDensity: 1000,
			OilViscosityCP: 2, WaterViscosityCP: 0.5,
			InitialPressure: 250, InitialWaterSat: 0.2,
		},
		Wells: []config.WellConfig{
			{ID: "P1", Role: "producer", I: 1, J: 1, Control: "rate", Target: 100, RadiusM: 0.1},
		},
		Phases: []config.PhaseConfig{
			{Name: "primary", StartDay: 0, EndDay: 730, Wells: []string{"P1"}},
		},
		Schedule: config.ScheduleConfig{NumSteps: 10, GrowthFactor: 1.1},
	}
}

func TestPipelineAgainstRealRedis(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	cfg := integrationConfig(env.Run)
	require.NoError(t, cfg.Validate())

	sol, err := solver.NewExecSolver(cfg.Engine.Command, 0)
	require.NoError(t, err)

	runner := stage.NewRunner(cfg, env.Store, stages.Producers, sol)

	for _, id := range []string{"bootstrap", "grid", "props", "schedule", "simulate", "export"} {
		s, err := stages.ByID(id)
		require.NoError(t, err)
		result, err := runner.Run(context.Background(), s)
		require.NoError(t, err, "stage %s", id)
		require.Equal(t, stage.StateDone, result.State)
	}

	fields := env.WaitForArtifact(stages.ArtifactExportFields)
	var payload stages.ExportFieldsPayload
	require.NoError(t, json.Unmarshal([]byte(fields.Payload), &payload))
	require.Len(t, payload.Days, 2)
	assert.Equal(t, []float64{100, 730}, payload.Days)

	records, err := env.Store.Provenance(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 13)
}
