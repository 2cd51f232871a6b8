package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/internal/solver"
	"github.com/caprock-sim/caprock/internal/stage"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

// StatesPayload is the per-timestep state artifact produced by simulate.
type StatesPayload struct {
	Snapshots []solver.Snapshot `json:"snapshots"`
}

// WellOpsPayload is the per-timestep well-operational artifact.
type WellOpsPayload struct {
	Series []solver.WellRecord `json:"series"`
}

// Simulate hands the assembled bundle to the external engine and persists the
// state snapshots and well results it returns. The engine is an opaque
// blocking call; its failures pass through unchanged.
type Simulate struct{}

func (Simulate) ID() string      { return "simulate" }
func (Simulate) Bootstrap() bool { return false }

func (Simulate) Requires() []contract.Spec {
	return []contract.Spec{
		{Name: ArtifactGrid, RequiredFields: []string{"nx", "ny", "nz"}},
		{Name: ArtifactRock, RequiredFields: []string{"layers"}},
		{Name: ArtifactFluid, RequiredFields: []string{"initial_pressure_pa"}},
		{Name: ArtifactSchedule, RequiredFields: []string{"wells", "controls", "steps"}},
	}
}

func (Simulate) Execute(ctx context.Context, env *stage.Env) ([]*runstore.Artifact, error) {
	if env.Solver == nil {
		return nil, fmt.Errorf("no solver configured for the simulate stage")
	}

	bundle := &solver.Bundle{}
	for name, dst := range map[string]*json.RawMessage{
		ArtifactGrid:     &bundle.Grid,
		ArtifactRock:     &bundle.Rock,
		ArtifactFluid:    &bundle.Fluid,
		ArtifactSchedule: &bundle.Schedule,
	} {
		a, err := env.Store.GetArtifact(ctx, name)
		if err != nil {
			return nil, err
		}
		*dst = json.RawMessage(a.Payload)
	}

	results, err := env.Solver.Run(ctx, bundle)
	if err != nil {
		return nil, err
	}

	statesJSON, err := json.Marshal(StatesPayload{Snapshots: results.Snapshots})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state snapshots: %w", err)
	}

	wellOpsJSON, err := json.Marshal(WellOpsPayload{Series: results.WellOps})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal well results: %w", err)
	}

	sources := []string{ArtifactGrid, ArtifactRock, ArtifactFluid, ArtifactSchedule}

	return []*runstore.Artifact{
		{
			Name:    ArtifactStates,
			Group:   runstore.GroupDynamic,
			Payload: string(statesJSON),
			Sources: sources,
		},
		{
			Name:    ArtifactWellOps,
			Group:   runstore.GroupWells,
			Payload: string(wellOpsJSON),
			Sources: sources,
		},
	}, nil
}
