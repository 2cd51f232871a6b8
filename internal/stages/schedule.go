package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/internal/schedule"
	"github.com/caprock-sim/caprock/internal/stage"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

// Schedule runs the schedule assembler: well lifecycle across development
// phases, one control block per phase, and the geometric timestep sequence.
// Requires the grid artifact for placement bounds.
type Schedule struct{}

func (Schedule) ID() string      { return "schedule" }
func (Schedule) Bootstrap() bool { return false }

func (Schedule) Requires() []contract.Spec {
	return []contract.Spec{
		{Name: ArtifactGrid, RequiredFields: []string{"nx", "ny"}},
	}
}

func (Schedule) Execute(ctx context.Context, env *stage.Env) ([]*runstore.Artifact, error) {
	gridArtifact, err := env.Store.GetArtifact(ctx, ArtifactGrid)
	if err != nil {
		return nil, err
	}

	var grid GridPayload
	if err := json.Unmarshal([]byte(gridArtifact.Payload), &grid); err != nil {
		return nil, fmt.Errorf("failed to decode grid artifact: %w", err)
	}

	cfg := env.Config

	wells := make([]schedule.WellSpec, len(cfg.Wells))
	for i, w := range cfg.Wells {
		wells[i] = schedule.WellSpec{
			ID:          w.ID,
			Role:        schedule.Role(w.Role),
			I:           w.I,
			J:           w.J,
			ControlMode: schedule.ControlMode(w.Control),
			Target:      w.Target,
			RadiusM:     w.RadiusM,
		}
	}

	phases := make([]schedule.PhaseSpec, len(cfg.Phases))
	for i, p := range cfg.Phases {
		phases[i] = schedule.PhaseSpec{
			Name:     p.Name,
			StartDay: p.StartDay,
			EndDay:   p.EndDay,
			Wells:    p.Wells,
		}
	}

	assembled, err := schedule.Assemble(&schedule.Input{
		NX:     grid.NX,
		NY:     grid.NY,
		Wells:  wells,
		Phases: phases,
		Steps: schedule.StepPolicy{
			NumSteps:     cfg.Schedule.NumSteps,
			GrowthFactor: cfg.Schedule.GrowthFactor,
			Scope:        schedule.StepScope(cfg.Schedule.Scope),
		},
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(assembled)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schedule: %w", err)
	}

	return []*runstore.Artifact{{
		Name:    ArtifactSchedule,
		Group:   runstore.GroupSchedule,
		Payload: string(payload),
		Sources: []string{ArtifactGrid},
	}}, nil
}
