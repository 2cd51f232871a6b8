package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/internal/stage"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

// RunMetaPayload is the run metadata recorded by the bootstrap stage.
type RunMetaPayload struct {
	Run         string  `json:"run"`
	HorizonDays float64 `json:"horizon_days"`
	NX          int     `json:"nx"`
	NY          int     `json:"ny"`
	NZ          int     `json:"nz"`
	NumWells    int     `json:"num_wells"`
	NumPhases   int     `json:"num_phases"`
}

// Bootstrap is the designated first stage of every run. It creates the
// session record every later stage restores, and writes the run metadata
// artifact.
type Bootstrap struct{}

func (Bootstrap) ID() string                { return "bootstrap" }
func (Bootstrap) Bootstrap() bool           { return true }
func (Bootstrap) Requires() []contract.Spec { return nil }

func (Bootstrap) Execute(ctx context.Context, env *stage.Env) ([]*runstore.Artifact, error) {
	cfg := env.Config

	sess, err := env.Registry.Initialize(ctx, cfg.Session.RootPaths, cfg.Session.Modules)
	if err != nil {
		return nil, err
	}
	env.Session = sess

	meta := RunMetaPayload{
		Run:         env.Store.Run(),
		HorizonDays: cfg.Phases[len(cfg.Phases)-1].EndDay,
		NX:          cfg.Grid.NX,
		NY:          cfg.Grid.NY,
		NZ:          cfg.Grid.NZ,
		NumWells:    len(cfg.Wells),
		NumPhases:   len(cfg.Phases),
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	return []*runstore.Artifact{{
		Name:    ArtifactRunMeta,
		Group:   runstore.GroupMeta,
		Payload: string(payload),
	}}, nil
}
