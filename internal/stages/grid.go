package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/internal/stage"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

// GridPayload is the grid artifact consumed by props, schedule, simulate and
// export. Layer tops run from the datum downward, one entry per layer.
type GridPayload struct {
	NX             int       `json:"nx"`
	NY             int       `json:"ny"`
	NZ             int       `json:"nz"`
	DX             float64   `json:"dx_m"`
	DY             float64   `json:"dy_m"`
	DZ             float64   `json:"dz_m"`
	DatumDepthM    float64   `json:"datum_depth_m"`
	LayerTopDepthM []float64 `json:"layer_top_depth_m"`
	CellCount      int       `json:"cell_count"`
}

// Grid constructs the simulation grid from configuration.
type Grid struct{}

func (Grid) ID() string                { return "grid" }
func (Grid) Bootstrap() bool           { return false }
func (Grid) Requires() []contract.Spec { return nil }

func (Grid) Execute(ctx context.Context, env *stage.Env) ([]*runstore.Artifact, error) {
	g := env.Config.Grid

	tops := make([]float64, g.NZ)
	for k := 0; k < g.NZ; k++ {
		tops[k] = g.DatumDepthM + float64(k)*g.DZ
	}

	payload, err := json.Marshal(GridPayload{
		NX:             g.NX,
		NY:             g.NY,
		NZ:             g.NZ,
		DX:             g.DX,
		DY:             g.DY,
		DZ:             g.DZ,
		DatumDepthM:    g.DatumDepthM,
		LayerTopDepthM: tops,
		CellCount:      g.NX * g.NY * g.NZ,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal grid: %w", err)
	}

	return []*runstore.Artifact{{
		Name:    ArtifactGrid,
		Group:   runstore.GroupStatic,
		Payload: string(payload),
	}}, nil
}
