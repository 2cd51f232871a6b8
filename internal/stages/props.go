package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caprock-sim/caprock/internal/config"
	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/internal/schedule"
	"github.com/caprock-sim/caprock/internal/stage"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

// RockLayerProps is one grid layer's resolved rock properties.
type RockLayerProps struct {
	Layer          int     `json:"layer"` // 0-based, top down
	TopDepthM      float64 `json:"top_depth_m"`
	Porosity       float64 `json:"porosity"`
	PermeabilityMD float64 `json:"permeability_md"`
}

// RockPayload is the rock artifact: one entry per grid layer, assigned from
// the configured depth ranges.
type RockPayload struct {
	Layers []RockLayerProps `json:"layers"`
}

// FluidPayload is the fluid artifact. All values are in solver-internal units
// (Pa, Pa·s); conversion happens here, once.
type FluidPayload struct {
	OilDensity      float64 `json:"oil_density_kgm3"`
	WaterDensity    float64 `json:"water_density_kgm3"`
	OilViscosity    float64 `json:"oil_viscosity_pas"`
	WaterViscosity  float64 `json:"water_viscosity_pas"`
	InitialPressure float64 `json:"initial_pressure_pa"`
	InitialWaterSat float64 `json:"initial_water_saturation"`
}

// pascalSecondsPerCentipoise converts cP to Pa·s.
const pascalSecondsPerCentipoise = 1.0e-3

// Props assigns rock properties to grid layers by depth range and resolves
// the fluid system. Requires the grid artifact.
type Props struct{}

func (Props) ID() string      { return "props" }
func (Props) Bootstrap() bool { return false }

func (Props) Requires() []contract.Spec {
	return []contract.Spec{
		{Name: ArtifactGrid, RequiredFields: []string{"nz", "dz_m", "layer_top_depth_m"}},
	}
}

func (Props) Execute(ctx context.Context, env *stage.Env) ([]*runstore.Artifact, error) {
	gridArtifact, err := env.Store.GetArtifact(ctx, ArtifactGrid)
	if err != nil {
		return nil, err
	}

	var grid GridPayload
	if err := json.Unmarshal([]byte(gridArtifact.Payload), &grid); err != nil {
		return nil, fmt.Errorf("failed to decode grid artifact: %w", err)
	}

	layers := make([]RockLayerProps, grid.NZ)
	for k := 0; k < grid.NZ; k++ {
		top := grid.LayerTopDepthM[k]
		mid := top + grid.DZ/2

		cfgLayer, err := layerForDepth(env.Config.Rock.Layers, mid)
		if err != nil {
			return nil, err
		}

		layers[k] = RockLayerProps{
			Layer:          k,
			TopDepthM:      top,
			Porosity:       cfgLayer.Porosity,
			PermeabilityMD: cfgLayer.PermeabilityMD,
		}
	}

	rockJSON, err := json.Marshal(RockPayload{Layers: layers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rock properties: %w", err)
	}

	f := env.Config.Fluid
	fluidJSON, err := json.Marshal(FluidPayload{
		OilDensity:      f.OilDensity,
		WaterDensity:    f.WaterDensity,
		OilViscosity:    f.OilViscosityCP * pascalSecondsPerCentipoise,
		WaterViscosity:  f.WaterViscosityCP * pascalSecondsPerCentipoise,
		InitialPressure: schedule.BarToPascal(f.InitialPressure),
		InitialWaterSat: f.InitialWaterSat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fluid properties: %w", err)
	}

	return []*runstore.Artifact{
		{
			Name:    ArtifactRock,
			Group:   runstore.GroupStatic,
			Payload: string(rockJSON),
			Sources: []string{ArtifactGrid},
		},
		{
			Name:    ArtifactFluid,
			Group:   runstore.GroupStatic,
			Payload: string(fluidJSON),
		},
	}, nil
}

// layerForDepth finds the configured rock layer covering a depth. No layer
// covering a grid layer's midpoint is a configuration error, not a default.
func layerForDepth(layers []config.RockLayer, depth float64) (*config.RockLayer, error) {
	for i := range layers {
		if depth >= layers[i].FromDepthM && depth < layers[i].ToDepthM {
			return &layers[i], nil
		}
	}
	return nil, fmt.Errorf("no configured rock layer covers depth %.1f m: extend the rock layer depth ranges", depth)
}
