package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/caprock-sim/caprock/internal/contract"
	"github.com/caprock-sim/caprock/internal/schedule"
	"github.com/caprock-sim/caprock/internal/solver"
	"github.com/caprock-sim/caprock/internal/stage"
	"github.com/caprock-sim/caprock/pkg/runstore"
)

// ExportInitialPayload is the initial-conditions dataset.
type ExportInitialPayload struct {
	PressurePa      float64 `json:"pressure_pa"`
	WaterSaturation float64 `json:"water_saturation"`
	DatumDepthM     float64 `json:"datum_depth_m"`
}

// ExportStaticPayload is the static (unchanging) properties dataset.
type ExportStaticPayload struct {
	NX        int              `json:"nx"`
	NY        int              `json:"ny"`
	NZ        int              `json:"nz"`
	CellDimsM [3]float64       `json:"cell_dims_m"`
	Layers    []RockLayerProps `json:"layers"`
}

// ExportFieldsPayload is the dynamic field dataset, ordered
// [time, layer, row, column].
type ExportFieldsPayload struct {
	Days       []float64       `json:"days"`
	Pressure   [][][][]float64 `json:"pressure"`
	Saturation [][][][]float64 `json:"saturation"`
}

// ExportWellOpsPayload is the per-timestep well-operational series dataset.
type ExportWellOpsPayload struct {
	Series []solver.WellRecord `json:"series"`
}

// ExportTimeIndexPayload is the temporal index: cumulative day count per step.
type ExportTimeIndexPayload struct {
	CumulativeDays []float64 `json:"cumulative_days"`
}

// ExportMetaPayload is the run metadata dataset.
type ExportMetaPayload struct {
	Run          string  `json:"run"`
	HorizonDays  float64 `json:"horizon_days"`
	NumSteps     int     `json:"num_steps"`
	NumSnapshots int     `json:"num_snapshots"`
	NumWells     int     `json:"num_wells"`
	ExportedAtMs int64   `json:"exported_at_ms"`
}

// Export writes one artifact per dataset category so downstream consumers
// load only what they need. Categories are independent: a category that fails
// to build is reported as a warning and the remaining categories still export.
type Export struct{}

func (Export) ID() string      { return "export" }
func (Export) Bootstrap() bool { return false }

func (Export) Requires() []contract.Spec {
	return []contract.Spec{
		{Name: ArtifactGrid, RequiredFields: []string{"nx", "ny", "nz"}},
		{Name: ArtifactRock, RequiredFields: []string{"layers"}},
		{Name: ArtifactFluid, RequiredFields: []string{"initial_pressure_pa"}},
		{Name: ArtifactSchedule, RequiredFields: []string{"steps", "horizon_days"}},
		{Name: ArtifactStates, RequiredFields: []string{"snapshots"}},
		{Name: ArtifactWellOps, RequiredFields: []string{"series"}},
	}
}

func (Export) Execute(ctx context.Context, env *stage.Env) ([]*runstore.Artifact, error) {
	in, err := loadExportInputs(ctx, env)
	if err != nil {
		return nil, err
	}

	type category struct {
		name    string
		group   runstore.Group
		sources []string
		build   func() (interface{}, error)
	}

	categories := []category{
		{ArtifactExportInitial, runstore.GroupInitial, []string{ArtifactFluid, ArtifactGrid}, in.buildInitial},
		{ArtifactExportStatic, runstore.GroupStatic, []string{ArtifactGrid, ArtifactRock}, in.buildStatic},
		{ArtifactExportFields, runstore.GroupDynamic, []string{ArtifactStates}, in.buildFields},
		{ArtifactExportWellOps, runstore.GroupWells, []string{ArtifactWellOps}, in.buildWellOps},
		{ArtifactExportTimeIndex, runstore.GroupTemporal, []string{ArtifactSchedule}, in.buildTimeIndex},
		{ArtifactExportMeta, runstore.GroupMeta, []string{ArtifactRunMeta, ArtifactSchedule, ArtifactStates}, in.buildMeta},
	}

	var artifacts []*runstore.Artifact
	for _, c := range categories {
		payload, err := c.build()
		if err != nil {
			log.Printf("[WARN] Export category %s failed, continuing with remaining categories: %v", c.name, err)
			continue
		}

		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("[WARN] Export category %s failed to encode, continuing: %v", c.name, err)
			continue
		}

		artifacts = append(artifacts, &runstore.Artifact{
			Name:    c.name,
			Group:   c.group,
			Payload: string(data),
			Sources: c.sources,
		})
	}

	if len(artifacts) == 0 {
		return nil, fmt.Errorf("every export category failed")
	}

	return artifacts, nil
}

// exportInputs holds the decoded upstream artifacts the categories draw from.
type exportInputs struct {
	run      string
	grid     GridPayload
	rock     RockPayload
	fluid    FluidPayload
	schedule schedule.Schedule
	states   StatesPayload
	wellOps  WellOpsPayload
}

func loadExportInputs(ctx context.Context, env *stage.Env) (*exportInputs, error) {
	in := &exportInputs{run: env.Store.Run()}

	for name, dst := range map[string]interface{}{
		ArtifactGrid:     &in.grid,
		ArtifactRock:     &in.rock,
		ArtifactFluid:    &in.fluid,
		ArtifactSchedule: &in.schedule,
		ArtifactStates:   &in.states,
		ArtifactWellOps:  &in.wellOps,
	} {
		a, err := env.Store.GetArtifact(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(a.Payload), dst); err != nil {
			return nil, fmt.Errorf("failed to decode artifact %q: %w", name, err)
		}
	}

	return in, nil
}

func (in *exportInputs) buildInitial() (interface{}, error) {
	return ExportInitialPayload{
		PressurePa:      in.fluid.InitialPressure,
		WaterSaturation: in.fluid.InitialWaterSat,
		DatumDepthM:     in.grid.DatumDepthM,
	}, nil
}

func (in *exportInputs) buildStatic() (interface{}, error) {
	return ExportStaticPayload{
		NX:        in.grid.NX,
		NY:        in.grid.NY,
		NZ:        in.grid.NZ,
		CellDimsM: [3]float64{in.grid.DX, in.grid.DY, in.grid.DZ},
		Layers:    in.rock.Layers,
	}, nil
}

func (in *exportInputs) buildFields() (interface{}, error) {
	snaps := in.states.Snapshots
	if len(snaps) == 0 {
		return nil, fmt.Errorf("states artifact holds no snapshots")
	}

	out := ExportFieldsPayload{
		Days:       make([]float64, len(snaps)),
		Pressure:   make([][][][]float64, len(snaps)),
		Saturation: make([][][][]float64, len(snaps)),
	}
	for t, s := range snaps {
		out.Days[t] = s.Day
		out.Pressure[t] = s.Pressure
		out.Saturation[t] = s.Saturation
	}

	return out, nil
}

func (in *exportInputs) buildWellOps() (interface{}, error) {
	if len(in.wellOps.Series) == 0 {
		return nil, fmt.Errorf("well-operational series is empty")
	}
	return ExportWellOpsPayload{Series: in.wellOps.Series}, nil
}

func (in *exportInputs) buildTimeIndex() (interface{}, error) {
	if len(in.schedule.Steps) == 0 {
		return nil, fmt.Errorf("schedule holds no steps")
	}

	cumulative := make([]float64, len(in.schedule.Steps))
	day := 0.0
	for i, s := range in.schedule.Steps {
		day += s.Duration
		cumulative[i] = day
	}

	return ExportTimeIndexPayload{CumulativeDays: cumulative}, nil
}

func (in *exportInputs) buildMeta() (interface{}, error) {
	return ExportMetaPayload{
		Run:          in.run,
		HorizonDays:  in.schedule.HorizonDays,
		NumSteps:     len(in.schedule.Steps),
		NumSnapshots: len(in.states.Snapshots),
		NumWells:     len(in.schedule.Wells),
		ExportedAtMs: time.Now().UnixMilli(),
	}, nil
}
