// Package stages contains the pipeline's stage implementations: bootstrap,
// grid, props, schedule, simulate, and export. Each stage consumes artifacts
// produced by earlier stages and persists its own under fixed names.
package stages

import (
	"fmt"

	"github.com/caprock-sim/caprock/internal/stage"
)

// Artifact names. A name is owned by exactly one stage for the life of a run.
const (
	ArtifactRunMeta  = "run_meta"
	ArtifactGrid     = "grid"
	ArtifactRock     = "rock"
	ArtifactFluid    = "fluid"
	ArtifactSchedule = "schedule"
	ArtifactStates   = "states"
	ArtifactWellOps  = "wellops"

	ArtifactExportInitial   = "export_initial"
	ArtifactExportStatic    = "export_static"
	ArtifactExportFields    = "export_fields"
	ArtifactExportWellOps   = "export_wellops"
	ArtifactExportTimeIndex = "export_time_index"
	ArtifactExportMeta      = "export_meta"
)

// Producers maps every artifact name to the stage that owns it. The contract
// checker uses it to name the stage to run when a dependency is missing.
var Producers = map[string]string{
	ArtifactRunMeta:  "bootstrap",
	ArtifactGrid:     "grid",
	ArtifactRock:     "props",
	ArtifactFluid:    "props",
	ArtifactSchedule: "schedule",
	ArtifactStates:   "simulate",
	ArtifactWellOps:  "simulate",

	ArtifactExportInitial:   "export",
	ArtifactExportStatic:    "export",
	ArtifactExportFields:    "export",
	ArtifactExportWellOps:   "export",
	ArtifactExportTimeIndex: "export",
	ArtifactExportMeta:      "export",
}

// ByID returns the stage implementation for a stage name.
func ByID(id string) (stage.Stage, error) {
	switch id {
	case "bootstrap":
		return &Bootstrap{}, nil
	case "grid":
		return &Grid{}, nil
	case "props":
		return &Props{}, nil
	case "schedule":
		return &Schedule{}, nil
	case "simulate":
		return &Simulate{}, nil
	case "export":
		return &Export{}, nil
	default:
		return nil, fmt.Errorf("unknown stage %q (valid: bootstrap, grid, props, schedule, simulate, export)", id)
	}
}
