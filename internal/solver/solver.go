// Package solver defines the boundary to the external numerical simulation
// engine. The core hands the engine a bundle of artifacts (grid, rock, fluid,
// schedule) and receives back per-timestep state snapshots and well results;
// everything beyond the fields the pipeline itself reads is treated as opaque.
package solver

import (
	"context"
	"encoding/json"
	"fmt"
)

// Bundle is the complete input handed to the engine. The fields are the raw
// JSON payloads of the corresponding artifacts; the core never interprets
// them on the engine's behalf.
type Bundle struct {
	Grid     json.RawMessage `json:"grid"`
	Rock     json.RawMessage `json:"rock"`
	Fluid    json.RawMessage `json:"fluid"`
	Schedule json.RawMessage `json:"schedule"`
}

// Snapshot is the engine's state at the end of one timestep. Field arrays are
// ordered [layer][row][column].
type Snapshot struct {
	Day        float64       `json:"day"`
	Pressure   [][][]float64 `json:"pressure"`
	Saturation [][][]float64 `json:"saturation"`
}

// WellRecord is one well's operating result for one timestep.
type WellRecord struct {
	WellID string  `json:"well_id"`
	Day    float64 `json:"day"`
	Rate   float64 `json:"rate"` // m³/s, signed: production negative, injection positive
	BHP    float64 `json:"bhp"`  // Pa
}

// Results is everything the engine returns for a run.
type Results struct {
	Snapshots []Snapshot   `json:"snapshots"`
	WellOps   []WellRecord `json:"well_ops"`
}

// Validate checks the results are structurally usable by downstream stages.
func (r *Results) Validate() error {
	if len(r.Snapshots) == 0 {
		return fmt.Errorf("solver returned no snapshots")
	}
	for i := 1; i < len(r.Snapshots); i++ {
		if r.Snapshots[i].Day <= r.Snapshots[i-1].Day {
			return fmt.Errorf("solver snapshots are not ordered by day (index %d)", i)
		}
	}
	return nil
}

// Solver runs the external engine against a bundle. Implementations block
// until the engine completes; the dominant cost of the pipeline lives behind
// this call.
type Solver interface {
	Run(ctx context.Context, bundle *Bundle) (*Results, error)
}

// ExecutionError is an opaque pass-through of an engine failure. The pipeline
// never interprets engine errors beyond surfacing them.
type ExecutionError struct {
	ExitCode int
	Stderr   string
	Reason   string
}

func (e *ExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("solver execution failed (exit code %d): %s: %s", e.ExitCode, e.Reason, e.Stderr)
	}
	return fmt.Sprintf("solver execution failed (exit code %d): %s", e.ExitCode, e.Reason)
}
