// Package schedule assembles the time-phased well-control structure consumed
// by the solver: the well roster across development phases, one control block
// per phase, and the geometric timestep sequence covering the run horizon.
package schedule

import "fmt"

// Role is a well's function in the development plan.
type Role string

const (
	RoleProducer Role = "producer"
	RoleInjector Role = "injector"
)

// ControlMode is how a well's operating target is expressed.
type ControlMode string

const (
	// ControlModeRate targets a volumetric rate (configured in m³/day,
	// converted to m³/s at assembly time).
	ControlModeRate ControlMode = "rate"

	// ControlModeBHP targets a bottom-hole pressure (configured in bar,
	// converted to Pa at assembly time).
	ControlModeBHP ControlMode = "bhp"
)

// Well is a producer or injector with its resolved lifecycle.
// TargetValue is always in solver-internal units (m³/s for rate control,
// Pa for BHP control); conversion happens exactly once, at assembly.
type Well struct {
	ID             string      `json:"id"`
	Role           Role        `json:"role"`
	I              int         `json:"i"` // 1-based column index
	J              int         `json:"j"` // 1-based row index
	ControlMode    ControlMode `json:"control_mode"`
	TargetValue    float64     `json:"target_value"`
	Radius         float64     `json:"radius_m"`
	ActiveFromDay  float64     `json:"active_from_day"`
	ActiveUntilDay *float64    `json:"active_until_day,omitempty"` // nil = active through the horizon
}

// Phase is one contiguous development interval [StartDay, EndDay) with a
// fixed roster of active wells. Phases partition the run horizon exactly.
type Phase struct {
	Name       string   `json:"name"`
	StartDay   float64  `json:"start_day"`
	EndDay     float64  `json:"end_day"`
	WellIDs    []string `json:"well_ids"`
	ControlIdx int      `json:"control_idx"` // Index into Schedule.Controls
}

// WellControl is one well's operating state within a control block.
type WellControl struct {
	WellID      string      `json:"well_id"`
	Role        Role        `json:"role"`
	I           int         `json:"i"`
	J           int         `json:"j"`
	ControlMode ControlMode `json:"control_mode"`
	TargetValue float64     `json:"target_value"` // Solver-internal units
	Radius      float64     `json:"radius_m"`
}

// Control is a snapshot of all active well states, valid for every step in
// one phase. Controls only ever change at phase boundaries.
type Control struct {
	PhaseName string        `json:"phase_name"`
	StartDay  float64       `json:"start_day"`
	EndDay    float64       `json:"end_day"`
	Wells     []WellControl `json:"wells"`
}

// Step is one simulation timestep. ControlID indexes Schedule.Controls and is
// valid for the whole day range the step covers: no step straddles a phase
// boundary.
type Step struct {
	Duration  float64 `json:"duration_days"`
	ControlID int     `json:"control_id"`
}

// Schedule is the complete time-stepped well-control structure handed to the
// solver.
type Schedule struct {
	Wells       []Well    `json:"wells"`
	Phases      []Phase   `json:"phases"`
	Controls    []Control `json:"controls"`
	Steps       []Step    `json:"steps"`
	HorizonDays float64   `json:"horizon_days"`
}

// Validate checks the Role is a known value.
func (r Role) Validate() error {
	switch r {
	case RoleProducer, RoleInjector:
		return nil
	default:
		return fmt.Errorf("unknown well role: %q", r)
	}
}

// Validate checks the ControlMode is a known value.
func (m ControlMode) Validate() error {
	switch m {
	case ControlModeRate, ControlModeBHP:
		return nil
	default:
		return fmt.Errorf("unknown control mode: %q", m)
	}
}
