package schedule

import (
	"fmt"
	"math"
)

// boundaryEps is the tolerance used when comparing day values against phase
// boundaries. Well below one step's practical resolution (a fraction of a day).
const boundaryEps = 1e-9

// StepScope selects what interval the geometric step sequence spans.
type StepScope string

const (
	// ScopeHorizon generates one geometric sequence across the whole run,
	// then splits steps at phase boundaries so no step straddles a control
	// change.
	ScopeHorizon StepScope = "horizon"

	// ScopePhase generates an independent geometric sequence inside each
	// phase.
	ScopePhase StepScope = "phase"
)

// WellSpec is a well as supplied by configuration, with targets still in
// external units (bar, m³/day).
type WellSpec struct {
	ID          string
	Role        Role
	I, J        int
	ControlMode ControlMode
	Target      float64
	RadiusM     float64
}

// PhaseSpec is a development phase as supplied by configuration.
type PhaseSpec struct {
	Name     string
	StartDay float64
	EndDay   float64
	Wells    []string // Roster of active well IDs
}

// StepPolicy is the timestep generation policy.
type StepPolicy struct {
	NumSteps     int
	GrowthFactor float64
	Scope        StepScope
}

// Input is everything the assembler needs: grid bounds for placement
// validation, well definitions, ordered phase definitions, and the step
// policy.
type Input struct {
	NX, NY int
	Wells  []WellSpec
	Phases []PhaseSpec
	Steps  StepPolicy
}

// Assemble builds the complete schedule: validates well placement and the
// phase partition, resolves each well's lifecycle, builds one control block
// per phase with targets converted to internal units, and generates the
// timestep sequence.
//
// Validation is strictly ordered: placement and partition errors surface
// before any control block is built.
func Assemble(in *Input) (*Schedule, error) {
	if err := validatePhases(in.Phases); err != nil {
		return nil, err
	}
	if err := validateWellPlacement(in); err != nil {
		return nil, err
	}

	wellsByID := make(map[string]WellSpec, len(in.Wells))
	for _, w := range in.Wells {
		if _, dup := wellsByID[w.ID]; dup {
			return nil, &InvalidScheduleConfigError{Reason: fmt.Sprintf("duplicate well ID %q", w.ID)}
		}
		wellsByID[w.ID] = w
	}

	for _, p := range in.Phases {
		for _, id := range p.Wells {
			if _, ok := wellsByID[id]; !ok {
				return nil, &InvalidScheduleConfigError{
					Reason: fmt.Sprintf("phase %q roster names unknown well %q", p.Name, id),
				}
			}
		}
	}

	horizon := in.Phases[len(in.Phases)-1].EndDay

	wells, err := resolveLifecycles(in.Phases, in.Wells)
	if err != nil {
		return nil, err
	}

	phases := make([]Phase, len(in.Phases))
	controls := make([]Control, len(in.Phases))
	for i, p := range in.Phases {
		wellIDs := append([]string(nil), p.Wells...)
		phases[i] = Phase{
			Name:       p.Name,
			StartDay:   p.StartDay,
			EndDay:     p.EndDay,
			WellIDs:    wellIDs,
			ControlIdx: i,
		}

		wcs := make([]WellControl, 0, len(p.Wells))
		for _, id := range p.Wells {
			w := wellsByID[id]
			wcs = append(wcs, WellControl{
				WellID:      w.ID,
				Role:        w.Role,
				I:           w.I,
				J:           w.J,
				ControlMode: w.ControlMode,
				TargetValue: toInternalTarget(w.ControlMode, w.Target),
				Radius:      w.RadiusM,
			})
		}
		controls[i] = Control{
			PhaseName: p.Name,
			StartDay:  p.StartDay,
			EndDay:    p.EndDay,
			Wells:     wcs,
		}
	}

	steps, err := buildSteps(phases, in.Steps, horizon)
	if err != nil {
		return nil, err
	}

	return &Schedule{
		Wells:       wells,
		Phases:      phases,
		Controls:    controls,
		Steps:       steps,
		HorizonDays: horizon,
	}, nil
}

// validatePhases enforces the partition invariant: at least one phase,
// ordered by start day, starting at day 0, each interval non-empty, no gaps
// and no overlaps.
func validatePhases(phases []PhaseSpec) error {
	if len(phases) == 0 {
		return &InvalidScheduleConfigError{Reason: "at least one development phase is required"}
	}

	if math.Abs(phases[0].StartDay) > boundaryEps {
		return &InvalidScheduleConfigError{
			Reason: fmt.Sprintf("first phase %q must start at day 0, starts at %g", phases[0].Name, phases[0].StartDay),
		}
	}

	for i, p := range phases {
		if p.EndDay <= p.StartDay {
			return &InvalidScheduleConfigError{
				Reason: fmt.Sprintf("phase %q interval [%g,%g) is empty or inverted", p.Name, p.StartDay, p.EndDay),
			}
		}
		if i > 0 {
			prev := phases[i-1]
			if math.Abs(p.StartDay-prev.EndDay) > boundaryEps {
				return &InvalidScheduleConfigError{
					Reason: fmt.Sprintf("phase %q starts at day %g but phase %q ends at day %g: phases must partition the horizon with no gaps or overlaps",
						p.Name, p.StartDay, prev.Name, prev.EndDay),
				}
			}
		}
	}

	return nil
}

// validateWellPlacement checks every well against the grid bounds and every
// phase roster for duplicate locations.
func validateWellPlacement(in *Input) error {
	locByID := make(map[string][2]int, len(in.Wells))
	for _, w := range in.Wells {
		if w.I < 1 || w.I > in.NX || w.J < 1 || w.J > in.NY {
			return &WellOutOfBoundsError{WellID: w.ID, I: w.I, J: w.J, NX: in.NX, NY: in.NY}
		}
		locByID[w.ID] = [2]int{w.I, w.J}
	}

	for _, p := range in.Phases {
		occupied := make(map[[2]int]string, len(p.Wells))
		for _, id := range p.Wells {
			loc, ok := locByID[id]
			if !ok {
				continue // unknown roster entries are reported by Assemble
			}
			if other, taken := occupied[loc]; taken {
				return &DuplicateWellLocationError{
					PhaseName: p.Name,
					I:         loc[0],
					J:         loc[1],
					WellA:     other,
					WellB:     id,
				}
			}
			occupied[loc] = id
		}
	}

	return nil
}

// resolveLifecycles derives each well's active interval from the phase
// rosters. A well joins at the start of the first phase naming it and stays
// active until the start of the first later phase that drops it; a well
// present through the final phase has no end day (active through the
// horizon). A roster presence with a hole is a configuration error.
func resolveLifecycles(phases []PhaseSpec, specs []WellSpec) ([]Well, error) {
	type presence struct {
		firstPhase int
		lastPhase  int
		seen       bool
	}

	presences := make(map[string]*presence, len(specs))
	for _, w := range specs {
		presences[w.ID] = &presence{}
	}

	for i, p := range phases {
		for _, id := range p.Wells {
			pr, ok := presences[id]
			if !ok {
				continue
			}
			if !pr.seen {
				pr.firstPhase = i
				pr.seen = true
			} else if i != pr.lastPhase+1 {
				return nil, &InvalidScheduleConfigError{
					Reason: fmt.Sprintf("well %q leaves the roster and rejoins in phase %q: a well's active interval must be contiguous", id, p.Name),
				}
			}
			pr.lastPhase = i
		}
	}

	wells := make([]Well, 0, len(specs))
	for _, w := range specs {
		pr := presences[w.ID]
		if !pr.seen {
			return nil, &InvalidScheduleConfigError{
				Reason: fmt.Sprintf("well %q does not appear in any phase roster", w.ID),
			}
		}

		well := Well{
			ID:            w.ID,
			Role:          w.Role,
			I:             w.I,
			J:             w.J,
			ControlMode:   w.ControlMode,
			TargetValue:   toInternalTarget(w.ControlMode, w.Target),
			Radius:        w.RadiusM,
			ActiveFromDay: phases[pr.firstPhase].StartDay,
		}
		if pr.lastPhase < len(phases)-1 {
			until := phases[pr.lastPhase].EndDay
			well.ActiveUntilDay = &until
		}
		wells = append(wells, well)
	}

	return wells, nil
}

// buildSteps generates the timestep sequence per the policy and binds every
// step to the control block of the phase it falls in.
func buildSteps(phases []Phase, policy StepPolicy, horizon float64) ([]Step, error) {
	scope := policy.Scope
	if scope == "" {
		scope = ScopeHorizon
	}

	switch scope {
	case ScopePhase:
		var steps []Step
		for _, p := range phases {
			durations, err := GrowSteps(p.EndDay-p.StartDay, policy.NumSteps, policy.GrowthFactor)
			if err != nil {
				return nil, err
			}
			for _, d := range durations {
				steps = append(steps, Step{Duration: d, ControlID: p.ControlIdx})
			}
		}
		return steps, nil

	case ScopeHorizon:
		durations, err := GrowSteps(horizon, policy.NumSteps, policy.GrowthFactor)
		if err != nil {
			return nil, err
		}
		return splitAtBoundaries(durations, phases), nil

	default:
		return nil, &InvalidScheduleConfigError{Reason: fmt.Sprintf("unknown step scope %q", scope)}
	}
}

// splitAtBoundaries walks the grown durations across the phase partition,
// splitting any step that would straddle a phase boundary. The total duration
// is preserved; slivers below the boundary tolerance are merged away.
func splitAtBoundaries(durations []float64, phases []Phase) []Step {
	steps := make([]Step, 0, len(durations))
	phaseIdx := 0
	cursor := 0.0

	for _, dt := range durations {
		remaining := dt
		for remaining > boundaryEps {
			phase := phases[phaseIdx]

			// The last phase absorbs whatever is left in one piece: there
			// is no later boundary to split toward, and the rescaled
			// durations can accumulate past the horizon by more than the
			// boundary tolerance.
			if phaseIdx == len(phases)-1 {
				steps = append(steps, Step{Duration: remaining, ControlID: phase.ControlIdx})
				cursor += remaining
				remaining = 0
				break
			}

			room := phase.EndDay - cursor
			if remaining <= room+boundaryEps {
				steps = append(steps, Step{Duration: remaining, ControlID: phase.ControlIdx})
				cursor += remaining
				remaining = 0
			} else {
				steps = append(steps, Step{Duration: room, ControlID: phase.ControlIdx})
				cursor = phase.EndDay
				remaining -= room
			}

			if cursor >= phase.EndDay-boundaryEps {
				phaseIdx++
			}
		}
	}

	return steps
}
