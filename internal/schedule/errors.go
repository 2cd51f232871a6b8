package schedule

import "fmt"

// InvalidScheduleConfigError indicates the schedule configuration cannot
// produce a numerically valid control structure (nonpositive duration or step
// count, phases that do not partition the horizon, and so on).
type InvalidScheduleConfigError struct {
	Reason string
}

func (e *InvalidScheduleConfigError) Error() string {
	return fmt.Sprintf("invalid schedule config: %s", e.Reason)
}

// WellOutOfBoundsError indicates a well's grid location falls outside
// [1,nx] x [1,ny]. Locations are never silently clamped.
type WellOutOfBoundsError struct {
	WellID string
	I, J   int
	NX, NY int
}

func (e *WellOutOfBoundsError) Error() string {
	return fmt.Sprintf("well %q location (%d,%d) is outside the grid [1,%d]x[1,%d]: fix the well location in the run config",
		e.WellID, e.I, e.J, e.NX, e.NY)
}

// DuplicateWellLocationError indicates two wells share a grid cell within the
// same phase.
type DuplicateWellLocationError struct {
	PhaseName string
	I, J      int
	WellA     string
	WellB     string
}

func (e *DuplicateWellLocationError) Error() string {
	return fmt.Sprintf("wells %q and %q share grid cell (%d,%d) in phase %q: wells must occupy distinct cells within a phase",
		e.WellA, e.WellB, e.I, e.J, e.PhaseName)
}
