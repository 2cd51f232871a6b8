package schedule

// Unit conversion into the solver's internal system (SI: Pa, m³/s, m).
// Externally supplied values use field units common in configuration files:
// pressure in bar, volumetric rate in m³/day, length in metres.
//
// Conversion happens exactly once, when control blocks are assembled. Nothing
// downstream of the schedule artifact re-derives units.

const (
	// SecondsPerDay converts day-based rates into per-second rates.
	SecondsPerDay = 86400.0

	// PascalsPerBar converts bar to Pa.
	PascalsPerBar = 1.0e5
)

// BarToPascal converts a pressure in bar to pascals.
func BarToPascal(bar float64) float64 {
	return bar * PascalsPerBar
}

// RatePerDayToPerSecond converts a volumetric rate in m³/day to m³/s.
func RatePerDayToPerSecond(rate float64) float64 {
	return rate / SecondsPerDay
}

// toInternalTarget converts a configured control target into internal units
// for the given control mode.
func toInternalTarget(mode ControlMode, target float64) float64 {
	switch mode {
	case ControlModeBHP:
		return BarToPascal(target)
	case ControlModeRate:
		return RatePerDayToPerSecond(target)
	default:
		return target
	}
}
