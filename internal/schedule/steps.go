package schedule

import "math"

// Timestep growth and normalization.
//
// A geometric sequence concentrates resolution early in the interval, where
// pressure transients are steepest, then the whole sequence is rescaled so
// the durations sum to the target horizon exactly (within floating-point
// tolerance).

// GrowSteps generates numSteps durations covering totalDuration days.
//
//	dt[0] = totalDuration / numSteps
//	dt[i] = dt[i-1] * growthFactor
//
// followed by a rescale of the whole sequence by totalDuration / sum(dt).
// growthFactor = 1 yields uniform steps; numSteps = 1 yields a single step of
// totalDuration.
func GrowSteps(totalDuration float64, numSteps int, growthFactor float64) ([]float64, error) {
	if totalDuration <= 0 {
		return nil, &InvalidScheduleConfigError{
			Reason: "total duration must be positive",
		}
	}
	if numSteps <= 0 {
		return nil, &InvalidScheduleConfigError{
			Reason: "number of steps must be positive",
		}
	}
	if growthFactor < 1 {
		return nil, &InvalidScheduleConfigError{
			Reason: "growth factor must be >= 1",
		}
	}

	if numSteps == 1 {
		return []float64{totalDuration}, nil
	}

	steps := make([]float64, numSteps)
	steps[0] = totalDuration / float64(numSteps)
	sum := steps[0]
	for i := 1; i < numSteps; i++ {
		steps[i] = steps[i-1] * growthFactor
		sum += steps[i]
	}

	// The geometric sum overflows for extreme growth/step combinations;
	// rescaling by an infinite sum would turn every duration into 0 or NaN.
	if math.IsInf(sum, 1) {
		return nil, &InvalidScheduleConfigError{
			Reason: "growth factor and step count produce unrepresentably large steps",
		}
	}

	scale := totalDuration / sum
	for i := range steps {
		steps[i] *= scale
	}

	return steps, nil
}
