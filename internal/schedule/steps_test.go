package schedule

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumTolerance = 1e-6

func TestGrowSteps(t *testing.T) {
	t.Run("uniform when growth factor is 1", func(t *testing.T) {
		steps, err := GrowSteps(100, 4, 1.0)
		require.NoError(t, err)
		require.Len(t, steps, 4)
		for _, dt := range steps {
			assert.InDelta(t, 25.0, dt, sumTolerance)
		}
	})

	t.Run("single step covers full duration", func(t *testing.T) {
		steps, err := GrowSteps(3650, 1, 1.1)
		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.InDelta(t, 3650.0, steps[0], sumTolerance)
	})

	t.Run("geometric growth concentrates resolution early", func(t *testing.T) {
		steps, err := GrowSteps(3650, 61, 1.1)
		require.NoError(t, err)
		require.Len(t, steps, 61)

		// Closed form for a rescaled geometric series: the first step is
		// total * (1-g) / (1-g^n).
		first := 3650.0 * (1 - 1.1) / (1 - math.Pow(1.1, 61))
		assert.InDelta(t, first, steps[0], sumTolerance)

		assert.Greater(t, steps[60], steps[0])
		for i := 1; i < len(steps); i++ {
			assert.InDelta(t, 1.1, steps[i]/steps[i-1], 1e-9)
		}

		sum := 0.0
		for _, dt := range steps {
			sum += dt
		}
		assert.InDelta(t, 3650.0, sum, sumTolerance)
	})

	t.Run("durations always sum to the horizon", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 200; i++ {
			total := rng.Float64()*10000 + 0.1
			n := rng.Intn(200) + 1
			growth := 1.0 + rng.Float64()*0.5

			steps, err := GrowSteps(total, n, growth)
			require.NoError(t, err)
			require.Len(t, steps, n)

			sum := 0.0
			for _, dt := range steps {
				sum += dt
			}
			assert.InDelta(t, total, sum, sumTolerance, "total=%g n=%d growth=%g", total, n, growth)
		}
	})

	t.Run("rejects invalid configurations", func(t *testing.T) {
		cases := []struct {
			name   string
			total  float64
			steps  int
			growth float64
		}{
			{"zero duration", 0, 10, 1.1},
			{"negative duration", -5, 10, 1.1},
			{"zero steps", 100, 0, 1.1},
			{"negative steps", 100, -3, 1.1},
			{"shrinking factor", 100, 10, 0.9},
			{"overflowing geometric sum", 3650, 5000, 10},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := GrowSteps(tc.total, tc.steps, tc.growth)
				require.Error(t, err)

				var invalid *InvalidScheduleConfigError
				assert.ErrorAs(t, err, &invalid)
			})
		}
	})
}
