package smoother

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapDegrees(t *testing.T) {
	require.InDelta(t, 0, wrapDegrees(360), 1e-9)
	require.InDelta(t, -179, wrapDegrees(181), 1e-9)
	require.InDelta(t, 179, wrapDegrees(-181), 1e-9)
	require.InDelta(t, 0, wrapDegrees(0), 1e-9)
}

func TestFirstStepPrimesAndPassesThrough(t *testing.T) {
	s := New(Config{MinCutoff: 1, Beta: 0.01, MaxDelta: 1})
	out := s.Step(Sample{Pitch: 10, Yaw: 20, Roll: 30}, 1.0/60)
	require.Equal(t, Sample{Pitch: 10, Yaw: 20, Roll: 30}, out)
}

func TestSmoothsTowardStepChange(t *testing.T) {
	s := New(Config{MinCutoff: 1, Beta: 0.0, MaxDelta: 1})
	s.Prime(Sample{Pitch: 0})
	out := s.Step(Sample{Pitch: 10}, 1.0/60)
	// Heavily low-passed: the output moves toward 10 but does not jump there.
	require.Greater(t, out.Pitch, 0.0)
	require.Less(t, out.Pitch, 10.0)
}

func TestUnwrapsAcrossBoundary(t *testing.T) {
	s := New(Config{MinCutoff: 10, Beta: 0.0, MaxDelta: 1})
	s.Prime(Sample{Yaw: 179})
	out := s.Step(Sample{Yaw: -179}, 1.0/60)
	// The true motion is a small +2 degree step across the wrap boundary,
	// not a near-360-degree jump the other way. The re-wrapped output may
	// land on either side of ±180, so compare on the circle.
	require.InDelta(t, 0, wrapDegrees(out.Yaw-180), 5)
}

func TestInvalidDeltaRePrimes(t *testing.T) {
	s := New(Config{MinCutoff: 1, Beta: 0.01, MaxDelta: 0.5})
	s.Prime(Sample{Pitch: 0})

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1), 0.6} {
		out := s.Step(Sample{Pitch: 42}, dt)
		require.Equal(t, 42.0, out.Pitch, "dt=%v should re-prime and pass through", dt)
	}
}

func TestResetClearsPriming(t *testing.T) {
	s := New(Config{MinCutoff: 1, Beta: 0.01, MaxDelta: 1})
	s.Prime(Sample{Pitch: 5})
	s.Reset()
	out := s.Step(Sample{Pitch: 99}, 1.0/60)
	require.Equal(t, 99.0, out.Pitch)
}

func TestHigherBetaReactsFaster(t *testing.T) {
	lowBeta := New(Config{MinCutoff: 1, Beta: 0.0, MaxDelta: 1})
	highBeta := New(Config{MinCutoff: 1, Beta: 5.0, MaxDelta: 1})
	lowBeta.Prime(Sample{Pitch: 0})
	highBeta.Prime(Sample{Pitch: 0})

	var outLow, outHigh float64
	for i := 0; i < 5; i++ {
		outLow = lowBeta.Step(Sample{Pitch: float64(i+1) * 10}, 1.0/60).Pitch
		outHigh = highBeta.Step(Sample{Pitch: float64(i+1) * 10}, 1.0/60).Pitch
	}
	require.Greater(t, outHigh, outLow)
}
