package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func flatConfig(target int) Config {
	return Config{
		CalibrationTarget: target,
		Alpha:             0.98,
		OutputScale:       Euler{Pitch: 1, Yaw: 1, Roll: 1},
		Bias: BiasConfig{
			AccelBias: r3.Vec{},
			GyroTempCurve: []TempBiasSample{
				{TemperatureC: 20, Bias: r3.Vec{}},
			},
		},
	}
}

func TestCalibrationAccumulatesThenTransitions(t *testing.T) {
	tr := New(flatConfig(3))
	for i := 0; i < 2; i++ {
		res, err := tr.Feed(Sample{Gyro: r3.Vec{X: 1, Y: 1, Z: 1}, TemperatureC: 20})
		require.NoError(t, err)
		require.False(t, res.JustCalibrated)
		require.Nil(t, res.Update)
		require.False(t, tr.Calibrated())
	}
	res, err := tr.Feed(Sample{Gyro: r3.Vec{X: 1, Y: 1, Z: 1}, TemperatureC: 20})
	require.NoError(t, err)
	require.True(t, res.JustCalibrated)
	require.True(t, tr.Calibrated())
}

func TestFirstPostCalibrationSampleRecordsNoEmission(t *testing.T) {
	tr := New(flatConfig(1))
	_, err := tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20})
	require.NoError(t, err)
	require.True(t, tr.Calibrated())

	res, err := tr.Feed(Sample{Gyro: r3.Vec{}, Accel: r3.Vec{Z: 1}, TemperatureC: 20, DeviceTimeNs: 1_000_000_000})
	require.NoError(t, err)
	require.Nil(t, res.Update)
}

func TestNonMonotonicTimestampFailsFast(t *testing.T) {
	tr := New(flatConfig(1))
	_, err := tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 1000})
	require.NoError(t, err)
	_, err = tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 2000})
	require.NoError(t, err)

	_, err = tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 1500})
	require.Error(t, err)
}

func TestGyroOnlyIntegrationWhenAccelTooSmall(t *testing.T) {
	tr := New(flatConfig(1))
	_, err := tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 0})
	require.NoError(t, err)
	// The first post-calibration sample only records the timestamp.
	_, err = tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 0})
	require.NoError(t, err)

	res, err := tr.Feed(Sample{Gyro: r3.Vec{X: 10}, Accel: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 1_000_000_000})
	require.NoError(t, err)
	require.NotNil(t, res.Update)
	require.InDelta(t, 10, res.Update.Absolute.Pitch, 1e-9)
	require.InDelta(t, 1.0, res.Update.DeltaT, 1e-9)
}

func TestAccelBlendWhenStill(t *testing.T) {
	tr := New(flatConfig(1))
	_, err := tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 0})
	require.NoError(t, err)
	// The first post-calibration sample only records the timestamp.
	_, err = tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 0})
	require.NoError(t, err)

	// Gravity pointing straight down the Z axis: accel-derived pitch and
	// roll should both be ~0, blended with a 0 gyro-integrated state.
	res, err := tr.Feed(Sample{Gyro: r3.Vec{}, Accel: r3.Vec{Z: 1}, TemperatureC: 20, DeviceTimeNs: 1_000_000_000})
	require.NoError(t, err)
	require.NotNil(t, res.Update)
	require.InDelta(t, 0, res.Update.Absolute.Pitch, 1e-6)
	require.InDelta(t, 0, res.Update.Absolute.Roll, 1e-6)
}

func TestZeroViewAndRelative(t *testing.T) {
	tr := New(flatConfig(1))
	_, err := tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 0})
	require.NoError(t, err)
	_, err = tr.Feed(Sample{Gyro: r3.Vec{X: 10}, Accel: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 1_000_000_000})
	require.NoError(t, err)

	tr.ZeroView()
	rel := tr.Relative()
	require.InDelta(t, 0, rel.Pitch, 1e-9)

	_, err = tr.Feed(Sample{Gyro: r3.Vec{X: 5}, Accel: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 2_000_000_000})
	require.NoError(t, err)
	rel = tr.Relative()
	require.InDelta(t, 5, rel.Pitch, 1e-9)
}

func TestResetClearsEverything(t *testing.T) {
	tr := New(flatConfig(1))
	_, err := tr.Feed(Sample{Gyro: r3.Vec{}, TemperatureC: 20, DeviceTimeNs: 0})
	require.NoError(t, err)
	require.True(t, tr.Calibrated())

	tr.Reset()
	require.False(t, tr.Calibrated())
	count, _ := tr.CalibrationProgress()
	require.Equal(t, 0, count)
}

func TestGyroBiasInterpolationBelowAboveAndBetween(t *testing.T) {
	cfg := BiasConfig{
		GyroTempCurve: []TempBiasSample{
			{TemperatureC: 10, Bias: r3.Vec{X: 1, Y: 2, Z: 3}},
			{TemperatureC: 30, Bias: r3.Vec{X: 3, Y: 4, Z: 5}},
		},
	}
	require.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, cfg.interpolate(0))
	require.Equal(t, r3.Vec{X: 3, Y: 4, Z: 5}, cfg.interpolate(100))
	require.Equal(t, r3.Vec{X: 2, Y: 3, Z: 4}, cfg.interpolate(20))
}
