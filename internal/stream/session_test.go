package stream

import (
	"net"
	"testing"
	"time"

	"github.com/relabs-tech/xrone-go/internal/report"
	"github.com/relabs-tech/xrone-go/internal/tracker"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func flatTracker(target int) *tracker.Tracker {
	return tracker.New(tracker.Config{
		CalibrationTarget: target,
		Alpha:             0.98,
		OutputScale:       tracker.Euler{Pitch: 1, Yaw: 1, Roll: 1},
		Bias: tracker.BiasConfig{
			GyroTempCurve: []tracker.TempBiasSample{{TemperatureC: 20, Bias: r3.Vec{}}},
		},
	})
}

func sampleReport(ts uint64) report.SensorReport {
	return report.SensorReport{
		DeviceID:     1,
		HMDTimeNs:    ts,
		Kind:         report.KindIMU,
		Gyro:         r3.Vec{X: 1, Y: 0, Z: 0},
		Accel:        r3.Vec{X: 0, Y: 0, Z: 1},
		TemperatureC: 20,
	}
}

func TestRemapAccel(t *testing.T) {
	got := remapAccel(r3.Vec{X: 1, Y: 2, Z: 3})
	require.Equal(t, r3.Vec{X: 3, Y: 2, Z: 1}, got)
}

func TestSessionEmitsRawReportAndCalibrationProgress(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	trk := flatTracker(1)
	s := NewSession(client, trk, Config{ReadTimeout: 50 * time.Millisecond, DiagnosticsEvery: 1000})
	defer s.Stop()

	go func() {
		frame := report.EncodeFrame(0x28, sampleReport(1_000_000_000))
		_, _ = server.Write(frame)
	}()

	var gotRaw, gotCalibration bool
	deadline := time.After(2 * time.Second)
	for !(gotRaw && gotCalibration) {
		select {
		case evt := <-s.Events():
			switch evt.Kind {
			case EventRawReport:
				gotRaw = true
				require.Equal(t, report.KindIMU, evt.Raw.Kind)
			case EventCalibrationProgress:
				gotCalibration = true
				require.Equal(t, 1, evt.Calibration.Count)
				require.Equal(t, 1, evt.Calibration.Target)
			}
		case <-deadline:
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestSessionEmitsTrackingSampleAfterCalibration(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	trk := flatTracker(1)
	s := NewSession(client, trk, Config{ReadTimeout: 50 * time.Millisecond, DiagnosticsEvery: 1000})
	defer s.Stop()

	go func() {
		// First report completes calibration (target 1).
		_, _ = server.Write(report.EncodeFrame(0x28, sampleReport(1_000_000_000)))
		time.Sleep(20 * time.Millisecond)
		// Second report is the first post-calibration sample: it only
		// records last_ts and emits no update.
		_, _ = server.Write(report.EncodeFrame(0x27, sampleReport(2_000_000_000)))
		time.Sleep(20 * time.Millisecond)
		// Third report drives an actual complementary-filter update.
		_, _ = server.Write(report.EncodeFrame(0x28, sampleReport(3_000_000_000)))
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-s.Events():
			if evt.Kind == EventTrackingSample {
				require.InDelta(t, 1.0, evt.Tracking.DeltaT, 1e-9)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for tracking sample")
		}
	}
}

func TestSessionTerminatesOnEOF(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	trk := flatTracker(1)
	s := NewSession(client, trk, Config{ReadTimeout: 20 * time.Millisecond})
	server.Close()

	select {
	case <-s.Done():
		require.Error(t, s.Err())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session termination")
	}
}
