package report

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func sampleReport() SensorReport {
	return SensorReport{
		DeviceID:     0x0102030405060708,
		HMDTimeNs:    123456789012345,
		Kind:         KindIMU,
		Gyro:         r3.Vec{X: 1.5, Y: -2.5, Z: 3.25},
		// The wire carries f32, so use values that survive a float32 round trip.
		Accel:        r3.Vec{X: float64(float32(0.1)), Y: float64(float32(0.2)), Z: float64(float32(9.8))},
		Mag:          r3.Vec{X: -10, Y: 20, Z: -30},
		TemperatureC: 36.6,
		IMUID:        7,
		FrameID:      [3]byte{0x01, 0x02, 0x03},
	}
}

func TestReportRoundTrip(t *testing.T) {
	want := sampleReport()
	frame := EncodeFrame(0x28, want)

	f := NewFramer()
	got := f.Append(frame)
	require.Len(t, got, 1)
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFramerResyncAfterGarbagePrefix(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	garbage := make([]byte, 37)
	rng.Read(garbage)
	// Make sure the garbage never accidentally contains a valid magic pair.
	for i := range garbage {
		if garbage[i] == 0x28 || garbage[i] == 0x27 || garbage[i] == 0x36 {
			garbage[i] = 0x01
		}
	}

	want := sampleReport()
	frame := EncodeFrame(0x27, want)
	stream := append(append([]byte{}, garbage...), frame...)

	f := NewFramer()
	got := f.Append(stream)
	require.Len(t, got, 1)
	require.Equal(t, want, got[0])
	require.GreaterOrEqual(t, f.Diagnostics().DroppedBytes, uint64(len(garbage)))
}

func TestFramerChunkingInvariance(t *testing.T) {
	r1 := sampleReport()
	r2 := sampleReport()
	r2.HMDTimeNs++
	r2.Kind = KindMagnetometer

	stream := append(EncodeFrame(0x28, r1), EncodeFrame(0x27, r2)...)

	whole := NewFramer()
	wantReports := whole.Append(stream)
	require.Len(t, wantReports, 2)

	// Split at every possible boundary and confirm identical results.
	for split := 1; split < len(stream); split++ {
		f := NewFramer()
		got := append(f.Append(stream[:split]), f.Append(stream[split:])...)
		require.Equal(t, wantReports, got, "split at %d", split)
	}
}

func TestFramerInvalidHeaderLength(t *testing.T) {
	header := EncodeHeader(0x28, 120)
	f := NewFramer()
	got := f.Append(append(header, make([]byte, bodySize)...))
	require.Empty(t, got)
	require.Equal(t, uint64(1), f.Diagnostics().InvalidReportLength)
}

func TestFramerUnknownReportType(t *testing.T) {
	r := sampleReport()
	body := EncodeBody(r)
	// Overwrite report_kind_wire with an unrecognized value.
	body[0x18], body[0x19], body[0x1a], body[0x1b] = 0x99, 0x00, 0x00, 0x00
	frame := append(EncodeHeader(0x28, bodySize), body...)

	f := NewFramer()
	got := f.Append(frame)
	require.Empty(t, got)
	require.Equal(t, uint64(1), f.Diagnostics().UnknownReportType)
}

func TestFramerBufferBound(t *testing.T) {
	f := NewFramer()
	// Feed a run of non-magic bytes far larger than the buffer bound.
	junk := make([]byte, maxBuffered*2)
	for i := range junk {
		junk[i] = 0x01
	}
	got := f.Append(junk)
	require.Empty(t, got)
	require.GreaterOrEqual(t, f.Diagnostics().DroppedBytes, uint64(maxBuffered))
}
