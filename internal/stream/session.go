// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package stream drives the sensor-report socket read loop: it feeds
// raw bytes to the report framer, applies the tracker's axis remap,
// advances the head tracker, and publishes raw reports, calibration
// progress, tracking samples, and periodic diagnostics.
package stream

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/xrone-go/internal/report"
	"github.com/relabs-tech/xrone-go/internal/tracker"
	"github.com/relabs-tech/xrone-go/internal/xerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// EventKind discriminates the shapes an Event from a Session can take.
type EventKind int

const (
	EventRawReport EventKind = iota
	EventCalibrationProgress
	EventTrackingSample
	EventDiagnostics
)

// CalibrationProgress reports how many stillness samples have been
// accumulated toward the calibration target.
type CalibrationProgress struct {
	Count  int
	Target int
}

// Diagnostics is a periodic snapshot of framer counters plus observed
// throughput and socket-read timing.
type Diagnostics struct {
	Framer            report.Diagnostics
	ObservedHz        float64
	ReceiveDeltaMinMs float64
	ReceiveDeltaAvgMs float64
	ReceiveDeltaMaxMs float64
}

// Event is one published item from a stream Session.
type Event struct {
	Kind        EventKind
	Raw         report.SensorReport
	Calibration CalibrationProgress
	Tracking    tracker.Result
	Diagnostics Diagnostics
}

// Config parameterizes a Session.
type Config struct {
	// ReadTimeout is the socket read deadline; a timeout with no data
	// is retried silently and does not imply termination.
	ReadTimeout time.Duration
	// DiagnosticsEvery publishes a Diagnostics snapshot every N
	// emitted reports.
	DiagnosticsEvery int
}

// Session owns one stream-socket read loop and the Tracker it drives.
// It is the sole mutator of the Tracker for the session's lifetime.
type Session struct {
	conn   net.Conn
	cfg    Config
	framer *report.Framer
	trk    *tracker.Tracker

	events chan Event
	done   chan struct{}

	termMu  sync.Mutex
	termErr error

	firstReportOnce sync.Once
	firstReportCh   chan struct{}

	zeroViewFlag   atomic.Bool
	recalibrateFlag atomic.Bool
}

// NewSession wraps conn and starts the read loop in a background
// goroutine. The caller owns conn and must not use it directly
// afterwards.
func NewSession(conn net.Conn, trk *tracker.Tracker, cfg Config) *Session {
	if cfg.DiagnosticsEvery <= 0 {
		cfg.DiagnosticsEvery = 100
	}
	s := &Session{
		conn:          conn,
		cfg:           cfg,
		framer:        report.NewFramer(),
		trk:           trk,
		events:        make(chan Event, 256),
		done:          make(chan struct{}),
		firstReportCh: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// Events returns the channel of published stream events. Sends are
// non-blocking; events are dropped if the channel is full.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the stream has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal cause once Done is closed; nil beforehand.
func (s *Session) Err() error {
	s.termMu.Lock()
	defer s.termMu.Unlock()
	return s.termErr
}

// FirstReport is closed once the first report has been successfully
// decoded, letting start() resolve its caller with connection info.
func (s *Session) FirstReport() <-chan struct{} {
	return s.firstReportCh
}

// Stop terminates the read loop and closes the underlying socket.
func (s *Session) Stop() {
	s.terminate(xerr.New(xerr.KindConnectionClosed, "stream stopped locally"))
}

// RequestZeroView enqueues a one-shot recentering flag. It is consumed
// right after the next sample that yields a tracking update has been
// fed to the tracker, so that update is published before the recenter
// and later updates are relative to it. While the tracker is still
// calibrating, the flag stays pending.
func (s *Session) RequestZeroView() {
	s.zeroViewFlag.Store(true)
}

// RequestRecalibrate enqueues a one-shot recalibration flag: the
// tracker is reset to Uncalibrated before the next sample is fed,
// restarting the stillness-calibration phase.
func (s *Session) RequestRecalibrate() {
	s.recalibrateFlag.Store(true)
}

func (s *Session) terminate(cause error) {
	s.termMu.Lock()
	if s.termErr != nil {
		s.termMu.Unlock()
		return
	}
	s.termErr = cause
	s.termMu.Unlock()
	_ = s.conn.Close()
	close(s.done)
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	var window windowStats
	sampleCount := 0

	for {
		if s.cfg.ReadTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
		n, err := s.conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) {
				s.terminate(xerr.New(xerr.KindConnectionClosed, "stream socket reached eof"))
				return
			}
			if errors.Is(err, net.ErrClosed) {
				s.terminate(xerr.Wrap(xerr.KindConnectionClosed, "stream socket closed", err))
				return
			}
			s.terminate(xerr.Wrap(xerr.KindIO, "stream read failed", err))
			return
		}
		window.recordRead(time.Now())

		for _, rep := range s.framer.Append(buf[:n]) {
			s.emit(Event{Kind: EventRawReport, Raw: rep})
			s.firstReportOnce.Do(func() { close(s.firstReportCh) })

			if rep.Kind == report.KindIMU {
				if err := s.driveTracker(rep); err != nil {
					s.terminate(err)
					return
				}
			}

			sampleCount++
			if sampleCount%s.cfg.DiagnosticsEvery == 0 {
				hz, minMs, avgMs, maxMs := window.snapshotAndReset()
				s.emit(Event{Kind: EventDiagnostics, Diagnostics: Diagnostics{
					Framer:            s.framer.Diagnostics(),
					ObservedHz:        hz,
					ReceiveDeltaMinMs: minMs,
					ReceiveDeltaAvgMs: avgMs,
					ReceiveDeltaMaxMs: maxMs,
				}})
			}
		}
	}
}

// remapAccel applies the tracker-frame axis remap (ax,ay,az) → (az,ay,ax).
func remapAccel(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.Z, Y: v.Y, Z: v.X}
}

func (s *Session) driveTracker(rep report.SensorReport) error {
	if s.recalibrateFlag.CompareAndSwap(true, false) {
		s.trk.Reset()
		s.zeroViewFlag.Store(false)
	}

	wasCalibrated := s.trk.Calibrated()

	sample := tracker.Sample{
		Gyro:         rep.Gyro,
		Accel:        remapAccel(rep.Accel),
		TemperatureC: float64(rep.TemperatureC),
		DeviceTimeNs: rep.HMDTimeNs,
	}

	result, err := s.trk.Feed(sample)
	if err != nil {
		return err
	}

	if !wasCalibrated {
		count, target := s.trk.CalibrationProgress()
		if count == 1 || count%10 == 0 || result.JustCalibrated {
			s.emit(Event{Kind: EventCalibrationProgress, Calibration: CalibrationProgress{Count: count, Target: target}})
		}
	}

	if result.Update != nil {
		if s.zeroViewFlag.CompareAndSwap(true, false) {
			s.trk.ZeroView()
		}
		s.emit(Event{Kind: EventTrackingSample, Tracking: *result.Update})
	}
	return nil
}

// windowStats accumulates observed-Hz and receive-delta statistics
// over a diagnostics window, reset after every snapshot.
type windowStats struct {
	count   int
	lastRead time.Time
	windowStart time.Time
	minMs, sumMs, maxMs float64
}

func (w *windowStats) recordRead(now time.Time) {
	if w.windowStart.IsZero() {
		w.windowStart = now
	}
	if !w.lastRead.IsZero() {
		deltaMs := float64(now.Sub(w.lastRead)) / float64(time.Millisecond)
		if w.count == 0 || deltaMs < w.minMs {
			w.minMs = deltaMs
		}
		if deltaMs > w.maxMs {
			w.maxMs = deltaMs
		}
		w.sumMs += deltaMs
		w.count++
	}
	w.lastRead = now
}

func (w *windowStats) snapshotAndReset() (hz, minMs, avgMs, maxMs float64) {
	elapsed := w.lastRead.Sub(w.windowStart).Seconds()
	if elapsed > 0 {
		hz = float64(w.count) / elapsed
	}
	if w.count > 0 {
		avgMs = w.sumMs / float64(w.count)
		minMs = w.minMs
		maxMs = w.maxMs
	}
	*w = windowStats{}
	return hz, minMs, avgMs, maxMs
}
