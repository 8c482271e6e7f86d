// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session implements the lifecycle orchestrator: it owns the
// control and stream sessions and the head tracker, sequences
// connect→load-config→activate-bias→stream→fuse→publish, and exposes
// start/stop/zero-view/recalibrate against a single lifecycle state
// machine.
package session

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/relabs-tech/xrone-go/internal/control"
	"github.com/relabs-tech/xrone-go/internal/deviceconfig"
	"github.com/relabs-tech/xrone-go/internal/logging"
	"github.com/relabs-tech/xrone-go/internal/property"
	"github.com/relabs-tech/xrone-go/internal/stream"
	"github.com/relabs-tech/xrone-go/internal/tracker"
	"github.com/relabs-tech/xrone-go/internal/xerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// defaultStartupTimeout bounds how long start() waits for the first
// successfully parsed stream report before failing and tearing down.
const defaultStartupTimeout = 3500 * time.Millisecond

// defaultControlTimeout bounds the get_config round trip.
const defaultControlTimeout = 5 * time.Second

// Lifecycle is the orchestrator's top-level state.
type Lifecycle int

const (
	LifecycleIdle Lifecycle = iota
	LifecycleConnecting
	LifecycleCalibrating
	LifecycleStreaming
	LifecycleError
	LifecycleStopped
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleIdle:
		return "Idle"
	case LifecycleConnecting:
		return "Connecting"
	case LifecycleCalibrating:
		return "Calibrating"
	case LifecycleStreaming:
		return "Streaming"
	case LifecycleError:
		return "Error"
	case LifecycleStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// BiasPhase tracks the factory-calibration config independently of the
// stream lifecycle, since a config load failure and a stream failure
// are reported separately per the spec's "preserve BiasState" rule.
type BiasPhase int

const (
	BiasInactive BiasPhase = iota
	BiasLoadingConfig
	BiasActive
	BiasErrorParse
	BiasErrorSchema
)

func (b BiasPhase) String() string {
	switch b {
	case BiasInactive:
		return "Inactive"
	case BiasLoadingConfig:
		return "LoadingConfig"
	case BiasActive:
		return "Active"
	case BiasErrorParse:
		return "Error(Parse)"
	case BiasErrorSchema:
		return "Error(Schema)"
	default:
		return "Unknown"
	}
}

// State is an immutable snapshot of the orchestrator's observable
// state, safe to hand to callers without further locking.
type State struct {
	Lifecycle         Lifecycle
	Bias              BiasPhase
	FSN               string
	GlassesVersion    int
	CalibrationCount  int
	CalibrationTarget int
	Err               error
}

// EventKind discriminates the shapes of an orchestrator Event.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventTrackingSample
	EventDiagnostics
	EventControlInbound
)

// Event is one published item from the orchestrator, forwarding the
// underlying stream and control events alongside state transitions.
type Event struct {
	Kind     EventKind
	State    State
	Tracking tracker.Result
	Stream   stream.Diagnostics
	Control  control.Event
}

// Config parameterizes an Orchestrator.
type Config struct {
	DialControl func() (net.Conn, error)
	DialStream  func() (net.Conn, error)

	CalibrationTarget int
	Alpha             float64
	OutputScale       tracker.Euler

	StartupTimeout    time.Duration
	ControlTimeout    time.Duration
	StreamReadTimeout time.Duration
	DiagnosticsEvery  int
}

func (c Config) startupTimeout() time.Duration {
	if c.StartupTimeout > 0 {
		return c.StartupTimeout
	}
	return defaultStartupTimeout
}

func (c Config) controlTimeout() time.Duration {
	if c.ControlTimeout > 0 {
		return c.ControlTimeout
	}
	return defaultControlTimeout
}

// Info is returned by Start once the first stream report has arrived.
type Info struct {
	FSN            string
	GlassesVersion int
}

// Orchestrator is the sole owner of the control session, the stream
// session, and the tracker it drives. All mutable subsystem state
// lives behind mu; the stream's tracker itself is single-threaded,
// mutated only by the stream session's own read loop.
type Orchestrator struct {
	cfg Config
	log *logging.Logger

	mu    sync.Mutex
	state State

	ctl  *control.Session
	strm *stream.Session

	events   chan Event
	pumpDone chan struct{}
}

// New returns an Orchestrator in Idle state.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		log:    logging.New("session"),
		state:  State{Lifecycle: LifecycleIdle, Bias: BiasInactive},
		events: make(chan Event, 256),
	}
}

// Events returns the channel of published orchestrator events. Sends
// are non-blocking; events are dropped if the channel is full.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// State returns a snapshot of the current lifecycle and bias state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(mutate func(*State)) State {
	o.mu.Lock()
	mutate(&o.state)
	snap := o.state
	o.mu.Unlock()
	o.emit(Event{Kind: EventStateChanged, State: snap})
	return snap
}

func (o *Orchestrator) emit(e Event) {
	select {
	case o.events <- e:
	default:
	}
}

// Start runs the connect→load-config→activate-bias→stream sequence.
// It blocks until the first stream report resolves with connection
// info, the configured startup timeout elapses, or an earlier step
// fails; on any failure it tears down whatever it opened.
func (o *Orchestrator) Start() (Info, error) {
	if cur := o.State().Lifecycle; cur != LifecycleIdle && cur != LifecycleStopped {
		return Info{}, xerr.Newf(xerr.KindInvalidArgument, "start() called while lifecycle is %s", cur)
	}

	o.setState(func(s *State) {
		s.Lifecycle = LifecycleConnecting
		s.Bias = BiasLoadingConfig
		s.Err = nil
	})

	controlConn, err := o.cfg.DialControl()
	if err != nil {
		return Info{}, o.fail(err, BiasErrorParse)
	}
	ctl := control.NewSession(controlConn)

	cfgPayload, err := ctl.SendTransaction(control.MagicGetConfig, property.EncodeGetPropertyRequest(), o.cfg.controlTimeout())
	if err != nil {
		ctl.Close()
		return Info{}, o.fail(err, BiasErrorParse)
	}
	configJSON, err := property.ParseStringResponse(cfgPayload)
	if err != nil {
		ctl.Close()
		return Info{}, o.fail(err, BiasErrorParse)
	}

	devCfg, err := deviceconfig.Parse([]byte(configJSON))
	if err != nil {
		ctl.Close()
		return Info{}, o.fail(err, biasPhaseForParseErr(err))
	}

	o.mu.Lock()
	o.ctl = ctl
	o.mu.Unlock()

	o.setState(func(s *State) {
		s.Bias = BiasActive
		s.FSN = devCfg.FSN
		s.GlassesVersion = devCfg.GlassesVersion
	})

	trk := tracker.New(tracker.Config{
		CalibrationTarget: o.cfg.CalibrationTarget,
		Alpha:             o.cfg.Alpha,
		OutputScale:       o.cfg.OutputScale,
		Bias:              biasConfigFrom(devCfg),
	})

	streamConn, err := o.cfg.DialStream()
	if err != nil {
		o.teardown(err)
		return Info{}, err
	}
	strm := stream.NewSession(streamConn, trk, stream.Config{
		ReadTimeout:      o.cfg.StreamReadTimeout,
		DiagnosticsEvery: o.cfg.DiagnosticsEvery,
	})

	o.mu.Lock()
	o.strm = strm
	o.mu.Unlock()

	o.setState(func(s *State) {
		s.Lifecycle = LifecycleCalibrating
		s.CalibrationCount = 0
		s.CalibrationTarget = o.cfg.CalibrationTarget
	})

	select {
	case <-strm.FirstReport():
	case <-strm.Done():
		err := strm.Err()
		o.teardown(err)
		return Info{}, err
	case <-time.After(o.cfg.startupTimeout()):
		timeoutErr := xerr.Newf(xerr.KindTimeout, "no stream report within startup timeout %s", o.cfg.startupTimeout())
		o.teardown(timeoutErr)
		return Info{}, timeoutErr
	}

	o.pumpDone = make(chan struct{})
	go o.pump(ctl, strm, o.pumpDone)

	o.log.Printf("streaming for FSN %s (glasses version %d)", devCfg.FSN, devCfg.GlassesVersion)
	return Info{FSN: devCfg.FSN, GlassesVersion: devCfg.GlassesVersion}, nil
}

func biasPhaseForParseErr(err error) BiasPhase {
	var xe *xerr.Error
	if errors.As(err, &xe) && xe.Kind == xerr.KindSchemaValidation {
		return BiasErrorSchema
	}
	return BiasErrorParse
}

func (o *Orchestrator) fail(err error, biasPhase BiasPhase) error {
	o.log.Printf("start failed: %v", err)
	o.setState(func(s *State) {
		s.Lifecycle = LifecycleError
		s.Bias = biasPhase
		s.Err = err
	})
	return err
}

// biasConfigFrom converts the parsed device config into the tracker's
// bias model, applying the same axis remap to the factory accel bias
// that the stream session applies to every accel sample, so that
// subtraction in either frame produces equivalent results.
func biasConfigFrom(cfg *deviceconfig.DeviceConfig) tracker.BiasConfig {
	curve := make([]tracker.TempBiasSample, len(cfg.IMU.GyroBiasTempData))
	for i, s := range cfg.IMU.GyroBiasTempData {
		curve[i] = tracker.TempBiasSample{
			TemperatureC: s.TemperatureC,
			Bias:         vec3(s.Bias),
		}
	}
	return tracker.BiasConfig{
		AccelBias:     remapAccel(vec3(cfg.IMU.AccelBias)),
		GyroTempCurve: curve,
	}
}

func vec3(v deviceconfig.Vec3) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// remapAccel applies the tracker-frame axis remap (ax,ay,az) →
// (az,ay,ax), mirroring the stream session's per-sample remap so a
// factory accel bias expressed in the raw frame subtracts correctly
// once samples themselves have been remapped.
func remapAccel(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.Z, Y: v.Y, Z: v.X}
}

// pump forwards stream and control events into the orchestrator's own
// event channel, advancing Calibrating→Streaming on the first tracking
// sample and tearing down on either subsystem's termination.
func (o *Orchestrator) pump(ctl *control.Session, strm *stream.Session, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case evt, ok := <-strm.Events():
			if !ok {
				continue
			}
			o.handleStreamEvent(evt)
		case evt, ok := <-ctl.Events():
			if !ok {
				continue
			}
			o.emit(Event{Kind: EventControlInbound, Control: evt})
		case <-strm.Done():
			o.teardown(strm.Err())
			return
		case <-ctl.Done():
			o.teardown(fmt.Errorf("control session terminated: %w", ctl.Err()))
			return
		}
	}
}

func (o *Orchestrator) handleStreamEvent(evt stream.Event) {
	switch evt.Kind {
	case stream.EventCalibrationProgress:
		o.setState(func(s *State) {
			s.CalibrationCount = evt.Calibration.Count
			s.CalibrationTarget = evt.Calibration.Target
		})
	case stream.EventTrackingSample:
		o.mu.Lock()
		wasCalibrating := o.state.Lifecycle == LifecycleCalibrating
		o.mu.Unlock()
		if wasCalibrating {
			o.setState(func(s *State) { s.Lifecycle = LifecycleStreaming })
		}
		o.emit(Event{Kind: EventTrackingSample, Tracking: evt.Tracking})
	case stream.EventDiagnostics:
		o.emit(Event{Kind: EventDiagnostics, Stream: evt.Diagnostics})
	}
}

// teardown stops whatever subsystems are open and transitions to
// Error, preserving BiasState per the spec's "stream error → Error,
// teardown, preserve BiasState" rule.
func (o *Orchestrator) teardown(cause error) {
	o.log.Printf("tearing down: %v", cause)
	o.mu.Lock()
	ctl, strm := o.ctl, o.strm
	o.ctl, o.strm = nil, nil
	o.mu.Unlock()

	if strm != nil {
		strm.Stop()
	}
	if ctl != nil {
		ctl.Close()
	}

	o.setState(func(s *State) {
		s.Lifecycle = LifecycleError
		s.Err = cause
	})
}

// Stop cancels the stream task, closes the control session, fails all
// pending control transactions, resets BiasState to Inactive, and
// transitions to Stopped. Safe to call when already stopped or idle.
func (o *Orchestrator) Stop() {
	o.log.Println("stopping")
	o.mu.Lock()
	ctl, strm, pumpDone := o.ctl, o.strm, o.pumpDone
	o.ctl, o.strm, o.pumpDone = nil, nil, nil
	o.mu.Unlock()

	if pumpDone != nil {
		close(pumpDone)
	}
	if strm != nil {
		strm.Stop()
	}
	if ctl != nil {
		ctl.Close()
	}

	o.setState(func(s *State) {
		*s = State{Lifecycle: LifecycleStopped, Bias: BiasInactive}
	})
}

// ZeroView recenters the relative-orientation origin. Valid only while
// a stream task is running; the recentering flag is consumed on the
// next sample in the stream loop, so this call returns before it
// takes effect.
func (o *Orchestrator) ZeroView() error {
	o.mu.Lock()
	strm := o.strm
	o.mu.Unlock()
	if strm == nil {
		return xerr.New(xerr.KindInvalidArgument, "zero_view() requires a running stream task")
	}
	strm.RequestZeroView()
	return nil
}

// SendControl issues a one-shot control transaction against the
// currently open control session. It fails with InvalidArgument if no
// control session is open (before Start or after Stop).
func (o *Orchestrator) SendControl(magic control.Magic, body []byte, timeout time.Duration) ([]byte, error) {
	o.mu.Lock()
	ctl := o.ctl
	o.mu.Unlock()
	if ctl == nil {
		return nil, xerr.New(xerr.KindInvalidArgument, "no control session is open")
	}
	return ctl.SendTransaction(magic, body, timeout)
}

// Recalibrate restarts the stillness-calibration phase. Valid only
// while a stream task is running; like ZeroView, it is consumed
// asynchronously on the next sample.
func (o *Orchestrator) Recalibrate() error {
	o.mu.Lock()
	strm := o.strm
	o.mu.Unlock()
	if strm == nil {
		return xerr.New(xerr.KindInvalidArgument, "recalibrate() requires a running stream task")
	}
	strm.RequestRecalibrate()
	o.setState(func(s *State) {
		s.Lifecycle = LifecycleCalibrating
		s.CalibrationCount = 0
	})
	return nil
}
