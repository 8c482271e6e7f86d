// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package xrone is a client library for XREAL One / One Pro smart
// glasses. It opens two concurrent TCP sessions to a device on a
// link-local network and delivers decoded inertial sensor reports, a
// fused head-orientation estimate, and a synchronous request/response
// control channel for device configuration.
package xrone

import (
	"net"
	"sync"

	"github.com/relabs-tech/xrone-go/internal/session"
	"github.com/relabs-tech/xrone-go/internal/smoother"
	"github.com/relabs-tech/xrone-go/internal/stream"
	"github.com/relabs-tech/xrone-go/internal/tracker"
)

// PoseDataMode selects whether published relative-orientation samples
// are the tracker's raw complementary-filter output or pass through
// the 1-euro smoother first. Absolute orientation is never smoothed.
type PoseDataMode int

const (
	PoseDataRaw PoseDataMode = iota
	PoseDataSmooth
)

// Info is returned by Start once the device config has loaded and the
// first stream report has arrived.
type Info = session.Info

// State mirrors the orchestrator's lifecycle/bias snapshot.
type State = session.State

// Lifecycle re-exports the orchestrator's top-level state values.
type Lifecycle = session.Lifecycle

const (
	LifecycleIdle        = session.LifecycleIdle
	LifecycleConnecting  = session.LifecycleConnecting
	LifecycleCalibrating = session.LifecycleCalibrating
	LifecycleStreaming   = session.LifecycleStreaming
	LifecycleError       = session.LifecycleError
	LifecycleStopped     = session.LifecycleStopped
)

// BiasPhase re-exports the orchestrator's factory-calibration phase.
type BiasPhase = session.BiasPhase

const (
	BiasInactive      = session.BiasInactive
	BiasLoadingConfig = session.BiasLoadingConfig
	BiasActive        = session.BiasActive
	BiasErrorParse    = session.BiasErrorParse
	BiasErrorSchema   = session.BiasErrorSchema
)

// EventKind discriminates the shapes a published Event can take.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventTrackingSample
	EventDiagnostics
	EventControlInbound
)

// TrackingSample is one fused orientation update.
type TrackingSample struct {
	Absolute     Euler
	Relative     Euler // raw or smoothed per the current PoseDataMode
	DeltaT       float64
	DeviceTimeNs uint64
}

// Euler is a pitch/yaw/roll orientation in degrees.
type Euler struct {
	Pitch, Yaw, Roll float64
}

func fromTrackerEuler(e tracker.Euler) Euler {
	return Euler{Pitch: e.Pitch, Yaw: e.Yaw, Roll: e.Roll}
}

// Diagnostics is a periodic snapshot of framer counters plus observed
// throughput and socket-read timing.
type Diagnostics = stream.Diagnostics

// Event is one published item from a Client.
type Event struct {
	Kind     EventKind
	State    State
	Tracking TrackingSample
	Stream   Diagnostics   // populated for EventDiagnostics
	Control  session.Event // populated for EventControlInbound
}

// Client is a connected or connectable handle to one pair of glasses.
// The zero value is not usable; construct with Dial.
type Client struct {
	opts options
	orc  *session.Orchestrator

	mu           sync.Mutex
	poseDataMode PoseDataMode
	smoother     *smoother.Smoother

	events   chan Event
	pumpStop chan struct{}
}

// Dial constructs a Client against the given options without opening
// any network connection; connections are opened lazily by Start.
func Dial(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		opts:     o,
		smoother: smoother.New(o.smootherCfg),
		events:   make(chan Event, 256),
	}

	c.orc = session.New(session.Config{
		DialControl: func() (net.Conn, error) { return dial(o.host, o.controlPort, o.dialTimeout) },
		DialStream:  func() (net.Conn, error) { return dial(o.host, o.streamPort, o.dialTimeout) },

		CalibrationTarget: o.calibrationTarget,
		Alpha:             o.alpha,
		OutputScale:       o.outputScale,

		StartupTimeout:    o.startupTimeout,
		ControlTimeout:    o.controlTimeout,
		StreamReadTimeout: o.streamReadTimeout,
		DiagnosticsEvery:  o.diagnosticsEvery,
	})

	return c, nil
}

// Events returns the channel of published client events. Sends are
// non-blocking; events are dropped if the channel is full.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns a snapshot of the current lifecycle and bias state.
func (c *Client) State() State {
	return c.orc.State()
}

// Start opens the control session, fetches and validates device
// config, activates factory bias correction, and opens the stream
// session, blocking until the first report arrives or the configured
// startup timeout elapses.
func (c *Client) Start() (Info, error) {
	info, err := c.orc.Start()
	if err != nil {
		return Info{}, err
	}

	c.mu.Lock()
	c.smoother.Reset()
	c.mu.Unlock()

	c.pumpStop = make(chan struct{})
	go c.pump(c.pumpStop)

	return info, nil
}

// Stop tears down both sessions and resets lifecycle to Stopped. Safe
// to call when already stopped or never started.
func (c *Client) Stop() {
	if c.pumpStop != nil {
		close(c.pumpStop)
		c.pumpStop = nil
	}
	c.orc.Stop()
}

// ZeroView recenters the relative-orientation origin.
func (c *Client) ZeroView() error {
	c.mu.Lock()
	c.smoother.Reset()
	c.mu.Unlock()
	return c.orc.ZeroView()
}

// Recalibrate restarts the stillness-calibration phase.
func (c *Client) Recalibrate() error {
	c.mu.Lock()
	c.smoother.Reset()
	c.mu.Unlock()
	return c.orc.Recalibrate()
}

// SetPoseDataMode selects whether published relative orientation is
// raw or smoothed. Switching modes resets the smoother so a stale
// low-pass history never leaks into freshly enabled smoothing.
func (c *Client) SetPoseDataMode(mode PoseDataMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.poseDataMode != mode {
		c.smoother.Reset()
	}
	c.poseDataMode = mode
}

func (c *Client) pump(stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case evt := <-c.orc.Events():
			c.handleOrchestratorEvent(evt)
		}
	}
}

func (c *Client) handleOrchestratorEvent(evt session.Event) {
	switch evt.Kind {
	case session.EventStateChanged:
		c.emit(Event{Kind: EventStateChanged, State: evt.State})
	case session.EventTrackingSample:
		c.emit(Event{Kind: EventTrackingSample, Tracking: c.buildTrackingSample(evt.Tracking)})
	case session.EventDiagnostics:
		c.emit(Event{Kind: EventDiagnostics, Stream: evt.Stream})
	case session.EventControlInbound:
		c.emit(Event{Kind: EventControlInbound, Control: evt})
	}
}

// buildTrackingSample converts a tracker.Result into a client-facing
// TrackingSample, smoothing the relative orientation when pose data
// mode is PoseDataSmooth. Absolute orientation is never smoothed.
func (c *Client) buildTrackingSample(r tracker.Result) TrackingSample {
	c.mu.Lock()
	defer c.mu.Unlock()

	relative := fromTrackerEuler(r.Relative)
	if c.poseDataMode == PoseDataSmooth {
		smoothed := c.smoother.Step(smoother.Sample{
			Pitch: relative.Pitch, Yaw: relative.Yaw, Roll: relative.Roll,
		}, r.DeltaT)
		relative = Euler{Pitch: smoothed.Pitch, Yaw: smoothed.Yaw, Roll: smoothed.Roll}
	}

	return TrackingSample{
		Absolute:     fromTrackerEuler(r.Absolute),
		Relative:     relative,
		DeltaT:       r.DeltaT,
		DeviceTimeNs: r.DeviceTimeNs,
	}
}

func (c *Client) emit(e Event) {
	select {
	case c.events <- e:
	default:
	}
}
