// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package xrone

import (
	"time"

	"github.com/relabs-tech/xrone-go/internal/smoother"
	"github.com/relabs-tech/xrone-go/internal/tracker"
)

const (
	defaultCalibrationTarget  = 200
	defaultComplementaryAlpha = 0.98
	defaultDiagnosticsEvery   = 200
	defaultDialTimeout        = 3 * time.Second
	defaultSmootherMinCutoff  = 1.0
	defaultSmootherBeta       = 0.02
	defaultSmootherMaxDelta   = 0.5
)

type options struct {
	host        string
	controlPort int
	streamPort  int
	dialTimeout time.Duration

	calibrationTarget int
	alpha             float64
	outputScale       tracker.Euler

	startupTimeout    time.Duration
	controlTimeout    time.Duration
	streamReadTimeout time.Duration
	diagnosticsEvery  int

	smootherCfg smoother.Config
}

func defaultOptions() options {
	return options{
		host:              DefaultHost,
		controlPort:       DefaultControlPort,
		streamPort:        DefaultStreamPort,
		dialTimeout:       defaultDialTimeout,
		calibrationTarget: defaultCalibrationTarget,
		alpha:             defaultComplementaryAlpha,
		outputScale:       tracker.Euler{Pitch: 1, Yaw: 1, Roll: 1},
		diagnosticsEvery:  defaultDiagnosticsEvery,
		smootherCfg: smoother.Config{
			MinCutoff: defaultSmootherMinCutoff,
			Beta:      defaultSmootherBeta,
			MaxDelta:  defaultSmootherMaxDelta,
		},
	}
}

// Option configures a Client at Dial time.
type Option func(*options)

// WithHost overrides the device host, default DefaultHost.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithPorts overrides the control and stream TCP ports.
func WithPorts(controlPort, streamPort int) Option {
	return func(o *options) {
		o.controlPort = controlPort
		o.streamPort = streamPort
	}
}

// WithDialTimeout bounds each of the two TCP dials.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithCalibrationTarget overrides the number of stillness samples
// required to complete gyro-bias calibration.
func WithCalibrationTarget(n int) Option {
	return func(o *options) { o.calibrationTarget = n }
}

// WithComplementaryAlpha overrides the complementary filter's gyro
// blend weight (0..1); higher trusts the gyro integration more.
func WithComplementaryAlpha(alpha float64) Option {
	return func(o *options) { o.alpha = alpha }
}

// WithOutputScale overrides the per-axis scale applied to relative
// orientation.
func WithOutputScale(pitch, yaw, roll float64) Option {
	return func(o *options) { o.outputScale = tracker.Euler{Pitch: pitch, Yaw: yaw, Roll: roll} }
}

// WithStartupTimeout bounds how long Start waits for the first stream
// report before failing, default 3.5s.
func WithStartupTimeout(d time.Duration) Option {
	return func(o *options) { o.startupTimeout = d }
}

// WithControlTimeout bounds the get_config round trip issued by Start.
func WithControlTimeout(d time.Duration) Option {
	return func(o *options) { o.controlTimeout = d }
}

// WithDiagnosticsEvery overrides how often a Diagnostics event is
// published, in emitted reports.
func WithDiagnosticsEvery(n int) Option {
	return func(o *options) { o.diagnosticsEvery = n }
}

// WithSmoothing overrides the 1-euro filter's min_cutoff and beta
// parameters used when pose data mode is set to smooth.
func WithSmoothing(minCutoff, beta float64) Option {
	return func(o *options) {
		o.smootherCfg.MinCutoff = minCutoff
		o.smootherCfg.Beta = beta
	}
}
