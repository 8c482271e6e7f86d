// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tracker implements the head-orientation integrator: stillness
// calibration, temperature-indexed factory bias correction, a
// complementary filter blending gyro integration with accelerometer
// tilt, recentering, and strict device-time monotonicity.
package tracker

import (
	"math"

	"github.com/relabs-tech/xrone-go/internal/xerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// TempBiasSample is one entry of a temperature-indexed factory gyro
// bias sweep, sorted ascending by TemperatureC.
type TempBiasSample struct {
	TemperatureC float64
	Bias         r3.Vec
}

// BiasConfig is the factory calibration the tracker corrects against.
type BiasConfig struct {
	AccelBias     r3.Vec
	GyroTempCurve []TempBiasSample
}

// interpolate returns the temperature-interpolated factory gyro bias:
// below the first sample it returns the first sample's bias, above the
// last it returns the last, otherwise it linearly interpolates the
// enclosing pair component-wise.
func (b BiasConfig) interpolate(temperatureC float64) r3.Vec {
	curve := b.GyroTempCurve
	if temperatureC <= curve[0].TemperatureC {
		return curve[0].Bias
	}
	last := curve[len(curve)-1]
	if temperatureC >= last.TemperatureC {
		return last.Bias
	}
	for i := 0; i < len(curve)-1; i++ {
		lo, hi := curve[i], curve[i+1]
		if temperatureC >= lo.TemperatureC && temperatureC <= hi.TemperatureC {
			span := hi.TemperatureC - lo.TemperatureC
			if span == 0 {
				return lo.Bias
			}
			frac := (temperatureC - lo.TemperatureC) / span
			return r3.Vec{
				X: lo.Bias.X + frac*(hi.Bias.X-lo.Bias.X),
				Y: lo.Bias.Y + frac*(hi.Bias.Y-lo.Bias.Y),
				Z: lo.Bias.Z + frac*(hi.Bias.Z-lo.Bias.Z),
			}
		}
	}
	return last.Bias
}

// Config parameterizes a Tracker.
type Config struct {
	CalibrationTarget int
	Alpha             float64 // complementary-filter blend weight for the gyro term
	OutputScale       Euler   // three per-axis output scales applied to relative orientation
	Bias              BiasConfig
}

// Euler is a pitch/yaw/roll orientation in degrees.
type Euler struct {
	Pitch, Yaw, Roll float64
}

// accelStillThreshold is the minimum corrected-accelerometer magnitude
// below which the tilt estimate is considered too noisy to trust and
// the filter falls back to gyro-only integration.
const accelStillThreshold = 0.01

type state int

const (
	stateUncalibrated state = iota
	stateCalibrated
)

// Tracker is the single-owner, single-threaded head-orientation
// integrator. It is not safe for concurrent use; the stream session
// feeds it from one goroutine.
type Tracker struct {
	cfg Config
	st  state

	calCount int
	calAccum r3.Vec

	residualBias r3.Vec
	euler        Euler
	zeroOffsets  Euler
	hasLastTs    bool
	lastTs       uint64
}

// New returns a Tracker in its initial Uncalibrated state.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Sample is one post-axis-remap inertial reading fed to the tracker.
type Sample struct {
	Gyro         r3.Vec
	Accel        r3.Vec
	TemperatureC float64
	DeviceTimeNs uint64
}

// Result is emitted on every sample that successfully updates a
// calibrated tracker (every sample but the first post-calibration
// one).
type Result struct {
	Absolute     Euler
	Relative     Euler // orientation relative to the last ZeroView call, scaled per axis
	DeltaT       float64
	DeviceTimeNs uint64
	GyroBias     r3.Vec // factory interpolation + residual, as applied to this sample
}

// FeedResult reports what happened to one sample fed into the
// tracker: it may still be accumulating calibration samples, may have
// just completed calibration, or may have produced an orientation
// update.
type FeedResult struct {
	JustCalibrated bool
	Update         *Result
}

// Calibrated reports whether the tracker has left the calibration
// phase.
func (t *Tracker) Calibrated() bool {
	return t.st == stateCalibrated
}

// CalibrationProgress returns the current accumulated sample count and
// the configured target.
func (t *Tracker) CalibrationProgress() (count, target int) {
	return t.calCount, t.cfg.CalibrationTarget
}

// Feed advances the tracker by one sample. While uncalibrated it
// accumulates a bias-corrected gyro sum; once the calibration target
// is reached it computes the residual bias and transitions to
// calibrated. Once calibrated it runs the complementary-filter update
// described on update.
func (t *Tracker) Feed(s Sample) (FeedResult, error) {
	if t.st == stateUncalibrated {
		factoryGyro := t.cfg.Bias.interpolate(s.TemperatureC)
		t.calAccum = r3.Add(t.calAccum, r3.Sub(s.Gyro, factoryGyro))
		t.calCount++
		if t.calCount < t.cfg.CalibrationTarget {
			return FeedResult{}, nil
		}
		n := float64(t.calCount)
		t.residualBias = r3.Scale(1/n, t.calAccum)
		t.euler = Euler{}
		t.hasLastTs = false
		t.st = stateCalibrated
		return FeedResult{JustCalibrated: true}, nil
	}

	result, err := t.update(s)
	if err != nil {
		return FeedResult{}, err
	}
	if result == nil {
		return FeedResult{}, nil
	}
	return FeedResult{Update: result}, nil
}

// update runs one complementary-filter step. It requires a prior
// timestamp; the very first post-calibration sample only records
// last_ts and returns (nil, nil).
func (t *Tracker) update(s Sample) (*Result, error) {
	if !t.hasLastTs {
		t.lastTs = s.DeviceTimeNs
		t.hasLastTs = true
		return nil, nil
	}

	if s.DeviceTimeNs <= t.lastTs {
		return nil, xerr.Newf(xerr.KindProtocol, "device timestamp %d did not advance past %d", s.DeviceTimeNs, t.lastTs)
	}
	deltaT := float64(s.DeviceTimeNs-t.lastTs) / 1e9
	if math.IsNaN(deltaT) || math.IsInf(deltaT, 0) || deltaT <= 0 {
		return nil, xerr.Newf(xerr.KindProtocol, "non-finite or non-positive delta-t %v", deltaT)
	}
	t.lastTs = s.DeviceTimeNs

	factoryGyro := t.cfg.Bias.interpolate(s.TemperatureC)
	gyroBias := r3.Add(factoryGyro, t.residualBias)
	correctedGyro := r3.Sub(s.Gyro, gyroBias)

	t.euler.Pitch = wrapDegrees(t.euler.Pitch + correctedGyro.X*deltaT)
	t.euler.Yaw = wrapDegrees(t.euler.Yaw + correctedGyro.Y*deltaT)
	t.euler.Roll = wrapDegrees(t.euler.Roll + correctedGyro.Z*deltaT)

	correctedAccel := r3.Sub(s.Accel, t.cfg.Bias.AccelBias)
	if r3.Norm(correctedAccel) > accelStillThreshold {
		pitchAcc := math.Atan2(-correctedAccel.X, math.Sqrt(correctedAccel.Y*correctedAccel.Y+correctedAccel.Z*correctedAccel.Z)) * 180 / math.Pi
		rollAcc := math.Atan2(correctedAccel.Y, correctedAccel.Z) * 180 / math.Pi

		alpha := t.cfg.Alpha
		t.euler.Pitch = wrapDegrees(alpha*t.euler.Pitch + (1-alpha)*pitchAcc)
		t.euler.Roll = wrapDegrees(alpha*t.euler.Roll + (1-alpha)*rollAcc)
	}

	return &Result{
		Absolute:     t.euler,
		Relative:     t.relative(),
		DeltaT:       deltaT,
		DeviceTimeNs: s.DeviceTimeNs,
		GyroBias:     gyroBias,
	}, nil
}

// ZeroView copies the current absolute orientation into the zero
// offsets used by Relative.
func (t *Tracker) ZeroView() {
	t.zeroOffsets = t.euler
}

// Relative returns the current orientation relative to the last
// ZeroView call, scaled per axis by the configured output scale.
func (t *Tracker) Relative() Euler {
	return t.relative()
}

func (t *Tracker) relative() Euler {
	return Euler{
		Pitch: wrapDegrees((t.euler.Pitch - t.zeroOffsets.Pitch) * t.cfg.OutputScale.Pitch),
		Yaw:   wrapDegrees((t.euler.Yaw - t.zeroOffsets.Yaw) * t.cfg.OutputScale.Yaw),
		Roll:  wrapDegrees((t.euler.Roll - t.zeroOffsets.Roll) * t.cfg.OutputScale.Roll),
	}
}

// Reset clears all tracker state, including zero offsets and the
// last-timestamp watermark, returning it to Uncalibrated.
func (t *Tracker) Reset() {
	*t = Tracker{cfg: t.cfg}
}

// wrapDegrees wraps an angle in degrees to (-180, 180].
func wrapDegrees(deg float64) float64 {
	wrapped := math.Mod(deg+180, 360)
	if wrapped <= 0 {
		wrapped += 360
	}
	return wrapped - 180
}
