// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package smoother implements a per-axis 1-euro low-pass filter over
// wrapped angles, used to optionally smooth relative head orientation
// before publication. Absolute orientation is never smoothed.
package smoother

import "math"

// Config parameterizes one axis filter.
type Config struct {
	MinCutoff float64
	Beta      float64
	DCutoff   float64 // cutoff for the derivative low-pass; defaults to 1.0 if zero
	MaxDelta  float64 // Δt above this re-primes the filter
}

func (c Config) dCutoff() float64 {
	if c.DCutoff == 0 {
		return 1.0
	}
	return c.DCutoff
}

// axisFilter is a single 1-euro filter instance over one unwrapped
// angle track.
type axisFilter struct {
	primed     bool
	unwrapped  float64 // last unwrapped value
	wrappedPrev float64 // last wrapped input, for computing the next delta
	dxFiltered float64
	value      float64 // last filtered unwrapped output
}

func (f *axisFilter) prime(wrapped float64) {
	f.primed = true
	f.unwrapped = wrapped
	f.wrappedPrev = wrapped
	f.dxFiltered = 0
	f.value = wrapped
}

func (f *axisFilter) reset() {
	*f = axisFilter{}
}

func smoothingFactor(dt, cutoff float64) float64 {
	r := 2 * math.Pi * cutoff * dt
	return r / (r + 1)
}

func lowPass(x, prev, alpha float64) float64 {
	return alpha*x + (1-alpha)*prev
}

// wrapDegrees wraps an angle in degrees to (-180, 180].
func wrapDegrees(deg float64) float64 {
	wrapped := math.Mod(deg+180, 360)
	if wrapped <= 0 {
		wrapped += 360
	}
	return wrapped - 180
}

// wrappedDelta returns the shortest signed angular distance from prev
// to next, both in (-180,180].
func wrappedDelta(prev, next float64) float64 {
	return wrapDegrees(next - prev)
}

func (f *axisFilter) step(wrapped float64, dt float64, cfg Config) float64 {
	if !f.primed {
		f.prime(wrapped)
		return wrapped
	}

	delta := wrappedDelta(f.wrappedPrev, wrapped)
	f.wrappedPrev = wrapped
	f.unwrapped += delta

	dx := delta / dt
	alphaD := smoothingFactor(dt, cfg.dCutoff())
	f.dxFiltered = lowPass(dx, f.dxFiltered, alphaD)

	cutoff := cfg.MinCutoff + cfg.Beta*math.Abs(f.dxFiltered)
	alpha := smoothingFactor(dt, cutoff)
	f.value = lowPass(f.unwrapped, f.value, alpha)

	return wrapDegrees(f.value)
}

// Sample is one per-axis angle reading in degrees.
type Sample struct {
	Pitch, Yaw, Roll float64
}

// Smoother runs three independent 1-euro filters, one per axis.
type Smoother struct {
	cfg   Config
	pitch axisFilter
	yaw   axisFilter
	roll  axisFilter
}

// New returns an unprimed Smoother.
func New(cfg Config) *Smoother {
	return &Smoother{cfg: cfg}
}

// Prime seeds all three axis filters from one sample without
// filtering, so the very next Step has a well-defined previous value.
func (s *Smoother) Prime(sample Sample) {
	s.pitch.prime(sample.Pitch)
	s.yaw.prime(sample.Yaw)
	s.roll.prime(sample.Roll)
}

// Reset clears initialization; the next Step re-primes from scratch.
func (s *Smoother) Reset() {
	s.pitch.reset()
	s.yaw.reset()
	s.roll.reset()
}

// Step filters one sample given the elapsed time since the previous
// one. An invalid Δt (non-positive, non-finite, or above the
// configured MaxDelta) re-primes the filter from this sample instead
// of filtering it.
func (s *Smoother) Step(sample Sample, dt float64) Sample {
	if !validDelta(dt, s.cfg.MaxDelta) {
		s.Prime(sample)
		return sample
	}
	return Sample{
		Pitch: s.pitch.step(sample.Pitch, dt, s.cfg),
		Yaw:   s.yaw.step(sample.Yaw, dt, s.cfg),
		Roll:  s.roll.step(sample.Roll, dt, s.cfg),
	}
}

func validDelta(dt, maxDelta float64) bool {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return false
	}
	if maxDelta > 0 && dt > maxDelta {
		return false
	}
	return true
}
