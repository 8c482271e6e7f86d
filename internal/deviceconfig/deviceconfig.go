// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package deviceconfig parses and validates the JSON device-calibration
// payload fetched from the glasses over the control session, converting
// it into a strictly-typed, immutable model with path-anchored
// diagnostics for every schema violation.
package deviceconfig

import "time"

// Vec2, Vec3, Vec4, Mat3x3 and Mat4x4 are fixed-arity numeric vectors
// appearing throughout the calibration payload.
type Vec2 [2]float64
type Vec3 [3]float64
type Vec4 [4]float64
type Vec5 [5]float64
type Mat3x3 [9]float64
type Mat4x4 [16]float64

// DisplayEye carries one eye's intrinsics and rigid transform.
type DisplayEye struct {
	Intrinsics Mat3x3
	Transform  Mat4x4
}

// Display describes the glasses' dual-display geometry.
type Display struct {
	NumOfDisplays int
	TargetType    string
	Left          DisplayEye
	Right         DisplayEye
}

// GridPoint is one (u,v,x,y) quadruple of a distortion grid.
type GridPoint struct {
	U, V, X, Y float64
}

// DistortionGrid is an N×M mesh of source-to-corrected coordinate
// mappings for one eye's display surface.
type DistortionGrid struct {
	NumRow int
	NumCol int
	Points []GridPoint
}

// CameraIntrinsics is the shared radial camera model carried by both
// optional camera blocks.
type CameraIntrinsics struct {
	CC                    Vec2
	FC                    Vec2
	KC                    Vec5
	Resolution            Vec2
	RollingShutterSeconds float64
}

// SLAMCamera additionally carries a rigid transform relating the
// camera frame to the IMU frame.
type SLAMCamera struct {
	CameraIntrinsics
	Transform Mat4x4
}

// GyroBiasSample is one entry of the temperature-indexed factory gyro
// bias sweep.
type GyroBiasSample struct {
	TemperatureC float64
	Bias         Vec3
}

// SensorIntrinsics is the per-axis calibration summary shared by the
// accelerometer and gyroscope blocks.
type SensorIntrinsics struct {
	PeakToPeak        Vec3
	Std               Vec3
	Bias              Vec3
	CalibrationMatrix Mat3x3
}

// IMUBlock is the IMU.device_1 section of the payload.
type IMUBlock struct {
	AccelBias                 Vec3
	GyroBias                  Vec3
	GyroBiasTempData          []GyroBiasSample
	MagTransform              Mat3x3
	AccelIntrinsics           SensorIntrinsics
	GyroIntrinsics            SensorIntrinsics
	StaticDetectionWindowSize int
	MeanTemperature           float64
	Noise                     Vec4
}

// InterpolateGyroBias returns the temperature-interpolated factory
// gyro bias: below the first sample's temperature it returns the first
// sample's bias, above the last it returns the last, and between two
// samples it linearly interpolates component-wise.
func (b IMUBlock) InterpolateGyroBias(temperatureC float64) Vec3 {
	samples := b.GyroBiasTempData
	if temperatureC <= samples[0].TemperatureC {
		return samples[0].Bias
	}
	last := samples[len(samples)-1]
	if temperatureC >= last.TemperatureC {
		return last.Bias
	}
	for i := 0; i < len(samples)-1; i++ {
		lo, hi := samples[i], samples[i+1]
		if temperatureC >= lo.TemperatureC && temperatureC <= hi.TemperatureC {
			span := hi.TemperatureC - lo.TemperatureC
			if span == 0 {
				return lo.Bias
			}
			frac := (temperatureC - lo.TemperatureC) / span
			var out Vec3
			for k := 0; k < 3; k++ {
				out[k] = lo.Bias[k] + frac*(hi.Bias[k]-lo.Bias[k])
			}
			return out
		}
	}
	return last.Bias
}

// DeviceConfig is the immutable, fully-validated device-calibration
// payload.
type DeviceConfig struct {
	GlassesVersion   int
	FSN              string
	LastModifiedTime time.Time
	Display          Display
	LeftGrid         DistortionGrid
	RightGrid        DistortionGrid
	RGBCamera        *CameraIntrinsics
	SLAMCamera       *SLAMCamera
	IMU              IMUBlock
	Raw              []byte
}
