// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package report implements the sensor-report framer and decoder:
// recovering self-delimited 134-byte IMU/magnetometer reports out of a
// byte stream that may start mid-frame, contain garbage, or arrive in
// arbitrary chunks.
package report

import (
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kind identifies the decoded report's wire-level report_kind_wire
// value.
type Kind int

const (
	KindIMU Kind = iota
	KindMagnetometer
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindIMU:
		return "IMU"
	case KindMagnetometer:
		return "MAGNETOMETER"
	default:
		return "UNKNOWN"
	}
}

const (
	wireKindIMU = 0x0B
	wireKindMag = 0x04
)

const (
	headerSize  = 6
	bodySize    = 128
	frameSize   = headerSize + bodySize
	maxBuffered = 131072
)

// SensorReport is an immutable decoded IMU/magnetometer report.
type SensorReport struct {
	DeviceID     uint64
	HMDTimeNs    uint64
	Kind         Kind
	Gyro         r3.Vec
	Accel        r3.Vec
	Mag          r3.Vec
	TemperatureC float32
	IMUID        uint8
	FrameID      [3]byte
}

func wireKind(w uint32) Kind {
	switch w {
	case wireKindIMU:
		return KindIMU
	case wireKindMag:
		return KindMagnetometer
	default:
		return KindUnknown
	}
}

// decodeBody parses the 128-byte little-endian report body. body must
// be exactly bodySize bytes; callers (the framer) guarantee this.
func decodeBody(body []byte) SensorReport {
	var r SensorReport
	r.DeviceID = binary.LittleEndian.Uint64(body[0x00:0x08])
	r.HMDTimeNs = binary.LittleEndian.Uint64(body[0x08:0x10])
	kindWire := binary.LittleEndian.Uint32(body[0x18:0x1c])

	floats := make([]float32, 10)
	for i := 0; i < 10; i++ {
		off := 0x1c + i*4
		floats[i] = decodeFloat32LE(body[off : off+4])
	}
	r.Gyro = r3.Vec{X: float64(floats[0]), Y: float64(floats[1]), Z: float64(floats[2])}
	r.Accel = r3.Vec{X: float64(floats[3]), Y: float64(floats[4]), Z: float64(floats[5])}
	r.Mag = r3.Vec{X: float64(floats[6]), Y: float64(floats[7]), Z: float64(floats[8])}
	r.TemperatureC = floats[9]

	r.IMUID = body[0x44]
	copy(r.FrameID[:], body[0x45:0x48])

	r.Kind = wireKind(kindWire)
	return r
}

func decodeFloat32LE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// EncodeBody is the inverse of decodeBody, used by tests to build
// well-formed wire bodies.
func EncodeBody(r SensorReport) []byte {
	body := make([]byte, bodySize)
	binary.LittleEndian.PutUint64(body[0x00:0x08], r.DeviceID)
	binary.LittleEndian.PutUint64(body[0x08:0x10], r.HMDTimeNs)

	var kindWire uint32
	switch r.Kind {
	case KindIMU:
		kindWire = wireKindIMU
	case KindMagnetometer:
		kindWire = wireKindMag
	default:
		kindWire = 0xFFFFFFFF
	}
	binary.LittleEndian.PutUint32(body[0x18:0x1c], kindWire)

	floats := []float32{
		float32(r.Gyro.X), float32(r.Gyro.Y), float32(r.Gyro.Z),
		float32(r.Accel.X), float32(r.Accel.Y), float32(r.Accel.Z),
		float32(r.Mag.X), float32(r.Mag.Y), float32(r.Mag.Z),
		r.TemperatureC,
	}
	for i, f := range floats {
		off := 0x1c + i*4
		binary.LittleEndian.PutUint32(body[off:off+4], math.Float32bits(f))
	}

	body[0x44] = r.IMUID
	copy(body[0x45:0x48], r.FrameID[:])
	return body
}

// EncodeHeader builds the 6-byte big-endian header for a report of the
// given body length (always bodySize for well-formed frames). magic0
// is either 0x28 or 0x27.
func EncodeHeader(magic0 byte, length uint32) []byte {
	h := make([]byte, headerSize)
	h[0] = magic0
	h[1] = 0x36
	binary.BigEndian.PutUint32(h[2:6], length)
	return h
}

// EncodeFrame builds a complete well-formed wire frame (header + body)
// for a report, for use in tests.
func EncodeFrame(magic0 byte, r SensorReport) []byte {
	out := EncodeHeader(magic0, bodySize)
	out = append(out, EncodeBody(r)...)
	return out
}
