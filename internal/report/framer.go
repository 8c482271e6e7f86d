// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package report

import "encoding/binary"

// Diagnostics accumulates the framer's per-byte-stream anomaly
// counters.
type Diagnostics struct {
	DroppedBytes        uint64
	InvalidReportLength uint64
	DecodeError         uint64
	UnknownReportType   uint64
	IMUReports          uint64
	MagReports          uint64
}

// Framer recovers SensorReports from an arbitrarily chunked byte
// stream, resynchronizing after garbage and bounding its internal
// buffer so a pathological stream cannot grow it without limit.
type Framer struct {
	pending []byte
	diag    Diagnostics
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Diagnostics returns a snapshot of the accumulated counters.
func (f *Framer) Diagnostics() Diagnostics {
	return f.diag
}

func isMagicByte(b byte) bool {
	return b == 0x28 || b == 0x27
}

// Append feeds newly received bytes into the framer and returns every
// SensorReport that can be fully decoded as a result, in stream order.
// Feeding the same overall byte stream split at any chunk boundaries
// yields the same sequence of reports as feeding it in one call.
func (f *Framer) Append(data []byte) []SensorReport {
	f.pending = append(f.pending, data...)
	if over := len(f.pending) - maxBuffered; over > 0 {
		f.diag.DroppedBytes += uint64(over)
		f.pending = f.pending[over:]
	}

	var out []SensorReport
	for {
		if len(f.pending) < 2 {
			return out
		}

		// Step 2: resync on the first valid magic pair, discarding
		// anything before it.
		idx := -1
		for i := 0; i+1 < len(f.pending); i++ {
			if isMagicByte(f.pending[i]) && f.pending[i+1] == 0x36 {
				idx = i
				break
			}
		}
		if idx == -1 {
			// No magic anywhere in the buffer except possibly the very
			// last byte, which might be the start of one on the next
			// append; keep at most that one byte.
			dropped := len(f.pending) - 1
			if dropped < 0 {
				dropped = 0
			}
			f.diag.DroppedBytes += uint64(dropped)
			f.pending = f.pending[len(f.pending)-1:]
			return out
		}
		if idx > 0 {
			f.diag.DroppedBytes += uint64(idx)
			f.pending = f.pending[idx:]
		}

		if len(f.pending) < headerSize {
			return out
		}

		length := binary.BigEndian.Uint32(f.pending[2:6])
		if length != bodySize {
			f.diag.InvalidReportLength++
			// Drop a single byte past the false magic and resync.
			f.pending = f.pending[1:]
			continue
		}

		if len(f.pending) < frameSize {
			return out
		}

		body := f.pending[headerSize:frameSize]
		r := decodeBody(body)
		f.pending = f.pending[frameSize:]

		switch r.Kind {
		case KindUnknown:
			f.diag.UnknownReportType++
		case KindIMU:
			f.diag.IMUReports++
			out = append(out, r)
		case KindMagnetometer:
			f.diag.MagReports++
			out = append(out, r)
		}
	}
}
