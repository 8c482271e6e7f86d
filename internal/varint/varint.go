// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package varint implements the little-endian base-128 varint codec
// used by the property wire.
package varint

import "github.com/relabs-tech/xrone-go/internal/xerr"

const maxBytes = 5 // 5*7 = 35 bits, enough to bound an i32 overflow check

// Encode returns the base-128 varint encoding of v. v must be
// non-negative; callers are expected to have validated that already
// (see property.EncodeSetNumericRequest).
func Encode(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// Cursor reads varints and bounded byte runs out of a fixed buffer,
// tracking position explicitly so higher layers can interleave varint
// decodes with raw byte reads.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for sequential reading starting at offset 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// AtEnd reports whether the cursor has consumed the whole buffer.
func (c *Cursor) AtEnd() bool {
	return c.pos >= len(c.buf)
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// ReadBytes returns the next n bytes and advances the cursor. It fails
// with KindProtocol if n would read past the end of the buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, xerr.Newf(xerr.KindProtocol, "read_bytes(%d): only %d bytes remain", n, c.Remaining())
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

// ReadByte returns the next single byte and advances the cursor.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// DecodeInt32 decodes a base-128 varint into a non-negative int32. It
// fails with KindProtocol if the varint spans more than 5 bytes, runs
// past the end of the buffer, or would overflow an int32.
func (c *Cursor) DecodeInt32() (int32, error) {
	var result uint64
	for i := 0; i < maxBytes; i++ {
		b, err := c.ReadByte()
		if err != nil {
			return 0, xerr.Wrap(xerr.KindProtocol, "varint truncated", err)
		}
		result |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			if result > 0x7fffffff {
				return 0, xerr.Newf(xerr.KindProtocol, "varint %d overflows int32", result)
			}
			return int32(result), nil
		}
	}
	return 0, xerr.New(xerr.KindProtocol, "varint exceeds 5 bytes")
}
