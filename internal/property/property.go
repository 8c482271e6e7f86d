// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package property implements the varint-encoded property request/
// response body grammar carried by control messages.
package property

import (
	"github.com/relabs-tech/xrone-go/internal/varint"
	"github.com/relabs-tech/xrone-go/internal/xerr"
)

const (
	tagGetProperty = 0x18
	tagSetNumeric  = 0x1A
	tagResponse    = 0x22
	tagStatus      = 0x08
	tagNumericVal  = 0x10
	tagStringVal   = 0x12
)

// EncodeGetPropertyRequest returns the fixed two-byte GetProperty
// request body.
func EncodeGetPropertyRequest() []byte {
	return []byte{tagGetProperty, 0x00}
}

// EncodeSetNumericRequest returns the SetNumeric request body for v.
// Negative values are rejected with KindInvalidArgument.
func EncodeSetNumericRequest(v int32) ([]byte, error) {
	if v < 0 {
		return nil, xerr.Newf(xerr.KindInvalidArgument, "set-numeric value must be non-negative, got %d", v)
	}
	valBytes := varint.Encode(uint64(v))
	inner := append([]byte{tagStatus}, valBytes...)
	out := append([]byte{tagSetNumeric}, varint.Encode(uint64(len(inner)))...)
	out = append(out, inner...)
	return out, nil
}

// unwrap validates and strips the outer [0x22, varint(len), …] response
// envelope, returning the inner bytes.
func unwrap(body []byte) ([]byte, error) {
	c := varint.NewCursor(body)
	tag, err := c.ReadByte()
	if err != nil {
		return nil, xerr.Wrap(xerr.KindProtocol, "response missing outer tag", err)
	}
	if tag != tagResponse {
		return nil, xerr.Newf(xerr.KindProtocol, "response outer tag 0x%02X, want 0x%02X", tag, tagResponse)
	}
	length, err := c.DecodeInt32()
	if err != nil {
		return nil, xerr.Wrap(xerr.KindProtocol, "response outer length", err)
	}
	inner, err := c.ReadBytes(int(length))
	if err != nil {
		return nil, xerr.Wrap(xerr.KindProtocol, "response outer body", err)
	}
	if !c.AtEnd() {
		return nil, xerr.Newf(xerr.KindProtocol, "response has %d trailing bytes", c.Remaining())
	}
	return inner, nil
}

// ParseEmptyResponse validates a command-acknowledgement response. A
// zero-length outer body is success. A non-empty body that decodes as
// [0x08, varint(status)] with a non-zero status yields KindCommandRejected
// carrying that status. Any other non-empty shape is KindProtocol.
func ParseEmptyResponse(body []byte) error {
	inner, err := unwrap(body)
	if err != nil {
		return err
	}
	if len(inner) == 0 {
		return nil
	}
	c := varint.NewCursor(inner)
	tag, err := c.ReadByte()
	if err != nil || tag != tagStatus {
		return xerr.New(xerr.KindProtocol, "non-empty response is not a status shape")
	}
	status, err := c.DecodeInt32()
	if err != nil {
		return xerr.Wrap(xerr.KindProtocol, "status value", err)
	}
	if !c.AtEnd() {
		return xerr.New(xerr.KindProtocol, "status response has trailing bytes")
	}
	if status == 0 {
		return xerr.New(xerr.KindProtocol, "non-empty response with zero status is not a recognized shape")
	}
	return &xerr.Error{Kind: xerr.KindCommandRejected, Msg: "device rejected command", Status: uint32(status)}
}

// ParseNumericResponse decodes the inner [0x10, varint(v)] shape.
func ParseNumericResponse(body []byte) (int32, error) {
	inner, err := unwrap(body)
	if err != nil {
		return 0, err
	}
	c := varint.NewCursor(inner)
	tag, err := c.ReadByte()
	if err != nil {
		return 0, xerr.Wrap(xerr.KindProtocol, "numeric response tag", err)
	}
	if tag != tagNumericVal {
		return 0, xerr.Newf(xerr.KindProtocol, "numeric response tag 0x%02X, want 0x%02X", tag, tagNumericVal)
	}
	v, err := c.DecodeInt32()
	if err != nil {
		return 0, xerr.Wrap(xerr.KindProtocol, "numeric response value", err)
	}
	if !c.AtEnd() {
		return 0, xerr.New(xerr.KindProtocol, "numeric response has trailing bytes")
	}
	return v, nil
}

// ParseStringResponse decodes the inner [0x12, varint(len), utf8…] shape.
func ParseStringResponse(body []byte) (string, error) {
	inner, err := unwrap(body)
	if err != nil {
		return "", err
	}
	c := varint.NewCursor(inner)
	tag, err := c.ReadByte()
	if err != nil {
		return "", xerr.Wrap(xerr.KindProtocol, "string response tag", err)
	}
	if tag != tagStringVal {
		return "", xerr.Newf(xerr.KindProtocol, "string response tag 0x%02X, want 0x%02X", tag, tagStringVal)
	}
	length, err := c.DecodeInt32()
	if err != nil {
		return "", xerr.Wrap(xerr.KindProtocol, "string response length", err)
	}
	strBytes, err := c.ReadBytes(int(length))
	if err != nil {
		return "", xerr.Wrap(xerr.KindProtocol, "string response body", err)
	}
	if !c.AtEnd() {
		return "", xerr.New(xerr.KindProtocol, "string response has trailing bytes")
	}
	return string(strBytes), nil
}
