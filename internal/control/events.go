// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package control

import "encoding/binary"

// KeyType is the closed set of physical keys reported by a key-state
// change event.
type KeyType uint32

const (
	KeyTypeFrontTopBottomSingle KeyType = 1
	KeyTypeReserved2           KeyType = 2
	KeyTypeReserved3           KeyType = 3
	KeyTypeTopSingle           KeyType = 4
)

func (k KeyType) valid() bool {
	return k >= KeyTypeFrontTopBottomSingle && k <= KeyTypeTopSingle
}

// KeyState is the closed set of transitions a key-state event reports.
type KeyState uint32

const (
	KeyStateDown KeyState = 1
	KeyStateUp   KeyState = 2
)

func (s KeyState) valid() bool {
	return s == KeyStateDown || s == KeyStateUp
}

// KeyStateEvent is a decoded 64-byte key-state-change payload.
type KeyStateEvent struct {
	KeyType      KeyType
	KeyState     KeyState
	DeviceTimeNs uint32
}

const keyStatePayloadSize = 64

func decodeKeyState(body []byte) (KeyStateEvent, error) {
	if len(body) != keyStatePayloadSize {
		return KeyStateEvent{}, protocolErrorf("key-state payload is %d bytes, want %d", len(body), keyStatePayloadSize)
	}
	keyType := KeyType(binary.LittleEndian.Uint32(body[0:4]))
	keyState := KeyState(binary.LittleEndian.Uint32(body[4:8]))
	deviceTimeNs := binary.LittleEndian.Uint32(body[8:12])
	if !keyType.valid() {
		return KeyStateEvent{}, protocolErrorf("unrecognized key_type %d", keyType)
	}
	if !keyState.valid() {
		return KeyStateEvent{}, protocolErrorf("unrecognized key_state %d", keyState)
	}
	return KeyStateEvent{KeyType: keyType, KeyState: keyState, DeviceTimeNs: deviceTimeNs}, nil
}

// EventKind discriminates the shapes an unsolicited inbound Event can
// take.
type EventKind int

const (
	EventKeyState EventKind = iota
	EventUnknownInbound
)

// Event is an unsolicited inbound control message: either a decoded
// key-state change, or a message this session could not correlate to
// a pending transaction.
type Event struct {
	Kind     EventKind
	Magic    Magic
	KeyState KeyStateEvent
	Raw      []byte
	Err      error
}
