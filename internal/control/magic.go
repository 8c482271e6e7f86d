// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package control

// Magic identifies a control-message kind on the wire.
type Magic uint16

const (
	MagicSetScene         Magic = 0x2829
	MagicSetDisplayInput   Magic = 0x2822
	MagicSetBrightness    Magic = 0x271C
	MagicSetDimmer        Magic = 0x2727
	MagicGetConfig        Magic = 0x271F
	MagicGetSoftwareVersion Magic = 0x271D
	MagicGetDSPVersion    Magic = 0x272D
	MagicGetID            Magic = 0x2729
	MagicKeyStateChange   Magic = 0x272E
)

func (m Magic) String() string {
	switch m {
	case MagicSetScene:
		return "SetScene"
	case MagicSetDisplayInput:
		return "SetDisplayInput"
	case MagicSetBrightness:
		return "SetBrightness"
	case MagicSetDimmer:
		return "SetDimmer"
	case MagicGetConfig:
		return "GetConfig"
	case MagicGetSoftwareVersion:
		return "GetSoftwareVersion"
	case MagicGetDSPVersion:
		return "GetDSPVersion"
	case MagicGetID:
		return "GetID"
	case MagicKeyStateChange:
		return "KeyStateChange"
	default:
		return "Unknown"
	}
}
