// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package xerr defines the closed error-kind taxonomy shared by every
// internal subsystem and re-exported by the top-level xrone package.
package xerr

import "fmt"

// Kind classifies the closed set of failure modes this client can
// surface.
type Kind int

const (
	KindInvalidArgument Kind = iota
	KindNetworkUnavailable
	KindConnectionFailed
	KindConnectionClosed
	KindTimeout
	KindCommandRejected
	KindProtocol
	KindIO
	KindTransactionCollision
	KindParse
	KindSchemaValidation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNetworkUnavailable:
		return "NetworkUnavailable"
	case KindConnectionFailed:
		return "ConnectionFailed"
	case KindConnectionClosed:
		return "ConnectionClosed"
	case KindTimeout:
		return "Timeout"
	case KindCommandRejected:
		return "CommandRejected"
	case KindProtocol:
		return "ProtocolError"
	case KindIO:
		return "IoError"
	case KindTransactionCollision:
		return "TransactionCollision"
	case KindParse:
		return "ParseError"
	case KindSchemaValidation:
		return "SchemaValidationError"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by every fallible operation in this
// module. Status is populated for KindCommandRejected; Path is
// populated for KindSchemaValidation.
type Error struct {
	Kind   Kind
	Msg    string
	Status uint32
	Path   string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCommandRejected:
		return fmt.Sprintf("%s: %s (status=0x%04X)", e.Kind, e.Msg, e.Status)
	case KindSchemaValidation:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Msg)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, xrone.ErrTimeout) style sentinel checks
// against the Kind-tagged error family.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	if other.Msg == "" && other.Err == nil && other.Status == 0 && other.Path == "" {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an Error with no wrapped cause from a format string.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that wraps an underlying cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Sentinel values for errors.Is(err, xrone.ErrXxx) checks against the
// Kind alone.
var (
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrNetworkUnavailable  = &Error{Kind: KindNetworkUnavailable}
	ErrConnectionFailed    = &Error{Kind: KindConnectionFailed}
	ErrConnectionClosed    = &Error{Kind: KindConnectionClosed}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrCommandRejected     = &Error{Kind: KindCommandRejected}
	ErrProtocol            = &Error{Kind: KindProtocol}
	ErrIO                  = &Error{Kind: KindIO}
	ErrTransactionCollision = &Error{Kind: KindTransactionCollision}
	ErrParse               = &Error{Kind: KindParse}
	ErrSchemaValidation    = &Error{Kind: KindSchemaValidation}
)
