// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package xrone

import "github.com/relabs-tech/xrone-go/internal/xerr"

// ErrorKind classifies the closed set of failure modes this client can
// surface; see Error.Kind.
type ErrorKind = xerr.Kind

const (
	ErrKindInvalidArgument      = xerr.KindInvalidArgument
	ErrKindNetworkUnavailable   = xerr.KindNetworkUnavailable
	ErrKindConnectionFailed     = xerr.KindConnectionFailed
	ErrKindConnectionClosed     = xerr.KindConnectionClosed
	ErrKindTimeout              = xerr.KindTimeout
	ErrKindCommandRejected      = xerr.KindCommandRejected
	ErrKindProtocol             = xerr.KindProtocol
	ErrKindIO                   = xerr.KindIO
	ErrKindTransactionCollision = xerr.KindTransactionCollision
	ErrKindParse                = xerr.KindParse
	ErrKindSchemaValidation     = xerr.KindSchemaValidation
)

// Error is the error type returned by every fallible Client operation.
// Status is populated for ErrKindCommandRejected; Path is populated
// for ErrKindSchemaValidation.
type Error = xerr.Error

// Sentinel values for errors.Is(err, xrone.ErrXxx) checks against the
// Kind alone, regardless of message or wrapped cause.
var (
	ErrInvalidArgument      = xerr.ErrInvalidArgument
	ErrNetworkUnavailable   = xerr.ErrNetworkUnavailable
	ErrConnectionFailed     = xerr.ErrConnectionFailed
	ErrConnectionClosed     = xerr.ErrConnectionClosed
	ErrTimeout              = xerr.ErrTimeout
	ErrCommandRejected      = xerr.ErrCommandRejected
	ErrProtocol             = xerr.ErrProtocol
	ErrIO                   = xerr.ErrIO
	ErrTransactionCollision = xerr.ErrTransactionCollision
	ErrParse                = xerr.ErrParse
	ErrSchemaValidation     = xerr.ErrSchemaValidation
)
