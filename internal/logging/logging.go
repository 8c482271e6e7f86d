// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logging is a thin subsystem-tagged wrapper over the
// standard logger, matching the "subsystem: message" prefix style
// used throughout the rest of this codebase's log.Printf calls.
package logging

import "log"

// Logger prefixes every message with a fixed subsystem tag.
type Logger struct {
	subsystem string
}

// New returns a Logger that prefixes messages with subsystem.
func New(subsystem string) *Logger {
	return &Logger{subsystem: subsystem}
}

func (l *Logger) Printf(format string, args ...interface{}) {
	log.Printf(l.subsystem+": "+format, args...)
}

func (l *Logger) Println(args ...interface{}) {
	log.Println(append([]interface{}{l.subsystem + ":"}, args...)...)
}
