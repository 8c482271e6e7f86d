// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintfPrefixesSubsystem(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer log.SetOutput(os.Stderr)

	l := New("session")
	l.Printf("hello %s", "world")

	require.True(t, strings.HasPrefix(buf.String(), "session: hello world"))
}

func TestPrintlnPrefixesSubsystem(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer log.SetOutput(os.Stderr)

	l := New("stream")
	l.Println("stopping")

	require.True(t, strings.HasPrefix(buf.String(), "stream: stopping"))
}
