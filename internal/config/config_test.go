// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[device]
host = "169.254.9.9"
control_port = 1
stream_port = 2

[pose]
calibration_target = 50
complementary_alpha = 0.9
smoothed = true
smoother_min_cutoff = 2.0
smoother_beta = 0.1

[bridge]
listen_addr = ":9090"
mqtt_broker = "tcp://broker:1883"
topic_pose = "custom/pose"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "169.254.9.9", cfg.Device.Host)
	require.Equal(t, 1, cfg.Device.ControlPort)
	require.Equal(t, 50, cfg.Pose.CalibrationTarget)
	require.True(t, cfg.Pose.Smoothed)
	require.Equal(t, ":9090", cfg.Bridge.ListenAddr)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "[device]\ncontrol_port = 0\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestInitGlobalAndGet(t *testing.T) {
	require.NoError(t, InitGlobal(""))
	require.Equal(t, Default(), Get())
}
