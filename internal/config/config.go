// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package config loads the TOML configuration file shared by the
// demo command-line programs in cmd/.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config holds the settings a demo program needs to dial and
// configure a pair of glasses.
type Config struct {
	Device DeviceConfig `toml:"device"`
	Pose   PoseConfig   `toml:"pose"`
	Bridge BridgeConfig `toml:"bridge"`
}

// DeviceConfig holds the network endpoint of the glasses.
type DeviceConfig struct {
	Host        string `toml:"host"`
	ControlPort int    `toml:"control_port"`
	StreamPort  int    `toml:"stream_port"`
}

// PoseConfig holds pose-fusion tuning parameters.
type PoseConfig struct {
	CalibrationTarget  int     `toml:"calibration_target"`
	ComplementaryAlpha float64 `toml:"complementary_alpha"`
	Smoothed           bool    `toml:"smoothed"`
	SmootherMinCutoff  float64 `toml:"smoother_min_cutoff"`
	SmootherBeta       float64 `toml:"smoother_beta"`
}

// BridgeConfig holds the cmd/bridge web+MQTT bridge settings.
type BridgeConfig struct {
	ListenAddr string `toml:"listen_addr"`
	MQTTBroker string `toml:"mqtt_broker"`
	TopicPose  string `toml:"topic_pose"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Host:        "169.254.2.1",
			ControlPort: 52999,
			StreamPort:  52998,
		},
		Pose: PoseConfig{
			CalibrationTarget:  200,
			ComplementaryAlpha: 0.98,
			Smoothed:           false,
			SmootherMinCutoff:  1.0,
			SmootherBeta:       0.02,
		},
		Bridge: BridgeConfig{
			ListenAddr: ":8080",
			MQTTBroker: "tcp://localhost:1883",
			TopicPose:  "xrone/pose",
		},
	}
}

// Load reads and parses a TOML configuration file. A missing path
// yields the default configuration rather than an error, matching the
// demo programs' "works out of the box" expectation.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Device.Host == "" {
		return fmt.Errorf("device.host must not be empty")
	}
	if c.Device.ControlPort <= 0 || c.Device.ControlPort > 65535 {
		return fmt.Errorf("device.control_port out of range: %d", c.Device.ControlPort)
	}
	if c.Device.StreamPort <= 0 || c.Device.StreamPort > 65535 {
		return fmt.Errorf("device.stream_port out of range: %d", c.Device.StreamPort)
	}
	if c.Pose.CalibrationTarget <= 0 {
		return fmt.Errorf("pose.calibration_target must be positive, got %d", c.Pose.CalibrationTarget)
	}
	return nil
}

var (
	globalMu  sync.Mutex
	globalCfg *Config
)

// InitGlobal loads configPath and installs it as the process-wide
// configuration returned by Get.
func InitGlobal(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalCfg = cfg
	globalMu.Unlock()
	return nil
}

// Get returns the process-wide configuration installed by InitGlobal.
// Panics if InitGlobal has not been called, mirroring the singleton
// contract used elsewhere in this codebase.
func Get() *Config {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		panic("config: Get called before InitGlobal")
	}
	return globalCfg
}
