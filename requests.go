// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package xrone

import (
	"time"

	"github.com/relabs-tech/xrone-go/internal/control"
	"github.com/relabs-tech/xrone-go/internal/deviceconfig"
	"github.com/relabs-tech/xrone-go/internal/property"
)

const defaultControlRequestTimeout = 5 * time.Second

func (c *Client) controlTimeout() time.Duration {
	if c.opts.controlTimeout > 0 {
		return c.opts.controlTimeout
	}
	return defaultControlRequestTimeout
}

func (c *Client) getProperty(magic control.Magic) ([]byte, error) {
	return c.orc.SendControl(magic, property.EncodeGetPropertyRequest(), c.controlTimeout())
}

func (c *Client) setNumeric(magic control.Magic, v int32) error {
	body, err := property.EncodeSetNumericRequest(v)
	if err != nil {
		return err
	}
	resp, err := c.orc.SendControl(magic, body, c.controlTimeout())
	if err != nil {
		return err
	}
	return property.ParseEmptyResponse(resp)
}

// GetID returns the device's factory identifier string.
func (c *Client) GetID() (string, error) {
	resp, err := c.getProperty(control.MagicGetID)
	if err != nil {
		return "", err
	}
	return property.ParseStringResponse(resp)
}

// GetSoftwareVersion returns the device's software version string.
func (c *Client) GetSoftwareVersion() (string, error) {
	resp, err := c.getProperty(control.MagicGetSoftwareVersion)
	if err != nil {
		return "", err
	}
	return property.ParseStringResponse(resp)
}

// GetDSPVersion returns the device's DSP firmware version string.
func (c *Client) GetDSPVersion() (string, error) {
	resp, err := c.getProperty(control.MagicGetDSPVersion)
	if err != nil {
		return "", err
	}
	return property.ParseStringResponse(resp)
}

// GetConfigRaw returns the raw JSON device configuration document, the
// same bytes Start already parsed and validated during startup.
func (c *Client) GetConfigRaw() (string, error) {
	resp, err := c.getProperty(control.MagicGetConfig)
	if err != nil {
		return "", err
	}
	return property.ParseStringResponse(resp)
}

// GetConfig fetches and parses the device configuration document.
func (c *Client) GetConfig() (*deviceconfig.DeviceConfig, error) {
	raw, err := c.GetConfigRaw()
	if err != nil {
		return nil, err
	}
	return deviceconfig.Parse([]byte(raw))
}

// SetSceneMode switches the device's on-display scene.
func (c *Client) SetSceneMode(mode int32) error {
	return c.setNumeric(control.MagicSetScene, mode)
}

// SetDisplayInputMode switches which input source the display shows.
func (c *Client) SetDisplayInputMode(mode int32) error {
	return c.setNumeric(control.MagicSetDisplayInput, mode)
}

// SetBrightness sets display brightness on a 0..9 scale.
func (c *Client) SetBrightness(level int32) error {
	if level < 0 || level > 9 {
		return ErrInvalidArgument
	}
	return c.setNumeric(control.MagicSetBrightness, level)
}

// SetDimmer toggles the ambient-light auto-dimmer.
func (c *Client) SetDimmer(enabled bool) error {
	var v int32
	if enabled {
		v = 1
	}
	return c.setNumeric(control.MagicSetDimmer, v)
}
