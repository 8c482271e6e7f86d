// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// xrone-demo connects to a pair of glasses and prints orientation
// samples and lifecycle transitions to the console until interrupted.
package main

import (
	"flag"
	"log"

	"github.com/maruel/interrupt"
	"github.com/relabs-tech/xrone-go"
	"github.com/relabs-tech/xrone-go/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	interrupt.HandleCtrlC()

	opts := []xrone.Option{
		xrone.WithHost(cfg.Device.Host),
		xrone.WithPorts(cfg.Device.ControlPort, cfg.Device.StreamPort),
		xrone.WithCalibrationTarget(cfg.Pose.CalibrationTarget),
		xrone.WithComplementaryAlpha(cfg.Pose.ComplementaryAlpha),
		xrone.WithSmoothing(cfg.Pose.SmootherMinCutoff, cfg.Pose.SmootherBeta),
	}

	client, err := xrone.Dial(opts...)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer client.Stop()

	if cfg.Pose.Smoothed {
		client.SetPoseDataMode(xrone.PoseDataSmooth)
	}

	log.Println("starting xrone-demo console")
	if _, err := client.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	for {
		select {
		case <-interrupt.Channel:
			log.Println("interrupted, shutting down")
			return
		case evt := <-client.Events():
			logEvent(evt)
		}
	}
}

func logEvent(evt xrone.Event) {
	switch evt.Kind {
	case xrone.EventStateChanged:
		log.Printf("state: lifecycle=%v bias=%v", evt.State.Lifecycle, evt.State.Bias)
	case xrone.EventTrackingSample:
		t := evt.Tracking
		log.Printf("pose: rel(pitch=%.2f yaw=%.2f roll=%.2f) dt=%.4f ts=%d",
			t.Relative.Pitch, t.Relative.Yaw, t.Relative.Roll, t.DeltaT, t.DeviceTimeNs)
	case xrone.EventDiagnostics:
		log.Printf("diagnostics: %+v", evt.Stream)
	case xrone.EventControlInbound:
		log.Printf("control inbound: %+v", evt.Control)
	}
}
