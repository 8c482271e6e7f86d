// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// xrctl is an interactive control REPL for issuing one-shot commands
// against a pair of glasses: scene mode, display input, brightness,
// dimmer, and the read-only identification queries.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/relabs-tech/xrone-go"
	"github.com/relabs-tech/xrone-go/internal/config"
)

const prompt = "xrctl> "

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	client, err := xrone.Dial(
		xrone.WithHost(cfg.Device.Host),
		xrone.WithPorts(cfg.Device.ControlPort, cfg.Device.StreamPort),
	)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer client.Stop()

	if _, err := client.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("xrctl ready. Commands: id, version, dsp, config, scene <n>, input <n>, brightness <0-9>, dimmer <on|off>, zero, recal, quit")
	for {
		cmd, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted || err == io.EOF {
			return
		}
		if err != nil {
			log.Printf("prompt error: %v", err)
			return
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		line.AppendHistory(cmd)

		if quit := dispatch(client, cmd); quit {
			return
		}
	}
}

func dispatch(client *xrone.Client, cmd string) (quit bool) {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case "quit", "exit":
		return true
	case "id":
		reply(client.GetID())
	case "version":
		reply(client.GetSoftwareVersion())
	case "dsp":
		reply(client.GetDSPVersion())
	case "config":
		reply(client.GetConfigRaw())
	case "zero":
		reportErr(client.ZeroView())
	case "recal":
		reportErr(client.Recalibrate())
	case "scene":
		withInt(fields, client.SetSceneMode)
	case "input":
		withInt(fields, client.SetDisplayInputMode)
	case "brightness":
		withInt(fields, client.SetBrightness)
	case "dimmer":
		if len(fields) < 2 {
			fmt.Println("usage: dimmer <on|off>")
			return false
		}
		reportErr(client.SetDimmer(fields[1] == "on"))
	default:
		fmt.Printf("unknown command: %s\n", fields[0])
	}
	return false
}

func withInt(fields []string, fn func(int32) error) {
	if len(fields) < 2 {
		fmt.Println("usage: <command> <value>")
		return
	}
	v, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Printf("invalid integer %q: %v\n", fields[1], err)
		return
	}
	reportErr(fn(int32(v)))
}

func reply(s string, err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(s)
}

func reportErr(err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
}
