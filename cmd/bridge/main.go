// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// bridge runs a pair of glasses and republishes pose and lifecycle
// events over MQTT, a websocket, and a small JSON HTTP API, the way
// other subsystems in this codebase consume sensor data over MQTT
// rather than linking against the sensor driver directly.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/xrone-go"
	"github.com/relabs-tech/xrone-go/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

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
		xrone.WithCalibrationTarget(cfg.Pose.CalibrationTarget),
		xrone.WithComplementaryAlpha(cfg.Pose.ComplementaryAlpha),
		xrone.WithSmoothing(cfg.Pose.SmootherMinCutoff, cfg.Pose.SmootherBeta),
	)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer client.Stop()

	if cfg.Pose.Smoothed {
		client.SetPoseDataMode(xrone.PoseDataSmooth)
	}

	mqttOpts := mqtt.NewClientOptions().
		AddBroker(cfg.Bridge.MQTTBroker).
		SetClientID("xrone-bridge")
	mqttClient := mqtt.NewClient(mqttOpts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("bridge: MQTT connect error: %v", token.Error())
	}
	log.Printf("bridge: connected to MQTT broker at %s", cfg.Bridge.MQTTBroker)

	hub := newHub()

	if _, err := client.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	go pump(client, mqttClient, cfg.Bridge.TopicPose, hub)

	http.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(client.State()); err != nil {
			log.Printf("bridge: state JSON encode error: %v", err)
		}
	})
	http.HandleFunc("/api/pose", func(w http.ResponseWriter, r *http.Request) {
		sample, ok := hub.latest()
		if !ok {
			http.Error(w, "no pose data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sample); err != nil {
			log.Printf("bridge: pose JSON encode error: %v", err)
		}
	})
	http.HandleFunc("/ws/pose", hub.serveWS)

	log.Printf("bridge: listening on %s", cfg.Bridge.ListenAddr)
	if err := http.ListenAndServe(cfg.Bridge.ListenAddr, nil); err != nil {
		log.Fatalf("bridge: http server error: %v", err)
	}
}

func pump(client *xrone.Client, mqttClient mqtt.Client, topic string, hub *hub) {
	for evt := range client.Events() {
		switch evt.Kind {
		case xrone.EventTrackingSample:
			hub.setLatest(evt.Tracking)
			payload, err := json.Marshal(evt.Tracking)
			if err != nil {
				log.Printf("bridge: pose marshal error: %v", err)
				continue
			}
			mqttClient.Publish(topic, 0, false, payload)
		case xrone.EventStateChanged:
			log.Printf("bridge: state: lifecycle=%v bias=%v", evt.State.Lifecycle, evt.State.Bias)
		}
	}
}

// hub fans the latest tracking sample out to connected websocket
// clients and to the JSON poll endpoint.
type hub struct {
	mu      sync.RWMutex
	sample  xrone.TrackingSample
	have    bool
	clients map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *hub) latest() (xrone.TrackingSample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sample, h.have
}

func (h *hub) setLatest(sample xrone.TrackingSample) {
	h.mu.Lock()
	h.sample = sample
	h.have = true
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.WriteJSON(sample); err != nil {
			h.remove(c)
		}
	}
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("bridge: websocket upgrade error: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
