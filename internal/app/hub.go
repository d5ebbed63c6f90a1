// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/log"
	"github.com/relabs-tech/mobility_mapper/internal/pipeline"
	"github.com/relabs-tech/mobility_mapper/internal/position"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Hub pushes session events to websocket clients. A client that falls
// behind loses events rather than slowing the session down.
type Hub struct {
	pipeline.NopSink

	// SampleEvery sends one in every n corrected samples. 0 or 1 sends all.
	SampleEvery int

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	samples int
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(sampleEvery int) *Hub {
	return &Hub{SampleEvery: sampleEvery, clients: make(map[*wsClient]struct{})}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Warnf("web: %s event marshal error: %v", ev.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

func (h *Hub) OnSample(cs position.CorrectedSample) {
	h.mu.Lock()
	h.samples++
	skip := h.SampleEvery > 1 && (h.samples-1)%h.SampleEvery != 0
	h.mu.Unlock()
	if !skip {
		h.broadcast(Event{Type: EventSample, Data: cs})
	}
}

func (h *Hub) OnFeature(fw features.FeatureWindow) { h.broadcast(Event{Type: EventFeature, Data: fw}) }
func (h *Hub) OnZone(z zones.Zone)                 { h.broadcast(Event{Type: EventZone, Data: z}) }

func (h *Hub) OnSummary(sum pipeline.Summary) {
	if sum.Gait != nil {
		h.broadcast(Event{Type: EventGait, Data: sum.Gait})
	}
	h.broadcast(Event{Type: EventSummary, Data: sum})
}

// ServeWS upgrades the request and streams events until the client goes
// away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("web: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientSend)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Debugf("web: websocket client %s connected", conn.RemoteAddr())

	done := make(chan struct{})
	go func() {
		defer close(done)
		// reads only detect the close; clients send nothing
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
		log.Debugf("web: websocket client %s disconnected", conn.RemoteAddr())
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
