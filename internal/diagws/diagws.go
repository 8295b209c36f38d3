// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package diagws serves a read-only websocket feed of dome-tracking
// diagnostics: regime transitions, applied corrections and encoder
// samples, for external observability tooling.
package diagws

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/dome-tracker/internal/encoder"
	"github.com/relabs-tech/dome-tracker/internal/regime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is one diagnostics message pushed to every connected client.
type Event struct {
	Type      string               `json:"type"` // "regime", "correction", "encoder"
	At        time.Time            `json:"at"`
	Regime    *regime.DiagnosticInfo `json:"regime,omitempty"`
	Encoder   *encoder.Sample        `json:"encoder,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// Hub fans diagnostics events out to every connected websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan Event)}
}

// Publish fans ev out to every currently connected client, dropping
// the event for any client whose outbound buffer is full rather than
// blocking the publisher.
func (h *Hub) Publish(ev Event) {
	ev.At = time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			log.Printf("diagws: dropping event for slow client")
		}
	}
}

// ServeHTTP upgrades the connection and streams published events to it
// until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("diagws: upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := make(chan Event, 32)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		close(ch)
	}()

	go h.drainClientReads(conn)

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// drainClientReads discards any messages a client sends, detecting
// disconnects by watching for a read error.
func (h *Hub) drainClientReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("diagws: websocket error: %v", err)
			}
			conn.Close()
			return
		}
	}
}
