// Package gateway exposes the analysis service over HTTP and streams
// completed reports to UI clients over WebSocket.
package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/psureshmagadi17/stock-signal-vision/internal/metrics"
	"github.com/psureshmagadi17/stock-signal-vision/internal/model"
)

// Hub manages connected WebSocket clients and fans completed reports out
// to all of them.
type Hub struct {
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty hub. Metrics may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		metrics: m,
		clients: make(map[*Client]bool),
	}
}

// Register attaches an upgraded connection and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.gaugeClients(count)

	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.writePump()
	go client.readPump()
}

// Broadcast sends a completed report to every connected client. Slow
// clients are skipped rather than blocking the pipeline.
func (h *Hub) Broadcast(report *model.AnalysisReport) {
	envelope, err := json.Marshal(map[string]any{
		"type":   "report",
		"report": report,
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[gateway] marshal report for %s: %v", report.Symbol, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
		}
	}
}

// RemoveClient unregisters a client and closes its send channel.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	h.gaugeClients(count)
	close(c.send)
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) gaugeClients(n int) {
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(n))
	}
}
