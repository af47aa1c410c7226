package api

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/logging"
)

// Hub tracks WebSocket clients and fans bridge events out to the ones
// whose subscriptions match.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}

	// replay returns the current state of a channel as events. Set by the
	// server; nil disables replay.
	replay func(channel string) []xcomfort.Event

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// HubStats counts delivered and dropped event frames since start.
type HubStats struct {
	Clients   int    `json:"connected_clients"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client. Only the call that removes it closes the
// send channel, so repeated calls are safe.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		client.closeSend()
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// Broadcast delivers e to every client subscribed to e.Type whose ID
// filter admits e.ID. It never blocks: a client with a full buffer misses
// the frame.
func (h *Hub) Broadcast(e xcomfort.Event) {
	data, err := encodeEvent(e)
	if err != nil {
		h.logger.Error("failed to marshal event", "type", e.Type, "id", e.ID, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(e) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.count(c.trySend(data))
	}
}

func (h *Hub) count(sent bool) {
	if sent {
		h.delivered.Add(1)
	} else {
		h.dropped.Add(1)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns client and frame counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Clients:   h.ClientCount(),
		Delivered: h.delivered.Load(),
		Dropped:   h.dropped.Load(),
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.closeSend()
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// encodeEvent frames a bridge event. The frame timestamp is the time the
// state changed, not the time it was sent.
func encodeEvent(e xcomfort.Event) ([]byte, error) {
	at := e.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: e.Type,
		Timestamp: at.UTC().Format(time.RFC3339),
		Payload:   e,
	})
}
