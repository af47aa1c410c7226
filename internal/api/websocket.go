package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
)

// WebSocket frame types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	wsSendBufferSize = 256
)

// WSMessage is one frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload selects channels and, optionally, the device, room or
// heater IDs of interest. An empty IDs list admits every ID. Replay asks
// for the current state of the selection right after the response.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
	IDs      []int    `json:"ids,omitempty"`
	Replay   bool     `json:"replay,omitempty"`
}

// Channels a client may subscribe to. They match the bridge event types.
var wsChannels = map[string]struct{}{
	xcomfort.EventDeviceState: {},
	xcomfort.EventRoomState:   {},
	xcomfort.EventHeaterPower: {},
	xcomfort.EventButton:      {},
}

// idFilter admits every ID when nil.
type idFilter map[int]struct{}

func newIDFilter(ids []int) idFilter {
	if len(ids) == 0 {
		return nil
	}
	f := make(idFilter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

func (f idFilter) admits(id int) bool {
	if f == nil {
		return true
	}
	_, ok := f[id]
	return ok
}

// WSClient is one connected WebSocket peer.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn

	sendMu sync.Mutex
	send   chan []byte
	closed bool

	mu   sync.RWMutex
	subs map[string]idFilter
}

func newWSClient(hub *Hub, conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
		subs: make(map[string]idFilter),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket upgrades the connection. The optional query parameters
// pre-subscribe the client:
//
//	?channels=device.state_changed,room.state_changed&ids=10,20
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	channels, err := parseChannels(q.Get("channels"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ids, err := parseIDs(q.Get("ids"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.hub, conn)
	client.subscribe(channels, ids)
	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

func parseChannels(v string) ([]string, error) {
	if v == "" {
		return nil, nil
	}
	var out []string
	for _, ch := range strings.Split(v, ",") {
		ch = strings.TrimSpace(ch)
		if _, ok := wsChannels[ch]; !ok {
			return nil, fmt.Errorf("unknown channel: %s", ch)
		}
		out = append(out, ch)
	}
	return out, nil
}

func parseIDs(v string) ([]int, error) {
	if v == "" {
		return nil, nil
	}
	var out []int
	for _, s := range strings.Split(v, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid id: %q", s)
		}
		out = append(out, id)
	}
	return out, nil
}

// readPump handles inbound frames until the connection fails.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	wait := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(wait)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	//nolint:errcheck // a failed deadline surfaces on the next read
	extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Application frames count as liveness too; some browsers never
		// answer protocol pings.
		//nolint:errcheck // a failed deadline surfaces on the next read
		extend()
		c.handleMessage(data)
	}
}

// writePump drains the send channel and pings on an interval.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // the write below reports a dead connection
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // peer may already be gone
				write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.handleSubscribe(msg)
	case WSTypeUnsubscribe:
		c.handleUnsubscribe(msg)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// decodeSubscription re-decodes the generic payload into its typed form.
func decodeSubscription(msg WSMessage) (WSSubscribePayload, error) {
	var sub WSSubscribePayload
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return sub, err
	}
	err = json.Unmarshal(raw, &sub)
	return sub, err
}

func (c *WSClient) handleSubscribe(msg WSMessage) {
	sub, err := decodeSubscription(msg)
	if err != nil {
		c.sendError(msg.ID, "invalid subscribe payload")
		return
	}
	for _, ch := range sub.Channels {
		if _, ok := wsChannels[ch]; !ok {
			c.sendError(msg.ID, "unknown channel: "+ch)
			return
		}
	}

	c.subscribe(sub.Channels, sub.IDs)
	c.hub.logger.Debug("websocket client subscribed", "channels", sub.Channels, "ids", sub.IDs)
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels})

	if sub.Replay {
		c.replay(sub.Channels)
	}
}

func (c *WSClient) handleUnsubscribe(msg WSMessage) {
	sub, err := decodeSubscription(msg)
	if err != nil {
		c.sendError(msg.ID, "invalid unsubscribe payload")
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		delete(c.subs, ch)
	}
	c.mu.Unlock()

	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
}

// subscribe replaces the ID filter of each named channel.
func (c *WSClient) subscribe(channels []string, ids []int) {
	f := newIDFilter(ids)
	c.mu.Lock()
	for _, ch := range channels {
		c.subs[ch] = f
	}
	c.mu.Unlock()
}

func (c *WSClient) wants(e xcomfort.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.subs[e.Type]
	return ok && f.admits(e.ID)
}

// replay sends the current state of each channel, filtered like live
// events.
func (c *WSClient) replay(channels []string) {
	if c.hub.replay == nil {
		return
	}
	for _, ch := range channels {
		for _, e := range c.hub.replay(ch) {
			if !c.wants(e) {
				continue
			}
			data, err := encodeEvent(e)
			if err != nil {
				continue
			}
			c.hub.count(c.trySend(data))
		}
	}
}

// trySend queues data without blocking. It reports false when the client
// is gone or its buffer is full.
func (c *WSClient) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
