package xcomfort

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/audit"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/xcomfort-core/internal/power"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu         sync.Mutex
	published  []mockPublish
	handlers   map[string]mqtt.MessageHandler
	connected  bool
	publishErr error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// SimulateMessage delivers payload to the handler whose filter matches topic.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) error {
	m.mu.Lock()
	var handler mqtt.MessageHandler
	for filter, h := range m.handlers {
		if topicMatches(filter, topic) {
			handler = h
			break
		}
	}
	m.mu.Unlock()
	if handler == nil {
		return nil
	}
	return handler(topic, payload)
}

// PublishedOn returns every publish to topic, oldest first.
func (m *MockMQTTClient) PublishedOn(topic string) []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockPublish
	for _, p := range m.published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

func topicMatches(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	for i, f := range fp {
		if f == "#" {
			return true
		}
		if i >= len(tp) || (f != "+" && f != tp[i]) {
			return false
		}
	}
	return len(fp) == len(tp)
}

// memoryAudit records command log entries.
type memoryAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *memoryAudit) Create(_ context.Context, e *audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return nil
}

func (a *memoryAudit) List(context.Context, audit.Filter) (*audit.ListResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &audit.ListResult{Entries: append([]audit.Entry(nil), a.entries...), Total: len(a.entries)}, nil
}

func (a *memoryAudit) all() []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Entry(nil), a.entries...)
}

// memoryStore is an in-memory power.Store.
type memoryStore struct {
	mu     sync.Mutex
	totals map[power.Key]float64
	saves  int
}

func (s *memoryStore) LoadTotals(context.Context) (map[power.Key]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[power.Key]float64, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) SaveTotals(_ context.Context, totals map[power.Key]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.totals = totals
	return nil
}

const testBridgeID = "b1"

const testSnapshot = `{
  "bridge": {"id": "b1", "name": "Hytta", "bridgeModel": "CI", "firmwareVersion": "2.1"},
  "devices": [
    {"deviceId": 10, "name": "Kitchen", "devType": 101, "dimmable": true, "switch": true, "dimmvalue": 40},
    {"deviceId": 20, "name": "Varmekabel Bad", "devType": 440},
    {"deviceId": 30, "name": "RC Touch", "devType": 450, "tempRoom": 4},
    {"deviceId": 40, "name": "Blind", "devType": 102, "compId": 7, "shRuntime": 1},
    {"deviceId": 50, "name": "Plug", "devType": 100, "usage": 1}
  ],
  "comps": [{"compId": 7, "name": "Blind actuator", "compType": 86}],
  "rooms": [{"roomId": 4, "name": "Bad"}],
  "scenes": [{"sceneId": 3, "name": "Evening"}]
}`

type bridgeFixture struct {
	bridge *Bridge
	mqtt   *MockMQTTClient
	audit  *memoryAudit
	store  *memoryStore
}

func newBridgeFixture(t *testing.T, mutate func(*Options)) *bridgeFixture {
	t.Helper()
	f := &bridgeFixture{
		mqtt:  NewMockMQTTClient(),
		audit: &memoryAudit{},
		store: &memoryStore{},
	}
	opts := Options{
		Bridge: config.BridgeConfig{ID: testBridgeID, HealthInterval: 3600},
		Power: config.PowerConfig{
			AddHeaterPowerSensors: true,
			ThresholdW:            0.5,
			ZeroWindowSeconds:     20,
			TickIntervalSeconds:   3600,
		},
		Version:     "test",
		MQTT:        f.mqtt,
		Audit:       f.audit,
		EnergyStore: f.store,
	}
	if mutate != nil {
		mutate(&opts)
	}
	b, err := NewBridge(opts)
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(b.Stop)
	f.bridge = b
	return f
}

// flush waits until everything queued so far has run on the loop.
func (f *bridgeFixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.bridge.call(ctx, func() error { return nil }); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func (f *bridgeFixture) loadSnapshot(t *testing.T) {
	t.Helper()
	if err := f.mqtt.SimulateMessage(mqtt.Topics{}.FeedSnapshot(testBridgeID), []byte(testSnapshot)); err != nil {
		t.Fatalf("snapshot handler error = %v", err)
	}
	f.flush(t)
}

func (f *bridgeFixture) update(t *testing.T, kind UpdateKind, id int, payload map[string]any) {
	t.Helper()
	body, err := json.Marshal(FeedUpdate{Kind: kind, ID: id, Payload: payload})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.mqtt.SimulateMessage(mqtt.Topics{}.FeedUpdate(testBridgeID), body); err != nil {
		t.Fatalf("update handler error = %v", err)
	}
	f.flush(t)
}

func decodeJSON(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return out
}
