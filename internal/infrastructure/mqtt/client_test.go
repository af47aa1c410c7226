package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "xcomfort-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"FeedSnapshot", topics.FeedSnapshot("hub"), "xcomfort/feed/hub/snapshot"},
		{"FeedUpdate", topics.FeedUpdate("hub"), "xcomfort/feed/hub/update"},
		{"FeedRequest", topics.FeedRequest("hub"), "xcomfort/feed/hub/request"},
		{"DeviceState", topics.DeviceState(12), "xcomfort/state/device/12"},
		{"DeviceEvent", topics.DeviceEvent(31), "xcomfort/event/device/31"},
		{"RoomState", topics.RoomState(3), "xcomfort/state/room/3"},
		{"HeaterPower", topics.HeaterPower(20), "xcomfort/state/heater/20/power"},
		{"DeviceCommand", topics.DeviceCommand(7), "xcomfort/command/device/7"},
		{"AllDeviceCommands", topics.AllDeviceCommands(), "xcomfort/command/device/+"},
		{"DeviceAck", topics.DeviceAck(7), "xcomfort/ack/device/7"},
		{"BridgeHealth", topics.BridgeHealth("hub"), "xcomfort/health/hub"},
		{"SystemStatus", topics.SystemStatus(), "xcomfort/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestParseDeviceID(t *testing.T) {
	tests := []struct {
		topic   string
		want    int
		wantErr bool
	}{
		{"xcomfort/command/device/12", 12, false},
		{"xcomfort/ack/device/1", 1, false},
		{"xcomfort/command/device/", 0, true},
		{"xcomfort/command/device/abc", 0, true},
		{"xcomfort/command/device/-4", 0, true},
		{"nodelimiter", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, err := ParseDeviceID(tt.topic)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDeviceID(%q) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTopic) {
				t.Errorf("error = %v, want ErrInvalidTopic", err)
			}
			if got != tt.want {
				t.Errorf("ParseDeviceID(%q) = %d, want %d", tt.topic, got, tt.want)
			}
		})
	}
}

func TestStatusPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	data := statusPayload(StatusOffline, "core-1", "graceful_shutdown", at)

	var msg StatusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if msg.Status != StatusOffline || msg.ClientID != "core-1" || msg.Reason != "graceful_shutdown" {
		t.Errorf("message = %+v", msg)
	}
	if msg.Timestamp != "2026-03-01T11:00:00Z" {
		t.Errorf("Timestamp = %q, want UTC RFC3339", msg.Timestamp)
	}

	online := statusPayload(StatusOnline, "core-1", "", at)
	if strings.Contains(string(online), "reason") {
		t.Errorf("online payload should omit reason: %s", online)
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := brokerURL(cfg); got != "tcp://127.0.0.1:1883" {
		t.Errorf("brokerURL() = %q", got)
	}
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := brokerURL(cfg); got != "ssl://127.0.0.1:8883" {
		t.Errorf("brokerURL() with TLS = %q", got)
	}
}

func TestDisconnectedClientValidation(t *testing.T) {
	c := newClient(testConfig())
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("a/b", nil, 3, false), ErrInvalidQoS},
		{"publish too large", c.Publish("a/b", make([]byte, maxPayloadSize+1), 1, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("a/b", []byte("x"), 1, false), ErrNotConnected},
		{"publish json disconnected", c.PublishJSON("a/b", map[string]int{"a": 1}, 1, true), ErrNotConnected},
		{"publish json unmarshalable", c.PublishJSON("a/b", make(chan int), 1, true), ErrPublishFailed},
		{"subscribe empty topic", c.Subscribe("", 1, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("a/b", 5, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("a/b", 1, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("a/b", 1, noop), ErrNotConnected},
		{"unsubscribe empty topic", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", c.Unsubscribe("a/b"), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.SubscriptionCount() != 0 || c.HasSubscription("a/b") {
		t.Error("failed subscriptions must not be tracked")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelledContext(t *testing.T) {
	c := newClient(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() = %v, want context.Canceled", err)
	}
}

func TestCloseNil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestDispatchRecoversAndLogs(t *testing.T) {
	c := newClient(testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "a/b", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "a/b", nil)
	c.dispatch(func(string, []byte) error { return nil }, "a/b", nil)

	if len(logger.errors) != 1 || len(logger.warns) != 1 {
		t.Errorf("errors = %v warns = %v, want one of each", logger.errors, logger.warns)
	}
}

func TestDispatchWithoutLogger(t *testing.T) {
	c := newClient(testConfig())
	c.dispatch(func(string, []byte) error { panic("boom") }, "a/b", nil)
}

func TestConnectionCallbacks(t *testing.T) {
	c := newClient(testConfig())
	var lost error
	c.SetOnDisconnect(func(err error) { lost = err })

	c.setConnected(true)
	c.handleDisconnect(errors.New("link down"))

	if lost == nil || lost.Error() != "link down" {
		t.Errorf("disconnect callback got %v", lost)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
}
