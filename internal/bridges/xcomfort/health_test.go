package xcomfort

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestNewHealthReporter_Defaults(t *testing.T) {
	hr := NewHealthReporter(HealthReporterConfig{BridgeID: "b1"})

	if hr.interval != 30*time.Second {
		t.Errorf("default interval = %v, want 30s", hr.interval)
	}
	if hr.Topic() != "xcomfort/health/b1" {
		t.Errorf("Topic() = %q", hr.Topic())
	}
	if err := hr.PublishNow(); err != nil {
		t.Errorf("PublishNow() without publisher error = %v", err)
	}
}

func TestHealthReporter_Status(t *testing.T) {
	loaded := Stats{Loaded: true, Devices: 5, Components: 1, Rooms: 1, Scenes: 1}

	tests := []struct {
		name       string
		connected  bool
		stats      Stats
		wantStatus HealthStatus
		wantReason string
	}{
		{"healthy", true, loaded, HealthHealthy, ""},
		{"no snapshot", true, Stats{}, HealthDegraded, "waiting for snapshot"},
		{"broker down", false, loaded, HealthDegraded, "MQTT disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := NewMockMQTTClient()
			pub.setConnected(tt.connected)
			stats := tt.stats
			hr := NewHealthReporter(HealthReporterConfig{
				BridgeID:  "b1",
				Version:   "1.2.0",
				Publisher: pub,
				Stats:     func() Stats { return stats },
			})

			if err := hr.PublishNow(); err != nil {
				t.Fatalf("PublishNow() error = %v", err)
			}
			msgs := pub.PublishedOn(hr.Topic())
			if len(msgs) != 1 {
				t.Fatalf("published %d messages, want 1", len(msgs))
			}
			if msgs[0].QoS != 1 || !msgs[0].Retained {
				t.Errorf("qos = %d retained = %v, want 1 retained", msgs[0].QoS, msgs[0].Retained)
			}

			var health HealthMessage
			if err := json.Unmarshal(msgs[0].Payload, &health); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if health.Status != tt.wantStatus || health.Reason != tt.wantReason {
				t.Errorf("status = %q (%q), want %q (%q)", health.Status, health.Reason, tt.wantStatus, tt.wantReason)
			}
			if health.Bridge != "b1" || health.Version != "1.2.0" {
				t.Errorf("identity = %q/%q", health.Bridge, health.Version)
			}
			if health.Devices != stats.Devices || health.SnapshotLoaded != stats.Loaded {
				t.Errorf("counts = %+v, want %+v", health, stats)
			}
		})
	}
}

func TestHealthReporter_StopPublishesStopping(t *testing.T) {
	pub := NewMockMQTTClient()
	hr := NewHealthReporter(HealthReporterConfig{BridgeID: "b1", Interval: time.Hour, Publisher: pub})

	if err := hr.PublishStarting(); err != nil {
		t.Fatalf("PublishStarting() error = %v", err)
	}
	hr.Start(testContext(t))
	hr.Stop()
	hr.Stop()

	msgs := pub.PublishedOn(hr.Topic())
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want starting and stopping", len(msgs))
	}
	want := []HealthStatus{HealthStarting, HealthStopping}
	for i, m := range msgs {
		var health HealthMessage
		if err := json.Unmarshal(m.Payload, &health); err != nil {
			t.Fatal(err)
		}
		if health.Status != want[i] {
			t.Errorf("message %d status = %q, want %q", i, health.Status, want[i])
		}
	}
}

func TestHealthReporter_PeriodicPublish(t *testing.T) {
	pub := NewMockMQTTClient()
	hr := NewHealthReporter(HealthReporterConfig{BridgeID: "b1", Interval: 10 * time.Millisecond, Publisher: pub})
	hr.Start(testContext(t))
	defer hr.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.PublishedOn(hr.Topic())) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("health was not published periodically")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBridge_Health(t *testing.T) {
	f := newBridgeFixture(t, nil)

	if h := f.bridge.Health(); h.Status != HealthDegraded || h.SnapshotLoaded {
		t.Errorf("before snapshot = %+v, want degraded", h)
	}

	f.loadSnapshot(t)
	h := f.bridge.Health()
	if h.Status != HealthHealthy || !h.SnapshotLoaded {
		t.Fatalf("after snapshot = %+v, want healthy", h)
	}
	if h.Devices != 5 || h.Components != 1 || h.Rooms != 1 || h.Scenes != 1 {
		t.Errorf("counts = %+v", h)
	}
}

// testContext mirrors testing.T.Context (Go 1.24+): a context cancelled
// when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
