package xcomfort

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/infrastructure/mqtt"
)

// defaultHealthInterval is used when no interval is configured.
const defaultHealthInterval = 30 * time.Second

// Stats is the registry summary included in health messages.
type Stats struct {
	Loaded     bool
	Devices    int
	Components int
	Rooms      int
	Scenes     int
}

// HealthPublisher publishes health messages. Typically the MQTT client.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	BridgeID string
	Version  string

	// Interval is how often to publish. Default: 30 seconds.
	Interval time.Duration

	Publisher HealthPublisher

	// Stats reports the current registry summary. Optional.
	Stats func() Stats
}

// HealthReporter periodically publishes the bridge's health to
// xcomfort/health/{bridge}.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	stats     func() Stats
	topic     string

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	stats := cfg.Stats
	if stats == nil {
		stats = func() Stats { return Stats{} }
	}
	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		stats:     stats,
		topic:     mqtt.Topics{}.BridgeHealth(cfg.BridgeID),
		done:      make(chan struct{}),
		logger:    noopLogger{},
	}
}

// Start begins periodic reporting until ctx is cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		//nolint:errcheck // best effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// Topic returns the health topic.
func (h *HealthReporter) Topic() string { return h.topic }

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if !h.stats().Loaded {
		return HealthDegraded, "waiting for snapshot"
	}
	return HealthHealthy, ""
}

// Message builds the health message for status.
func (h *HealthReporter) Message(status HealthStatus, reason string) HealthMessage {
	s := h.stats()
	return HealthMessage{
		Bridge:         h.bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        h.version,
		UptimeSeconds:  int64(time.Since(h.startTime).Seconds()),
		SnapshotLoaded: s.Loaded,
		Devices:        s.Devices,
		Components:     s.Components,
		Rooms:          s.Rooms,
		Scenes:         s.Scenes,
		Reason:         reason,
	}
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(h.Message(status, reason))
	if err != nil {
		return err
	}
	return h.publisher.Publish(h.topic, payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()
	logger.Error(msg, "error", err)
}
