package xcomfort

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/audit"
	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/xcomfort-core/internal/power"
	"github.com/nerrad567/xcomfort-core/internal/telemetry"
)

// Bridge operation constants.
const (
	// commandTimeout bounds a command received over MQTT.
	commandTimeout = 5 * time.Second

	// teardownTimeout bounds the final registry teardown on Stop.
	teardownTimeout = 5 * time.Second

	// defaultTickInterval is used when the power config leaves it unset.
	defaultTickInterval = 20 * time.Second
)

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the part of the MQTT client the bridge uses.
// *mqtt.Client implements it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// Observer receives bridge counters. *telemetry.Metrics implements it.
type Observer interface {
	ObserveFeed(kind string)
	ObserveRequest(msgType string, err error)
	ObserveCommand(command string, err error)
	SetBridgeUp(up bool)
}

type noopObserver struct{}

func (noopObserver) ObserveFeed(string)           {}
func (noopObserver) ObserveRequest(string, error) {}
func (noopObserver) ObserveCommand(string, error) {}
func (noopObserver) SetBridgeUp(bool)             {}

// StateRecorder mirrors emitted state elsewhere. *telemetry.Recorder
// implements it.
type StateRecorder interface {
	AttachDevices(devices []device.Device)
	AttachRooms(rooms []*device.Room)
	AttachMonitor(src telemetry.ReadingSource)
	Close()
}

// Options holds configuration for creating a bridge.
type Options struct {
	Bridge config.BridgeConfig
	Power  config.PowerConfig

	// QoS is used for every publish and subscription. Defaults to 1.
	QoS byte

	// Version is reported in health messages.
	Version string

	// MQTT is required.
	MQTT MQTTClient

	// Optional collaborators.
	Logger      Logger
	Metrics     Observer
	Recorder    StateRecorder
	Audit       audit.Repository
	EnergyStore power.Store

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Bridge owns the device registry built from the bridge snapshot and
// keeps it in step with the feed.
type Bridge struct {
	cfg      config.BridgeConfig
	powerCfg config.PowerConfig
	qos      byte
	topics   mqtt.Topics

	mqtt      MQTTClient
	sender    device.Sender
	health    *HealthReporter
	publisher *publisher
	metrics   Observer
	recorder  StateRecorder
	audit     audit.Repository
	store     power.Store
	logger    Logger
	now       func() time.Time

	// mu guards the fields swapped when a snapshot loads.
	mu       sync.RWMutex
	registry *device.Registry
	monitor  *power.Monitor
	info     device.BridgeInfo
	loadedAt time.Time
	restored map[power.Key]float64

	ready     chan struct{}
	readyOnce sync.Once

	// Event loop and shutdown coordination.
	queue     chan func()
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	running   atomic.Bool
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// NewBridge creates a bridge. Call Start to begin operation.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Bridge.ID == "" {
		return nil, fmt.Errorf("bridge id is required")
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = noopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.QoS == 0 {
		opts.QoS = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:       opts.Bridge,
		powerCfg:  opts.Power,
		qos:       opts.QoS,
		mqtt:      opts.MQTT,
		metrics:   opts.Metrics,
		recorder:  opts.Recorder,
		audit:     opts.Audit,
		store:     opts.EnergyStore,
		logger:    opts.Logger,
		now:       opts.Now,
		restored:  make(map[power.Key]float64),
		ready:     make(chan struct{}),
		queue:     make(chan func(), loopQueueSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: cancel,
	}
	b.sender = &feedSender{
		client:  opts.MQTT,
		topic:   b.topics.FeedRequest(opts.Bridge.ID),
		qos:     opts.QoS,
		metrics: opts.Metrics,
	}
	b.publisher = newPublisher(opts.MQTT, opts.QoS, opts.Logger, opts.Now)
	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.Bridge.ID,
		Version:   opts.Version,
		Interval:  opts.Bridge.HealthPeriod(),
		Publisher: opts.MQTT,
		Stats:     b.stats,
	})
	b.health.SetLogger(opts.Logger)

	return b, nil
}

// Start restores energy totals, starts the event loop and subscribes to
// the feed and command topics.
func (b *Bridge) Start(ctx context.Context) error {
	var err error
	b.startOnce.Do(func() {
		err = b.start(ctx)
	})
	return err
}

func (b *Bridge) start(ctx context.Context) error {
	if b.store != nil {
		totals, err := b.store.LoadTotals(ctx)
		if err != nil {
			b.logger.Warn("restoring energy totals failed", "error", err)
		} else {
			b.mu.Lock()
			b.restored = totals
			b.mu.Unlock()
			b.logger.Info("energy totals restored", "sources", len(totals))
		}
	}

	if err := b.health.PublishStarting(); err != nil {
		b.logger.Warn("failed to publish starting status", "error", err)
	}

	b.running.Store(true)
	b.wg.Add(2)
	go b.run()
	go b.tickLoop()

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{b.topics.FeedSnapshot(b.cfg.ID), b.handleSnapshot},
		{b.topics.FeedUpdate(b.cfg.ID), b.handleUpdate},
		{b.topics.AllDeviceCommands(), b.handleCommand},
	}
	for _, s := range subs {
		if err := b.mqtt.Subscribe(s.topic, b.qos, s.handler); err != nil {
			return fmt.Errorf("subscribe to %s: %w", s.topic, err)
		}
		b.logger.Info("subscribed", "topic", s.topic)
	}

	b.health.Start(ctx)
	b.logger.Info("bridge started", "bridge_id", b.cfg.ID)
	return nil
}

// Stop tears down the registry and stops the loop. Safe to call more
// than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.health.Stop()

		if b.running.Load() {
			ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
			defer cancel()
			if err := b.call(ctx, func() error { b.teardown(); return nil }); err != nil {
				b.logger.Warn("bridge teardown incomplete", "error", err)
			}
		} else {
			b.teardown()
		}

		close(b.done)
		b.wg.Wait()
		b.metrics.SetBridgeUp(false)
		b.logger.Info("bridge stopped")
	})
}

func (b *Bridge) tickLoop() {
	defer b.wg.Done()

	interval := b.powerCfg.TickInterval()
	if interval <= 0 {
		interval = defaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.post(b.tick)
		}
	}
}

func (b *Bridge) tick() {
	if m := b.currentMonitor(); m != nil {
		m.Tick()
	}
}

// handleSnapshot decodes a bulk snapshot and hands it to the loop.
func (b *Bridge) handleSnapshot(_ string, payload []byte) error {
	b.metrics.ObserveFeed("snapshot")
	snap, err := decodeSnapshotDocument(payload)
	if err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	b.post(func() { b.applySnapshot(snap) })
	return nil
}

// handleUpdate decodes one update, or a batch of updates, and hands them
// to the loop.
func (b *Bridge) handleUpdate(_ string, payload []byte) error {
	var updates []FeedUpdate
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &updates); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
		}
	} else {
		var u FeedUpdate
		if err := json.Unmarshal(trimmed, &u); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
		}
		updates = append(updates, u)
	}

	b.post(func() {
		for _, u := range updates {
			b.metrics.ObserveFeed(string(u.Kind))
			if err := b.applyUpdate(u); err != nil {
				b.logger.Debug("feed update dropped", "kind", u.Kind, "id", u.ID, "reason", err)
			}
		}
	})
	return nil
}

// applySnapshot replaces the registry. Runs on the loop.
func (b *Bridge) applySnapshot(snap *device.Snapshot) {
	initial := b.teardown()

	reg := device.NewRegistry()
	reg.SetLogger(b.logger)
	for _, rec := range snap.Components {
		reg.AddComponent(device.NewComponent(rec))
	}
	for _, rec := range snap.Rooms {
		reg.AddRoom(device.NewRoom(rec, b.sender, b.logger))
	}
	opts := device.Options{Directory: reg, Sender: b.sender, Logger: b.logger}
	for _, rec := range snap.Devices {
		reg.AddDevice(device.New(rec, opts))
	}
	for _, rec := range snap.Scenes {
		reg.AddScene(device.NewScene(rec, b.sender))
	}
	reg.ResolveAll()

	// Snapshot records carry the current values alongside the metadata.
	for _, rec := range snap.Components {
		if c, ok := reg.Component(rec.ID); ok {
			c.HandleState(rec.Payload)
		}
	}
	for _, rec := range snap.Rooms {
		if room, ok := reg.Room(rec.ID); ok {
			room.HandleState(rec.Payload)
		}
	}
	for _, rec := range snap.Devices {
		if d, ok := reg.Device(rec.ID); ok {
			d.HandleState(rec.Payload)
		}
	}

	monitor := power.NewMonitor(b.monitorConfig(), reg, power.Options{
		Logger:  b.logger,
		Now:     b.now,
		Initial: initial,
	})

	b.publisher.attach(reg, monitor)
	if b.recorder != nil {
		b.recorder.AttachDevices(reg.Devices())
		b.recorder.AttachRooms(reg.Rooms())
		b.recorder.AttachMonitor(monitor)
	}

	b.mu.Lock()
	b.registry = reg
	b.monitor = monitor
	b.info = snap.Bridge
	b.loadedAt = b.now()
	b.mu.Unlock()

	b.readyOnce.Do(func() { close(b.ready) })
	b.metrics.SetBridgeUp(true)

	devices, components, rooms, scenes := reg.Counts()
	b.logger.Info("snapshot loaded",
		"bridge", snap.Bridge.Name,
		"devices", devices,
		"components", components,
		"rooms", rooms,
		"scenes", scenes)
	if err := b.health.PublishNow(); err != nil {
		b.logger.Warn("failed to publish health", "error", err)
	}
}

// teardown releases the current registry and monitor and returns the
// energy totals to carry into the next monitor. Runs on the loop.
func (b *Bridge) teardown() map[power.Key]float64 {
	b.publisher.detach()
	if b.recorder != nil {
		b.recorder.Close()
	}

	b.mu.Lock()
	reg, monitor := b.registry, b.monitor
	totals := b.restored
	if monitor != nil {
		totals = monitor.Totals()
		b.restored = totals
	}
	b.registry, b.monitor = nil, nil
	b.mu.Unlock()

	if monitor != nil {
		monitor.Close()
	}
	if reg != nil {
		reg.Close()
	}
	return totals
}

// applyUpdate routes one update to its target. Runs on the loop.
func (b *Bridge) applyUpdate(u FeedUpdate) error {
	reg := b.currentRegistry()
	if reg == nil {
		return ErrNotReady
	}
	if u.ID <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidUpdate, u.ID)
	}

	switch u.Kind {
	case UpdateDevice:
		if d, ok := reg.Device(u.ID); ok {
			d.HandleState(u.Payload)
			return nil
		}
		// RC Touch units report their button as a virtual device.
		if ct, ok := reg.VirtualButtonOwner(u.ID); ok {
			ct.HandleButtonState(u.Payload)
			return nil
		}
		return fmt.Errorf("%w: %d", device.ErrDeviceNotFound, u.ID)

	case UpdateComponent:
		c, ok := reg.Component(u.ID)
		if !ok {
			return fmt.Errorf("%w: %d", device.ErrComponentNotFound, u.ID)
		}
		c.HandleState(u.Payload)

	case UpdateRoom:
		room, ok := reg.Room(u.ID)
		if !ok {
			return fmt.Errorf("%w: %d", device.ErrRoomNotFound, u.ID)
		}
		room.HandleState(u.Payload)

	case UpdateScene:
		scene, ok := reg.Scene(u.ID)
		if !ok {
			return fmt.Errorf("%w: %d", device.ErrSceneNotFound, u.ID)
		}
		scene.Update(u.Payload)

	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidUpdate, u.Kind)
	}
	return nil
}

func (b *Bridge) monitorConfig() power.Config {
	p := b.powerCfg
	return power.Config{
		HeaterPower:     p.AddHeaterPowerSensors,
		RoomPower:       p.AddRoomPowerSensors,
		LightPower:      p.AddLightPowerSensors,
		StaleProtection: p.HeaterStaleProtection,
		ThresholdW:      p.ThresholdW,
		ZeroWindow:      p.ZeroWindow(),
		HeaterRoomMap:   p.HeaterRoomMap,
	}
}

func (b *Bridge) currentRegistry() *device.Registry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.registry
}

func (b *Bridge) currentMonitor() *power.Monitor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.monitor
}

func (b *Bridge) stats() Stats {
	b.mu.RLock()
	reg := b.registry
	b.mu.RUnlock()
	if reg == nil {
		return Stats{}
	}
	s := Stats{Loaded: true}
	s.Devices, s.Components, s.Rooms, s.Scenes = reg.Counts()
	return s
}

// Registry returns the current registry. The second result is false until
// the first snapshot has loaded.
func (b *Bridge) Registry() (*device.Registry, bool) {
	reg := b.currentRegistry()
	return reg, reg != nil
}

// Monitor returns the current power monitor.
func (b *Bridge) Monitor() (*power.Monitor, bool) {
	m := b.currentMonitor()
	return m, m != nil
}

// Info returns the bridge identity from the last snapshot and when it
// loaded.
func (b *Bridge) Info() (device.BridgeInfo, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info, b.loadedAt
}

// Ready reports whether a snapshot has loaded.
func (b *Bridge) Ready() bool {
	select {
	case <-b.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the first snapshot loads or ctx is done.
func (b *Bridge) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for snapshot: %w", ctx.Err())
	}
}

// Totals returns accumulated energy per source. Before the first
// snapshot it returns the totals restored at start.
func (b *Bridge) Totals() map[power.Key]float64 {
	b.mu.RLock()
	monitor, restored := b.monitor, b.restored
	b.mu.RUnlock()
	if monitor != nil {
		return monitor.Totals()
	}
	out := make(map[power.Key]float64, len(restored))
	for k, v := range restored {
		out[k] = v
	}
	return out
}

// HeaterPower returns the corrected power reading of a heater.
func (b *Bridge) HeaterPower(id int) (power.Reading, error) {
	m := b.currentMonitor()
	if m == nil {
		return power.Reading{}, ErrNotReady
	}
	return m.Reading(power.Key{Kind: power.SourceHeater, ID: id})
}

// Subscribe registers fn for state change events. Events are delivered on
// the event loop, so fn must not block.
func (b *Bridge) Subscribe(fn func(Event)) (unsubscribe func()) {
	return b.publisher.subscribe(fn)
}

// Health returns the bridge's current health message.
func (b *Bridge) Health() HealthMessage {
	status, reason := b.health.determineStatus()
	return b.health.Message(status, reason)
}
