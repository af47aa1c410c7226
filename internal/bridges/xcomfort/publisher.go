package xcomfort

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/xcomfort-core/internal/power"
)

// Event types delivered to Subscribe listeners.
const (
	EventDeviceState = "device.state_changed"
	EventRoomState   = "room.state_changed"
	EventHeaterPower = "heater.power_changed"
	EventButton      = "device.button_event"
)

// Event is one state change, as pushed to live subscribers.
type Event struct {
	Type      string    `json:"type"`
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// publisher mirrors emitted state onto retained MQTT topics and fans it
// out to event listeners. Its callbacks run on the event loop.
type publisher struct {
	client MQTTClient
	qos    byte
	topics mqtt.Topics
	logger Logger
	now    func() time.Time

	// cache holds the last published state body per topic for change
	// detection.
	cacheMu sync.Mutex
	cache   map[string][]byte

	unsubs []func()

	listenersMu sync.RWMutex
	listeners   map[int]func(Event)
	nextID      int
}

func newPublisher(client MQTTClient, qos byte, logger Logger, now func() time.Time) *publisher {
	return &publisher{
		client:    client,
		qos:       qos,
		logger:    logger,
		now:       now,
		cache:     make(map[string][]byte),
		listeners: make(map[int]func(Event)),
	}
}

// attach subscribes to every device, room and heater reading.
func (p *publisher) attach(reg *device.Registry, monitor *power.Monitor) {
	for _, d := range reg.Devices() {
		p.unsubs = append(p.unsubs, d.SubscribeState(func(s device.State) { p.publishDevice(d, s) }))

		switch t := d.(type) {
		case *device.Rocker:
			p.unsubs = append(p.unsubs, subscribeLive(t.SubscribePress, func(on bool) {
				p.publishButton(t.ID(), t, t.Event(on))
			}))
		case *device.ClimateTouch:
			p.unsubs = append(p.unsubs, subscribeLive(t.SubscribeButton, func(pressed bool) {
				p.publishButton(t.VirtualButtonID(), t, t.ButtonEvent(pressed))
			}))
		}
	}
	for _, room := range reg.Rooms() {
		p.unsubs = append(p.unsubs, room.Subscribe(func(s device.RoomState) { p.publishRoom(room, s) }))
	}
	if monitor != nil {
		p.unsubs = append(p.unsubs, monitor.Subscribe(p.publishReading))
	}
}

// detach releases every subscription and forgets cached state.
func (p *publisher) detach() {
	for _, u := range p.unsubs {
		u()
	}
	p.unsubs = nil

	p.cacheMu.Lock()
	p.cache = make(map[string][]byte)
	p.cacheMu.Unlock()
}

func (p *publisher) publishDevice(d device.Device, s device.State) {
	topic := p.topics.DeviceState(d.ID())
	if !p.changed(topic, s) {
		return
	}
	at := p.now().UTC()
	p.publish(topic, StateMessage{ID: d.ID(), Name: d.Name(), Kind: d.Kind(), Timestamp: at, State: s})
	p.emit(Event{Type: EventDeviceState, ID: d.ID(), Timestamp: at, Data: s})
}

func (p *publisher) publishRoom(room *device.Room, s device.RoomState) {
	topic := p.topics.RoomState(room.ID())
	if !p.changed(topic, s) {
		return
	}
	at := p.now().UTC()
	msg := RoomStateMessage{
		ID:         room.ID(),
		Name:       room.Name(),
		Timestamp:  at,
		HvacMode:   room.HvacMode(),
		HvacAction: room.HvacAction(),
		State:      s,
	}
	p.publish(topic, msg)
	p.emit(Event{Type: EventRoomState, ID: room.ID(), Timestamp: at, Data: msg})
}

func (p *publisher) publishReading(r power.Reading) {
	if r.Kind != power.SourceHeater {
		return
	}
	topic := p.topics.HeaterPower(r.ID)
	body := r
	body.At = time.Time{}
	if !p.changed(topic, body) {
		return
	}
	p.publish(topic, PowerMessage(r))
	p.emit(Event{Type: EventHeaterPower, ID: r.ID, Timestamp: r.At, Data: r})
}

// publishButton sends a button event. Every press is delivered, so there
// is no change detection and the message is not retained.
func (p *publisher) publishButton(id int, owner device.Device, name string) {
	at := p.now().UTC()
	msg := ButtonEventMessage{
		DeviceID:  id,
		OwnerID:   owner.ID(),
		Name:      owner.Name(),
		Kind:      owner.Kind(),
		Event:     name,
		Timestamp: at,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to marshal button event", "device_id", id, "error", err)
		return
	}
	if err := p.client.Publish(p.topics.DeviceEvent(id), payload, p.qos, false); err != nil {
		p.logger.Warn("failed to publish button event", "device_id", id, "error", err)
	}
	p.emit(Event{Type: EventButton, ID: id, Timestamp: at, Data: msg})
}

// subscribeLive subscribes fn to a latest-value stream but skips the
// replayed value, so only reports arriving after attach are delivered.
func subscribeLive[T any](subscribe func(func(T)) func(), fn func(T)) func() {
	live := false
	unsub := subscribe(func(v T) {
		if live {
			fn(v)
		}
	})
	live = true
	return unsub
}

// changed reports whether v differs from what was last published on
// topic, and remembers it if so.
func (p *publisher) changed(topic string, v any) bool {
	body, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to marshal state", "topic", topic, "error", err)
		return false
	}

	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if prev, ok := p.cache[topic]; ok && bytes.Equal(prev, body) {
		return false
	}
	p.cache[topic] = body
	return true
}

func (p *publisher) forget(topic string) {
	p.cacheMu.Lock()
	delete(p.cache, topic)
	p.cacheMu.Unlock()
}

func (p *publisher) publish(topic string, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to marshal state message", "topic", topic, "error", err)
		return
	}
	if err := p.client.Publish(topic, payload, p.qos, true); err != nil {
		// Drop the cache entry so the next emission retries.
		p.forget(topic)
		p.logger.Warn("failed to publish state", "topic", topic, "error", err)
	}
}

func (p *publisher) subscribe(fn func(Event)) func() {
	p.listenersMu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.listenersMu.Unlock()

	return func() {
		p.listenersMu.Lock()
		delete(p.listeners, id)
		p.listenersMu.Unlock()
	}
}

func (p *publisher) emit(e Event) {
	p.listenersMu.RLock()
	fns := make([]func(Event), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
