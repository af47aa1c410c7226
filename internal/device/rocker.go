package device

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/xcomfort-core/internal/statecell"
)

// Rocker is a push button or rocker switch.
//
// Rockers on multisensor push-button components also report the temperature
// and humidity measured by a companion device in the same component. The
// companion may be constructed after the rocker, so it is looked up through
// the Directory on construction, on every component update and on every
// rocker update until found. Once found it is subscribed to exactly once.
type Rocker struct {
	base
	dir   Directory
	cell  *statecell.Cell[RockerState]
	press *statecell.Cell[bool]

	payload     Payload
	isOn        bool
	temperature *float64
	humidity    *float64

	componentUnsub func()
	companion      Device
	companionUnsub func()
}

func newRocker(b base, dir Directory) *Rocker {
	r := &Rocker{
		base:    b,
		dir:     dir,
		cell:    statecell.New[RockerState](),
		press:   statecell.New[bool](),
		payload: b.rec.Payload.Clone(),
	}
	if on, ok := r.payload.Bool("curstate"); ok {
		r.isOn = on
	}
	r.Resolve()
	return r
}

// Kind implements Device.
func (r *Rocker) Kind() Kind { return KindRocker }

// HasSensors reports whether the owning component is a multisensor push button.
func (r *Rocker) HasSensors() bool {
	comp, ok := r.component()
	return ok && comp.Type().IsMultiSensor()
}

// Momentary reports whether the rocker springs back to a neutral position.
// Every push-button type the bridge exposes behaves this way.
func (r *Rocker) Momentary() bool { return true }

// EventTypes returns the event names a rocker emits.
func (r *Rocker) EventTypes() []string {
	if r.HasSensors() || r.Momentary() {
		return []string{EventPressUp, EventPressDown}
	}
	return []string{EventOn, EventOff}
}

// Event maps an on/off transition to one of EventTypes.
func (r *Rocker) Event(on bool) string {
	types := r.EventTypes()
	if on {
		return types[0]
	}
	return types[1]
}

// ControlledIDs returns the ids of devices this rocker controls. They come
// from the snapshot record, which state updates never touch, so this is safe
// from any goroutine.
func (r *Rocker) ControlledIDs() []int {
	return r.rec.Payload.Ints("controlId")
}

// NameWithControlled returns the rocker's name followed by the sorted,
// de-duplicated names of the devices it controls.
func (r *Rocker) NameWithControlled() string {
	seen := make(map[string]struct{})
	var names []string
	if r.dir != nil {
		for _, id := range r.ControlledIDs() {
			d, ok := r.dir.Device(id)
			if !ok {
				continue
			}
			if _, dup := seen[d.Name()]; dup {
				continue
			}
			seen[d.Name()] = struct{}{}
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)
	return fmt.Sprintf("%s (%s)", r.Name(), strings.Join(names, ", "))
}

// Companion returns the resolved companion sensor device, if any. Call it
// from the goroutine that owns the device graph.
func (r *Rocker) Companion() (Device, bool) {
	return r.companion, r.companion != nil
}

// Resolve attempts to bind the owning component and, for multisensor
// rockers, the companion device. It is idempotent.
func (r *Rocker) Resolve() {
	if r.dir == nil {
		return
	}
	comp, ok := r.component()
	if !ok {
		return
	}
	if r.componentUnsub == nil && comp.Type().IsMultiSensor() {
		r.componentUnsub = comp.Subscribe(func(ComponentState) { r.resolveCompanion() })
	}
	r.resolveCompanion()
}

func (r *Rocker) resolveCompanion() {
	if r.companion != nil || !r.HasSensors() {
		return
	}
	companion := r.findCompanion()
	if companion == nil {
		r.logger.Debug("rocker companion not found yet", "device_id", r.ID(), "comp_id", r.ComponentID())
		return
	}
	r.logger.Info("rocker found companion sensor",
		"device_id", r.ID(), "companion_id", companion.ID(), "companion", companion.Name())
	r.companion = companion
	r.companionUnsub = companion.SubscribeState(r.onCompanionState)
}

// findCompanion picks a sibling in the same component. Non-rocker devices
// are preferred since they carry the sensor readings; ties go to the
// lowest id.
func (r *Rocker) findCompanion() Device {
	var fallback Device
	for _, d := range r.dir.DevicesInComponent(r.ComponentID()) {
		if d.ID() == r.ID() {
			continue
		}
		if d.Kind() != KindRocker {
			return d
		}
		if fallback == nil {
			fallback = d
		}
	}
	return fallback
}

func (r *Rocker) onCompanionState(s State) {
	if s == nil {
		return
	}
	raw := s.Raw()
	var temperature, humidity *float64
	if v, ok := raw.Info(InfoAmbientTemperature); ok {
		temperature = floatPtr(v)
	}
	if v, ok := raw.Info(InfoHumidity); ok {
		humidity = floatPtr(v)
	}

	if equalFloatPtr(temperature, r.temperature) && equalFloatPtr(humidity, r.humidity) {
		return
	}
	r.temperature = temperature
	r.humidity = humidity
	r.logger.Debug("rocker sensor values updated", "device_id", r.ID(),
		"temperature", temperature, "humidity", humidity)

	if temperature != nil || humidity != nil {
		r.cell.Emit(r.snapshot(true))
	}
}

// HandleState implements Device. Payloads without curstate are ignored.
func (r *Rocker) HandleState(p Payload) {
	on, ok := p.Bool("curstate")
	if !ok {
		return
	}
	r.payload = r.payload.Merge(p)
	r.isOn = on

	sensors := r.HasSensors()
	if sensors {
		r.Resolve()
	}
	r.logger.Debug("rocker state update", "device_id", r.ID(), "on", on)
	r.cell.Emit(r.snapshot(sensors))
	r.press.Emit(on)
}

func (r *Rocker) snapshot(withSensor bool) RockerState {
	s := RockerState{IsOn: r.isOn, Payload: r.payload.Clone()}
	if withSensor {
		s.Sensor = &SensorReading{TemperatureC: r.temperature, HumidityPct: r.humidity}
	}
	return s
}

// Subscribe registers fn for typed rocker states.
func (r *Rocker) Subscribe(fn func(RockerState)) func() { return r.cell.Subscribe(fn) }

// SubscribePress registers fn for the rocker's own curstate reports. Unlike
// Subscribe it does not fire when only the companion sensor changes.
func (r *Rocker) SubscribePress(fn func(on bool)) func() { return r.press.Subscribe(fn) }

// Current returns the last rocker state.
func (r *Rocker) Current() (RockerState, bool) { return r.cell.Current() }

// SubscribeState implements Device.
func (r *Rocker) SubscribeState(fn func(State)) func() { return subscribeAs(r.cell, fn) }

// CurrentState implements Device.
func (r *Rocker) CurrentState() (State, bool) { return currentAs(r.cell) }

// Close implements Device.
func (r *Rocker) Close() {
	if r.componentUnsub != nil {
		r.componentUnsub()
		r.componentUnsub = nil
	}
	if r.companionUnsub != nil {
		r.companionUnsub()
		r.companionUnsub = nil
	}
	r.companion = nil
	r.cell.Clear()
	r.press.Clear()
}

func (r *Rocker) component() (*Component, bool) {
	if r.dir == nil || r.ComponentID() == 0 {
		return nil, false
	}
	return r.dir.Component(r.ComponentID())
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
