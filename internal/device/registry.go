package device

import (
	"sort"
	"sync"
)

// Logger defines the logging interface used by the device package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the id-indexed arena of every device, component, room and
// scene known from the bridge snapshot. It implements Directory.
//
// Objects are added once while the snapshot loads and then live until
// Close. Mutation of the objects themselves happens on the bridge event
// loop; the registry's own maps are guarded so lookups are safe from any
// goroutine.
type Registry struct {
	mu         sync.RWMutex
	devices    map[int]Device
	components map[int]*Component
	rooms      map[int]*Room
	scenes     map[int]*Scene
	logger     Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:    make(map[int]Device),
		components: make(map[int]*Component),
		rooms:      make(map[int]*Room),
		scenes:     make(map[int]*Scene),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddDevice stores d, replacing any device with the same id.
func (r *Registry) AddDevice(d Device) {
	r.mu.Lock()
	old, replaced := r.devices[d.ID()]
	r.devices[d.ID()] = d
	r.mu.Unlock()

	if replaced && old != d {
		old.Close()
		r.logger.Warn("device replaced", "device_id", d.ID())
	}
}

// AddComponent stores c, replacing any component with the same id.
func (r *Registry) AddComponent(c *Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[c.ID()] = c
}

// AddRoom stores room, replacing any room with the same id.
func (r *Registry) AddRoom(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID()] = room
}

// AddScene stores s, replacing any scene with the same id.
func (r *Registry) AddScene(s *Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes[s.ID()] = s
}

// Device returns the device with the given id.
func (r *Registry) Device(id int) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// Component returns the component with the given id.
func (r *Registry) Component(id int) (*Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[id]
	return c, ok
}

// Room returns the room with the given id.
func (r *Registry) Room(id int) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

// Scene returns the scene with the given id.
func (r *Registry) Scene(id int) (*Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[id]
	return s, ok
}

// Devices returns all devices ordered by id.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sortDevices(out)
	return out
}

// DevicesInComponent returns the devices owned by compID, ordered by id.
func (r *Registry) DevicesInComponent(compID int) []Device {
	if compID == 0 {
		return nil
	}
	r.mu.RLock()
	var out []Device
	for _, d := range r.devices {
		if d.ComponentID() == compID {
			out = append(out, d)
		}
	}
	r.mu.RUnlock()

	sortDevices(out)
	return out
}

// Components returns all components ordered by id.
func (r *Registry) Components() []*Component {
	r.mu.RLock()
	out := make([]*Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Rooms returns all rooms ordered by id.
func (r *Registry) Rooms() []*Room {
	r.mu.RLock()
	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Scenes returns all scenes ordered by their configured order, then id.
func (r *Registry) Scenes() []*Scene {
	r.mu.RLock()
	out := make([]*Scene, 0, len(r.scenes))
	for _, s := range r.scenes {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		oi, iok := out[i].Order()
		oj, jok := out[j].Order()
		if iok && jok && oi != oj {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Heaters returns every heating actuator ordered by id.
func (r *Registry) Heaters() []*Heater {
	var out []*Heater
	for _, d := range r.Devices() {
		if h, ok := d.(*Heater); ok {
			out = append(out, h)
		}
	}
	return out
}

// Lights returns every light ordered by id.
func (r *Registry) Lights() []*Light {
	var out []*Light
	for _, d := range r.Devices() {
		if l, ok := d.(*Light); ok {
			out = append(out, l)
		}
	}
	return out
}

// Rockers returns every rocker ordered by id.
func (r *Registry) Rockers() []*Rocker {
	var out []*Rocker
	for _, d := range r.Devices() {
		if rk, ok := d.(*Rocker); ok {
			out = append(out, rk)
		}
	}
	return out
}

// ClimateTouchForRoom returns the RC Touch whose tempRoom is roomID.
func (r *Registry) ClimateTouchForRoom(roomID int) (*ClimateTouch, bool) {
	for _, d := range r.Devices() {
		if ct, ok := d.(*ClimateTouch); ok && ct.RoomID() == roomID {
			return ct, true
		}
	}
	return nil, false
}

// VirtualButtonOwner returns the RC Touch whose virtual button has the given id.
func (r *Registry) VirtualButtonOwner(id int) (*ClimateTouch, bool) {
	d, ok := r.Device(id - 1)
	if !ok {
		return nil, false
	}
	ct, ok := d.(*ClimateTouch)
	return ct, ok
}

// ResolveAll retries pending correlations. It is idempotent.
func (r *Registry) ResolveAll() {
	for _, rk := range r.Rockers() {
		rk.Resolve()
	}
}

// Counts returns the number of devices, components, rooms and scenes.
func (r *Registry) Counts() (devices, components, rooms, scenes int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices), len(r.components), len(r.rooms), len(r.scenes)
}

// Close releases every subscription and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	devices := r.devices
	components := r.components
	rooms := r.rooms
	r.devices = make(map[int]Device)
	r.components = make(map[int]*Component)
	r.rooms = make(map[int]*Room)
	r.scenes = make(map[int]*Scene)
	r.mu.Unlock()

	for _, d := range devices {
		d.Close()
	}
	for _, c := range components {
		c.Close()
	}
	for _, room := range rooms {
		room.Close()
	}
}

func sortDevices(devices []Device) {
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID() < devices[j].ID() })
}
