package device

import (
	"fmt"

	"github.com/nerrad567/xcomfort-core/internal/statecell"
)

// Kind is the closed set of device variants.
type Kind string

// Device kinds.
const (
	KindLight        Kind = "light"
	KindHeater       Kind = "heater"
	KindClimateTouch Kind = "climate_touch"
	KindRocker       Kind = "rocker"
	KindShade        Kind = "shade"
	KindAppliance    Kind = "appliance"
	KindWindowSensor Kind = "window_sensor"
	KindDoorSensor   Kind = "door_sensor"
	KindGeneric      Kind = "generic"
)

// Device is a single addressable unit on the bridge.
//
// The set of implementations is closed: *Light, *Heater, *ClimateTouch,
// *Rocker, *Shade, *Appliance, *ContactSensor and *Generic. Callers needing
// type-specific behaviour use a type switch.
//
// HandleState and Close must be called from the goroutine that owns the
// device graph. SubscribeState, CurrentState and accessors derived only from
// the snapshot record (identity, Dimmable, RoomID, ControlledIDs,
// NameWithControlled, EventTypes) are safe from any goroutine.
type Device interface {
	ID() int
	Name() string
	Kind() Kind

	// ComponentID returns the owning component, or 0 when there is none.
	ComponentID() int

	// HandleState merges a partial payload and emits a new state if the
	// payload was relevant to this device.
	HandleState(p Payload)

	// SubscribeState registers fn with replay-then-live semantics.
	SubscribeState(fn func(State)) (unsubscribe func())

	// CurrentState returns the last emitted state.
	CurrentState() (State, bool)

	// Close releases every subscription the device holds on other cells
	// and drops its own subscribers.
	Close()

	record() *DeviceRecord
}

// Directory is the id-indexed lookup devices use to reach their siblings.
// Implementations resolve ids at call time; devices never hold long-lived
// references to the directory's contents except through subscriptions they own.
type Directory interface {
	Device(id int) (Device, bool)
	Component(id int) (*Component, bool)
	DevicesInComponent(compID int) []Device
}

// Options carries the collaborators shared by every device.
type Options struct {
	Directory Directory
	Sender    Sender
	Logger    Logger
}

// New constructs the device variant matching rec.DevType.
//
// Unknown device types become *Generic so they can still act as companions
// of other devices in the same component.
func New(rec DeviceRecord, opts Options) Device {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	b := base{rec: rec, logger: opts.Logger}

	switch rec.DevType {
	case DevTypeActuatorDimm:
		return newLight(b, opts.Sender)
	case DevTypeActuatorSwitch:
		if usage, ok := rec.Payload.Int("usage"); ok && usage == usageAppliance {
			return newAppliance(b, opts.Sender)
		}
		return newLight(b, opts.Sender)
	case DevTypeHeatingActuator:
		return newHeater(b)
	case DevTypeRCTouch:
		return newClimateTouch(b)
	case DevTypePushButton:
		return newRocker(b, opts.Directory)
	case DevTypeShading:
		return newShade(b, opts.Directory, opts.Sender)
	case DevTypeWindowSensor:
		return newContactSensor(b, KindWindowSensor)
	case DevTypeDoorSensor:
		return newContactSensor(b, KindDoorSensor)
	default:
		return newGeneric(b)
	}
}

// usageAppliance marks a switching actuator that drives a non-light load.
const usageAppliance = 1

// base holds identity shared by every variant.
type base struct {
	rec    DeviceRecord
	logger Logger
}

func (b *base) ID() int               { return b.rec.ID }
func (b *base) Name() string          { return b.rec.Name }
func (b *base) ComponentID() int      { return b.rec.CompID }
func (b *base) record() *DeviceRecord { return &b.rec }

// String returns a compact description for logs.
func (b *base) String() string {
	return fmt.Sprintf("device(%d, %q, devType=%d)", b.rec.ID, b.rec.Name, b.rec.DevType)
}

// subscribeAs adapts a typed cell to the State-typed subscription API.
func subscribeAs[T State](cell *statecell.Cell[T], fn func(State)) func() {
	return cell.Subscribe(func(v T) { fn(v) })
}

// currentAs returns a typed cell's value as a State.
func currentAs[T State](cell *statecell.Cell[T]) (State, bool) {
	v, ok := cell.Current()
	if !ok {
		return nil, false
	}
	return v, true
}

// Generic is a device of a type without a dedicated reducer. Its state is
// the union of every payload it has received.
type Generic struct {
	base
	cell *statecell.Cell[RawState]
}

func newGeneric(b base) *Generic {
	return &Generic{base: b, cell: statecell.New[RawState]()}
}

// Kind implements Device.
func (g *Generic) Kind() Kind { return KindGeneric }

// HandleState implements Device.
func (g *Generic) HandleState(p Payload) {
	prev, _ := g.cell.Current()
	g.cell.Emit(RawState{Payload: prev.Payload.Merge(p)})
}

// SubscribeState implements Device.
func (g *Generic) SubscribeState(fn func(State)) func() { return subscribeAs(g.cell, fn) }

// CurrentState implements Device.
func (g *Generic) CurrentState() (State, bool) { return currentAs(g.cell) }

// Close implements Device.
func (g *Generic) Close() { g.cell.Clear() }
