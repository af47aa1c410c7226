package device

import (
	"context"

	"github.com/nerrad567/xcomfort-core/internal/statecell"
)

// Appliance is a switching actuator driving a non-light load.
type Appliance struct {
	base
	sender Sender
	cell   *statecell.Cell[SwitchState]
}

func newAppliance(b base, sender Sender) *Appliance {
	return &Appliance{base: b, sender: sender, cell: statecell.New[SwitchState]()}
}

// Kind implements Device.
func (a *Appliance) Kind() Kind { return KindAppliance }

// HandleState implements Device.
func (a *Appliance) HandleState(p Payload) {
	on, ok := p.Bool("switch")
	if !ok {
		a.logger.Debug("appliance ignoring non-switch payload", "device_id", a.ID())
		return
	}
	a.cell.Emit(SwitchState{On: on, Payload: p.Clone()})
}

// Switch turns the appliance on or off.
func (a *Appliance) Switch(ctx context.Context, on bool) error {
	return send(ctx, a.sender, NewRequest(MsgActionSwitchDevice, Payload{
		"deviceId": a.ID(),
		"switch":   on,
	}))
}

// Subscribe registers fn for typed switch states.
func (a *Appliance) Subscribe(fn func(SwitchState)) func() { return a.cell.Subscribe(fn) }

// SubscribeState implements Device.
func (a *Appliance) SubscribeState(fn func(State)) func() { return subscribeAs(a.cell, fn) }

// CurrentState implements Device.
func (a *Appliance) CurrentState() (State, bool) { return currentAs(a.cell) }

// Close implements Device.
func (a *Appliance) Close() { a.cell.Clear() }

// ContactSensor is a door or window contact. A curstate of 1 means closed.
type ContactSensor struct {
	base
	kind Kind
	cell *statecell.Cell[ContactState]
}

func newContactSensor(b base, kind Kind) *ContactSensor {
	return &ContactSensor{base: b, kind: kind, cell: statecell.New[ContactState]()}
}

// Kind implements Device. It is KindWindowSensor or KindDoorSensor.
func (c *ContactSensor) Kind() Kind { return c.kind }

// HandleState implements Device.
func (c *ContactSensor) HandleState(p Payload) {
	v, ok := p.Int("curstate")
	if !ok {
		return
	}
	c.cell.Emit(ContactState{Closed: v == 1, Payload: p.Clone()})
}

// Subscribe registers fn for typed contact states.
func (c *ContactSensor) Subscribe(fn func(ContactState)) func() { return c.cell.Subscribe(fn) }

// SubscribeState implements Device.
func (c *ContactSensor) SubscribeState(fn func(State)) func() { return subscribeAs(c.cell, fn) }

// CurrentState implements Device.
func (c *ContactSensor) CurrentState() (State, bool) { return currentAs(c.cell) }

// Close implements Device.
func (c *ContactSensor) Close() { c.cell.Clear() }
