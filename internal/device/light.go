package device

import (
	"context"

	"github.com/nerrad567/xcomfort-core/internal/statecell"
)

// Dim value bounds accepted by dimming actuators.
const (
	MinDimValue = 0
	MaxDimValue = 99
)

// Light is a switching or dimming actuator driving a light.
//
// Its reducer is field-sticky: dim value and power survive payloads that
// do not mention them.
type Light struct {
	base
	sender Sender
	cell   *statecell.Cell[LightState]
}

func newLight(b base, sender Sender) *Light {
	return &Light{base: b, sender: sender, cell: statecell.New[LightState]()}
}

// Kind implements Device.
func (l *Light) Kind() Kind { return KindLight }

// Dimmable reports whether the actuator accepts dim values.
func (l *Light) Dimmable() bool { return l.rec.Dimmable }

// HandleState implements Device.
func (l *Light) HandleState(p Payload) {
	if !p.Has("switch") && !p.Has("power") && !p.Has("dimmvalue") {
		l.logger.Debug("light ignoring unrelated payload", "device_id", l.ID())
		return
	}

	prev, hasPrev := l.cell.Current()

	on := prev.SwitchOn
	if v, ok := p.Bool("switch"); ok {
		on = v
	}

	dim := l.dimValue(on, p, prev, hasPrev)

	// A power value that does not parse counts as absent.
	var power *float64
	reported, hasPower := p.Float("power")
	switch {
	case hasPower:
		power = &reported
	case !on || dim == 0:
		power = floatPtr(0)
	default:
		power = prev.PowerW
	}

	next := LightState{
		SwitchOn: on,
		DimValue: dim,
		PowerW:   power,
		Payload:  prev.Payload.Merge(p),
	}
	l.logger.Debug("light state update", "device_id", l.ID(), "switch", on, "dimmvalue", dim)
	l.cell.Emit(next)
}

func (l *Light) dimValue(on bool, p Payload, prev LightState, hasPrev bool) int {
	if !l.rec.Dimmable {
		return MaxDimValue
	}
	if !on {
		if hasPrev {
			return prev.DimValue
		}
		return MaxDimValue
	}
	if v, ok := p.Int("dimmvalue"); ok {
		return clampDim(v)
	}
	if !p.Has("switch") && hasPrev && prev.SwitchOn {
		return prev.DimValue
	}
	return MaxDimValue
}

// Subscribe registers fn for typed light states.
func (l *Light) Subscribe(fn func(LightState)) func() { return l.cell.Subscribe(fn) }

// Current returns the last light state.
func (l *Light) Current() (LightState, bool) { return l.cell.Current() }

// SubscribeState implements Device.
func (l *Light) SubscribeState(fn func(State)) func() { return subscribeAs(l.cell, fn) }

// CurrentState implements Device.
func (l *Light) CurrentState() (State, bool) { return currentAs(l.cell) }

// Close implements Device.
func (l *Light) Close() { l.cell.Clear() }

// Switch turns the light on or off.
func (l *Light) Switch(ctx context.Context, on bool) error {
	l.logger.Debug("switching light", "device_id", l.ID(), "on", on)
	return send(ctx, l.sender, NewRequest(MsgActionSwitchDevice, Payload{
		"deviceId": l.ID(),
		"switch":   on,
	}))
}

// Dim sets the dim value, clamped to 0-99.
func (l *Light) Dim(ctx context.Context, value int) error {
	value = clampDim(value)
	l.logger.Debug("dimming light", "device_id", l.ID(), "dimmvalue", value)
	return send(ctx, l.sender, NewRequest(MsgActionSlideDevice, Payload{
		"deviceId":  l.ID(),
		"dimmvalue": value,
	}))
}

func clampDim(v int) int {
	return max(MinDimValue, min(MaxDimValue, v))
}
