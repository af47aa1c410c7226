package device

import "github.com/nerrad567/xcomfort-core/internal/statecell"

// Heater is a heating actuator reporting temperature, demand and power.
//
// Unlike Light and Shade, each emitted state is computed only from the
// payload that produced it; fields the payload omits are nil.
type Heater struct {
	base
	cell *statecell.Cell[HeaterState]
}

func newHeater(b base) *Heater {
	return &Heater{base: b, cell: statecell.New[HeaterState]()}
}

// Kind implements Device.
func (h *Heater) Kind() Kind { return KindHeater }

// HandleState implements Device.
func (h *Heater) HandleState(p Payload) {
	var next HeaterState

	if v, ok := p.Info(InfoDeviceTemperature); ok {
		next.DeviceTempC = floatPtr(v)
	}
	if v, ok := p.Info(InfoDimmValue); ok {
		next.HeatingDemandPct = floatPtr(v)
	}
	if v, ok := p.Float("dimmvalue"); ok {
		next.HeatingDemandPct = floatPtr(v)
	}
	if v, ok := p.Float("power"); ok {
		next.PowerW = floatPtr(v)
	}

	if next.DeviceTempC == nil && next.HeatingDemandPct == nil && next.PowerW == nil {
		return
	}

	next.Payload = p.Clone()
	h.logger.Debug("heater state update", "device_id", h.ID(),
		"temperature", next.DeviceTempC, "demand", next.HeatingDemandPct, "power", next.PowerW)
	h.cell.Emit(next)
}

// Subscribe registers fn for typed heater states.
func (h *Heater) Subscribe(fn func(HeaterState)) func() { return h.cell.Subscribe(fn) }

// Current returns the last heater state.
func (h *Heater) Current() (HeaterState, bool) { return h.cell.Current() }

// SubscribeState implements Device.
func (h *Heater) SubscribeState(fn func(State)) func() { return subscribeAs(h.cell, fn) }

// CurrentState implements Device.
func (h *Heater) CurrentState() (State, bool) { return currentAs(h.cell) }

// Close implements Device.
func (h *Heater) Close() { h.cell.Clear() }
