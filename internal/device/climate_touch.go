package device

import "github.com/nerrad567/xcomfort-core/internal/statecell"

// ClimateTouch is an RC Touch room controller. It reports temperature and
// humidity, and owns a virtual push button addressed as its id plus one.
type ClimateTouch struct {
	base
	cell *statecell.Cell[ClimateTouchState]

	button        *statecell.Cell[bool]
	buttonPayload Payload
}

func newClimateTouch(b base) *ClimateTouch {
	return &ClimateTouch{
		base:          b,
		cell:          statecell.New[ClimateTouchState](),
		button:        statecell.New[bool](),
		buttonPayload: Payload{},
	}
}

// Kind implements Device.
func (c *ClimateTouch) Kind() Kind { return KindClimateTouch }

// VirtualButtonID returns the device id the bridge uses for the button.
func (c *ClimateTouch) VirtualButtonID() int { return c.ID() + 1 }

// RoomID returns the room this controller measures, or 0 when unset.
func (c *ClimateTouch) RoomID() int {
	if id, ok := c.rec.Payload.Int("tempRoom"); ok {
		return id
	}
	return 0
}

// HandleState implements Device. Only payloads carrying both temperature
// and humidity produce a new state.
func (c *ClimateTouch) HandleState(p Payload) {
	temp, okTemp := p.Info(InfoAmbientTemperature)
	hum, okHum := p.Info(InfoHumidity)
	if !okTemp || !okHum {
		return
	}
	c.logger.Debug("climate touch state update", "device_id", c.ID(), "temperature", temp, "humidity", hum)
	c.cell.Emit(ClimateTouchState{TemperatureC: temp, HumidityPct: hum, Payload: p.Clone()})
}

// HandleButtonState merges a payload addressed to the virtual button.
func (c *ClimateTouch) HandleButtonState(p Payload) {
	c.buttonPayload = c.buttonPayload.Merge(p)
	pressed, ok := p.Bool("curstate")
	if !ok {
		return
	}
	c.logger.Debug("climate touch button update", "device_id", c.ID(), "pressed", pressed)
	c.button.Emit(pressed)
}

// SubscribeButton registers fn for button press (true) and release (false).
func (c *ClimateTouch) SubscribeButton(fn func(bool)) func() { return c.button.Subscribe(fn) }

// ButtonEvent maps a button report to its event name.
func (c *ClimateTouch) ButtonEvent(pressed bool) string {
	if pressed {
		return EventPressUp
	}
	return EventPressDown
}

// Button returns the last button state.
func (c *ClimateTouch) Button() (bool, bool) { return c.button.Current() }

// Subscribe registers fn for typed climate states.
func (c *ClimateTouch) Subscribe(fn func(ClimateTouchState)) func() { return c.cell.Subscribe(fn) }

// Current returns the last climate state.
func (c *ClimateTouch) Current() (ClimateTouchState, bool) { return c.cell.Current() }

// SubscribeState implements Device.
func (c *ClimateTouch) SubscribeState(fn func(State)) func() { return subscribeAs(c.cell, fn) }

// CurrentState implements Device.
func (c *ClimateTouch) CurrentState() (State, bool) { return currentAs(c.cell) }

// Close implements Device.
func (c *ClimateTouch) Close() {
	c.cell.Clear()
	c.button.Clear()
}
