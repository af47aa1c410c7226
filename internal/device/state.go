package device

// State is an immutable snapshot emitted by a device after a merge.
type State interface {
	// Raw returns the payload fields the snapshot was built from.
	Raw() Payload
}

// LightState is the state of a switched or dimmed light.
type LightState struct {
	SwitchOn bool     `json:"switch"`
	DimValue int      `json:"dimmvalue"`
	PowerW   *float64 `json:"power,omitempty"`
	Payload  Payload  `json:"raw"`
}

// Raw implements State.
func (s LightState) Raw() Payload { return s.Payload }

// HeaterState is the state of a heating actuator. Fields are nil when the
// payload that produced the snapshot did not carry them.
type HeaterState struct {
	DeviceTempC      *float64 `json:"device_temperature,omitempty"`
	HeatingDemandPct *float64 `json:"heating_demand,omitempty"`
	PowerW           *float64 `json:"power,omitempty"`
	Payload          Payload  `json:"raw"`
}

// Raw implements State.
func (s HeaterState) Raw() Payload { return s.Payload }

// ClimateTouchState is the temperature and humidity of an RC Touch.
type ClimateTouchState struct {
	TemperatureC float64 `json:"temperature"`
	HumidityPct  float64 `json:"humidity"`
	Payload      Payload `json:"raw"`
}

// Raw implements State.
func (s ClimateTouchState) Raw() Payload { return s.Payload }

// SensorReading holds values taken from a rocker's companion sensor.
type SensorReading struct {
	TemperatureC *float64 `json:"temperature,omitempty"`
	HumidityPct  *float64 `json:"humidity,omitempty"`
}

// RockerState is the state of a rocker. Sensor is nil for plain rockers
// and set for multisensor push buttons.
type RockerState struct {
	IsOn    bool           `json:"is_on"`
	Sensor  *SensorReading `json:"sensor,omitempty"`
	Payload Payload        `json:"raw"`
}

// Raw implements State.
func (s RockerState) Raw() Payload { return s.Payload }

// ShadeState accumulates partial shade updates.
type ShadeState struct {
	Position      *int    `json:"position,omitempty"`
	CurrentState  *int    `json:"current_state,omitempty"`
	SafetyEnabled *bool   `json:"safety,omitempty"`
	Payload       Payload `json:"raw"`
}

// Raw implements State.
func (s ShadeState) Raw() Payload { return s.Payload }

// IsClosed returns nil when the position is unknown or strictly between 0
// and 100, otherwise whether the shade is fully extended.
func (s ShadeState) IsClosed() *bool {
	if s.Position == nil || (*s.Position > 0 && *s.Position < 100) {
		return nil
	}
	closed := *s.Position == 100
	return &closed
}

// merge applies a partial update, keeping fields the update does not mention.
func (s ShadeState) merge(p Payload) ShadeState {
	next := ShadeState{
		Position:      s.Position,
		CurrentState:  s.CurrentState,
		SafetyEnabled: s.SafetyEnabled,
		Payload:       s.Payload.Merge(p),
	}
	if v, ok := p.Int("curstate"); ok {
		next.CurrentState = &v
	}
	if v, ok := p.Float("shSafety"); ok {
		enabled := v != 0
		next.SafetyEnabled = &enabled
	}
	if v, ok := p.Int("shPos"); ok {
		next.Position = &v
	}
	return next
}

// SwitchState is the state of an on/off appliance.
type SwitchState struct {
	On      bool    `json:"switch"`
	Payload Payload `json:"raw"`
}

// Raw implements State.
func (s SwitchState) Raw() Payload { return s.Payload }

// ContactState is the state of a door or window contact.
type ContactState struct {
	Closed  bool    `json:"closed"`
	Payload Payload `json:"raw"`
}

// Raw implements State.
func (s ContactState) Raw() Payload { return s.Payload }

// RawState is the state of a device without a dedicated reducer.
type RawState struct {
	Payload Payload `json:"raw"`
}

// Raw implements State.
func (s RawState) Raw() Payload { return s.Payload }

func floatPtr(v float64) *float64 { return &v }
