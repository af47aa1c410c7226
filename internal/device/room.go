package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/xcomfort-core/internal/statecell"
)

// ClimateMode is the room's heating preset.
type ClimateMode int

// Climate presets.
const (
	ClimateModeUnknown         ClimateMode = 0
	ClimateModeFrostProtection ClimateMode = 1
	ClimateModeEco             ClimateMode = 2
	ClimateModeComfort         ClimateMode = 3
)

// String returns the preset's display name.
func (m ClimateMode) String() string {
	switch m {
	case ClimateModeFrostProtection:
		return "Frost Protection"
	case ClimateModeEco:
		return "eco"
	case ClimateModeComfort:
		return "comfort"
	}
	return "unknown"
}

// ParseClimateMode accepts a preset display name.
func ParseClimateMode(s string) (ClimateMode, error) {
	switch s {
	case "Frost Protection", "frost_protection":
		return ClimateModeFrostProtection, nil
	case "eco":
		return ClimateModeEco, nil
	case "comfort":
		return ClimateModeComfort, nil
	}
	return ClimateModeUnknown, fmt.Errorf("%w: preset %q", ErrInvalidClimateMode, s)
}

// ClimateState is the room's heating/cooling operating state.
type ClimateState int

// Climate operating states.
const (
	ClimateOff           ClimateState = 0
	ClimateHeatingAuto   ClimateState = 1
	ClimateHeatingManual ClimateState = 2
	ClimateCoolingAuto   ClimateState = 3
	ClimateCoolingManual ClimateState = 4
)

// Heating reports whether the state is one of the heating states.
func (s ClimateState) Heating() bool {
	return s == ClimateHeatingAuto || s == ClimateHeatingManual
}

// Cooling reports whether the state is one of the cooling states.
func (s ClimateState) Cooling() bool {
	return s == ClimateCoolingAuto || s == ClimateCoolingManual
}

// HvacMode is the coarse operating mode shown to users.
type HvacMode string

// HVAC modes.
const (
	HvacOff  HvacMode = "off"
	HvacHeat HvacMode = "heat"
	HvacCool HvacMode = "cool"
)

// HvacAction is what the room's climate control is currently doing.
type HvacAction string

// HVAC actions.
const (
	HvacActionIdle    HvacAction = "idle"
	HvacActionHeating HvacAction = "heating"
	HvacActionCooling HvacAction = "cooling"
)

// SetpointRange bounds the setpoint accepted in one climate mode.
type SetpointRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultSetpointRanges apply until the bridge reports its own limits.
var DefaultSetpointRanges = map[ClimateMode]SetpointRange{
	ClimateModeFrostProtection: {Min: 5, Max: 40},
	ClimateModeEco:             {Min: 5, Max: 40},
	ClimateModeComfort:         {Min: 5, Max: 40},
}

// presetSetpoints are applied when switching presets.
var presetSetpoints = map[ClimateMode]float64{
	ClimateModeFrostProtection: 8,
	ClimateModeEco:             18,
	ClimateModeComfort:         21,
}

// RoomState is the accumulated state of a room.
type RoomState struct {
	PowerW          *float64     `json:"power,omitempty"`
	TemperatureC    *float64     `json:"temperature,omitempty"`
	HumidityPct     *float64     `json:"humidity,omitempty"`
	Setpoint        *float64     `json:"setpoint,omitempty"`
	ValvePct        *float64     `json:"valve,omitempty"`
	LightsOn        int          `json:"lights_on"`
	WindowsOpen     int          `json:"windows_open"`
	DoorsOpen       int          `json:"doors_open"`
	TemperatureOnly bool         `json:"temperature_only"`
	Mode            ClimateMode  `json:"mode"`
	State           ClimateState `json:"state"`
	HasClimate      bool         `json:"has_climate"`
	Payload         Payload      `json:"raw"`
}

// Raw implements State.
func (s RoomState) Raw() Payload { return s.Payload }

func roomStateFrom(raw Payload) RoomState {
	s := RoomState{Payload: raw}
	if v, ok := raw.Float("power"); ok {
		s.PowerW = floatPtr(v)
	}
	if v, ok := raw.Float("temp"); ok {
		s.TemperatureC = floatPtr(v)
	}
	if v, ok := raw.Float("humidity"); ok {
		s.HumidityPct = floatPtr(v)
	}
	if v, ok := raw.Float("setpoint"); ok {
		s.Setpoint = floatPtr(v)
	}
	if v, ok := raw.Float("valve"); ok {
		s.ValvePct = floatPtr(v)
	}
	s.LightsOn, _ = raw.Int("lightsOn")
	s.WindowsOpen, _ = raw.Int("windowsOpen")
	s.DoorsOpen, _ = raw.Int("doorsOpen")
	s.TemperatureOnly, _ = raw.Bool("temperatureOnly")
	if v, ok := raw.Int("currentMode"); ok {
		s.Mode = ClimateMode(v)
	}
	if v, ok := raw.Int("mode"); ok {
		s.Mode = ClimateMode(v)
	}
	if v, ok := raw.Int("state"); ok {
		s.State = ClimateState(v)
		s.HasClimate = true
	}
	return s
}

// Room is a bridge room with its climate control.
type Room struct {
	rec    RoomRecord
	sender Sender
	logger Logger
	cell   *statecell.Cell[RoomState]

	// mu protects the climate view below. It is updated from room payloads
	// and from commands sent.
	mu       sync.RWMutex
	ranges   map[ClimateMode]SetpointRange
	preset   ClimateMode
	state    ClimateState
	setpoint float64
}

// NewRoom creates a room from its snapshot record.
func NewRoom(rec RoomRecord, sender Sender, logger Logger) *Room {
	if logger == nil {
		logger = noopLogger{}
	}
	ranges := make(map[ClimateMode]SetpointRange, len(DefaultSetpointRanges))
	for k, v := range DefaultSetpointRanges {
		ranges[k] = v
	}
	return &Room{
		rec:      rec,
		sender:   sender,
		logger:   logger,
		cell:     statecell.New[RoomState](),
		ranges:   ranges,
		preset:   ClimateModeComfort,
		state:    ClimateOff,
		setpoint: 20,
	}
}

// ID returns the room id.
func (r *Room) ID() int { return r.rec.ID }

// Name returns the room name.
func (r *Room) Name() string { return r.rec.Name }

// SetSetpointRange overrides the allowed setpoint range for a mode.
func (r *Room) SetSetpointRange(mode ClimateMode, rng SetpointRange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranges[mode] = rng
}

// SetpointRange returns the allowed setpoint range for the current preset.
func (r *Room) SetpointRange() SetpointRange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rng, ok := r.ranges[r.preset]; ok {
		return rng
	}
	return SetpointRange{Min: 5, Max: 40}
}

// HandleState merges a partial room payload.
func (r *Room) HandleState(p Payload) {
	prev, _ := r.cell.Current()
	next := roomStateFrom(prev.Payload.Merge(p))

	r.mu.Lock()
	if p.Has("currentMode") || p.Has("mode") {
		r.preset = next.Mode
	}
	if p.Has("state") {
		r.state = next.State
	}
	if next.Setpoint != nil {
		r.setpoint = *next.Setpoint
	}
	r.mu.Unlock()

	r.cell.Emit(next)
}

// Subscribe registers fn with replay-then-live semantics.
func (r *Room) Subscribe(fn func(RoomState)) func() { return r.cell.Subscribe(fn) }

// Current returns the last room state.
func (r *Room) Current() (RoomState, bool) { return r.cell.Current() }

// Close drops every subscriber.
func (r *Room) Close() { r.cell.Clear() }

// Preset returns the current climate preset.
func (r *Room) Preset() ClimateMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preset
}

// ClimateState returns the current climate operating state.
func (r *Room) ClimateState() ClimateState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// TargetSetpoint returns the current setpoint.
func (r *Room) TargetSetpoint() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.setpoint
}

func (r *Room) climate() (ClimateMode, ClimateState, float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.preset, r.state, r.setpoint
}

// HvacMode derives the coarse mode from the climate state.
func (r *Room) HvacMode() HvacMode {
	state := r.ClimateState()
	switch {
	case state.Heating():
		return HvacHeat
	case state.Cooling():
		return HvacCool
	}
	return HvacOff
}

// HvacAction reports heating or cooling while the room draws power.
func (r *Room) HvacAction() HvacAction {
	s, ok := r.cell.Current()
	if !ok {
		return HvacActionIdle
	}
	if s.PowerW != nil && *s.PowerW > 0 {
		state := r.ClimateState()
		switch {
		case state.Heating():
			return HvacActionHeating
		case state.Cooling():
			return HvacActionCooling
		}
	}
	return HvacActionIdle
}

// SetHvacMode switches climate control off, to automatic heating or to
// automatic cooling. It is a no-op when already in the target state.
func (r *Room) SetHvacMode(ctx context.Context, mode HvacMode) error {
	var target ClimateState
	switch mode {
	case HvacOff:
		target = ClimateOff
	case HvacHeat:
		target = ClimateHeatingAuto
	case HvacCool:
		target = ClimateCoolingAuto
	default:
		return fmt.Errorf("%w: hvac mode %q", ErrInvalidClimateMode, mode)
	}
	preset, state, setpoint := r.climate()
	if state == target {
		return nil
	}

	if target == ClimateOff {
		preset, setpoint = ClimateModeFrostProtection, 0
	}
	if err := r.sendHeatingState(ctx, preset, target, setpoint); err != nil {
		return err
	}
	r.mu.Lock()
	r.state = target
	r.mu.Unlock()
	return nil
}

// SetPreset switches the climate preset and applies its default setpoint.
// Heating rooms move to manual heating; cooling rooms to manual cooling.
func (r *Room) SetPreset(ctx context.Context, mode ClimateMode) error {
	setpoint, ok := presetSetpoints[mode]
	if !ok {
		return fmt.Errorf("%w: preset %d", ErrInvalidClimateMode, mode)
	}
	preset, state, current := r.climate()
	if preset == mode {
		return nil
	}
	if state == ClimateOff {
		r.logger.Warn("cannot change preset while climate is off", "room_id", r.ID(), "preset", mode.String())
		return ErrClimateOff
	}

	target := ClimateHeatingManual
	if mode != ClimateModeFrostProtection && !state.Heating() {
		target = ClimateCoolingManual
	}

	// The bridge expects the state flip before the preset change.
	if err := r.sendHeatingState(ctx, preset, target, current); err != nil {
		return err
	}
	r.mu.Lock()
	r.state = target
	r.mu.Unlock()

	if err := r.sendHeatingState(ctx, mode, target, setpoint); err != nil {
		return err
	}
	r.mu.Lock()
	r.preset = mode
	r.setpoint = setpoint
	r.mu.Unlock()
	return nil
}

// SetSetpoint sets the target temperature, clamped to the current preset's range.
func (r *Room) SetSetpoint(ctx context.Context, setpoint float64) error {
	rng := r.SetpointRange()
	setpoint = max(rng.Min, min(rng.Max, setpoint))
	preset, state, _ := r.climate()
	if err := r.sendHeatingState(ctx, preset, state, setpoint); err != nil {
		return err
	}
	r.mu.Lock()
	r.setpoint = setpoint
	r.mu.Unlock()
	return nil
}

func (r *Room) sendHeatingState(ctx context.Context, mode ClimateMode, state ClimateState, setpoint float64) error {
	r.logger.Debug("sending heating state", "room_id", r.ID(),
		"mode", int(mode), "state", int(state), "setpoint", setpoint)
	return send(ctx, r.sender, NewRequest(MsgSetHeatingState, Payload{
		"roomId":    r.ID(),
		"mode":      int(mode),
		"state":     int(state),
		"setpoint":  setpoint,
		"confirmed": false,
	}))
}
