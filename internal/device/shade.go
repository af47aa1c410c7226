package device

import (
	"context"
	"fmt"

	"github.com/nerrad567/xcomfort-core/internal/statecell"
)

// Shade is a shading actuator (blinds, awnings, shutters).
//
// Shade payloads arrive as fragments, so the reducer keeps a running
// accumulator and every emitted state carries all fields seen so far.
type Shade struct {
	base
	dir    Directory
	sender Sender
	cell   *statecell.Cell[ShadeState]
	acc    ShadeState
}

func newShade(b base, dir Directory, sender Sender) *Shade {
	return &Shade{
		base:   b,
		dir:    dir,
		sender: sender,
		cell:   statecell.New[ShadeState](),
		acc:    ShadeState{Payload: Payload{}},
	}
}

// Kind implements Device.
func (s *Shade) Kind() Kind { return KindShade }

// SupportsGoTo reports whether the actuator can move to an arbitrary
// position. The second result is false when the component is unknown.
func (s *Shade) SupportsGoTo() (supported, known bool) {
	if s.dir == nil {
		return false, false
	}
	comp, ok := s.dir.Component(s.ComponentID())
	if !ok {
		return false, false
	}
	runtime, _ := s.rec.Payload.Int("shRuntime")
	return comp.Type() == CompTypeShadingActuator && runtime == 1, true
}

// HandleState implements Device.
func (s *Shade) HandleState(p Payload) {
	s.acc = s.acc.merge(p)
	s.logger.Debug("shade state update", "device_id", s.ID(),
		"position", s.acc.Position, "current_state", s.acc.CurrentState, "safety", s.acc.SafetyEnabled)
	s.cell.Emit(s.snapshot())
}

func (s *Shade) snapshot() ShadeState {
	out := s.acc
	out.Payload = s.acc.Payload.Clone()
	return out
}

func (s *Shade) safetyEnabled() bool {
	return s.acc.SafetyEnabled != nil && *s.acc.SafetyEnabled
}

// MoveUp opens the shade.
func (s *Shade) MoveUp(ctx context.Context) error {
	return s.sendState(ctx, ShadeOpen, nil)
}

// MoveDown closes the shade.
func (s *Shade) MoveDown(ctx context.Context) error {
	return s.sendState(ctx, ShadeClose, nil)
}

// MoveStop halts any movement.
func (s *Shade) MoveStop(ctx context.Context) error {
	return s.sendState(ctx, ShadeStop, nil)
}

// MoveTo drives the shade to position (0 open, 100 closed).
func (s *Shade) MoveTo(ctx context.Context, position int) error {
	if supported, _ := s.SupportsGoTo(); !supported {
		return ErrGoToUnsupported
	}
	if position < 0 || position > 100 {
		return fmt.Errorf("%w: %d", ErrPositionOutOfRange, position)
	}
	return s.sendState(ctx, ShadeGoTo, &position)
}

func (s *Shade) sendState(ctx context.Context, op ShadeOperation, value *int) error {
	if s.safetyEnabled() {
		s.logger.Warn("shade command refused, safety enabled", "device_id", s.ID(), "operation", int(op))
		return ErrSafetyEnabled
	}
	payload := Payload{"deviceId": s.ID(), "state": int(op)}
	if value != nil {
		payload["value"] = *value
	}
	s.logger.Debug("sending shade state", "device_id", s.ID(), "operation", int(op))
	return send(ctx, s.sender, NewRequest(MsgSetDeviceShadingState, payload))
}

// Subscribe registers fn for typed shade states.
func (s *Shade) Subscribe(fn func(ShadeState)) func() { return s.cell.Subscribe(fn) }

// Current returns the last shade state.
func (s *Shade) Current() (ShadeState, bool) { return s.cell.Current() }

// SubscribeState implements Device.
func (s *Shade) SubscribeState(fn func(State)) func() { return subscribeAs(s.cell, fn) }

// CurrentState implements Device.
func (s *Shade) CurrentState() (State, bool) { return currentAs(s.cell) }

// Close implements Device.
func (s *Shade) Close() { s.cell.Clear() }
