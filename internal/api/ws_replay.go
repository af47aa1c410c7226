package api

import (
	"time"

	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/device"
)

// currentEvents renders the present state of a channel in the same shape
// as the live events the bridge emits. Entities without state yet are
// skipped. Nothing is returned before the first snapshot. Button events
// carry no state and are never replayed.
func (s *Server) currentEvents(channel string) []xcomfort.Event {
	reg, ok := s.bridge.Registry()
	if !ok {
		return nil
	}
	now := time.Now().UTC()

	var out []xcomfort.Event
	switch channel {
	case xcomfort.EventDeviceState:
		for _, d := range reg.Devices() {
			if st, ok := d.CurrentState(); ok {
				out = append(out, xcomfort.Event{Type: channel, ID: d.ID(), Timestamp: now, Data: st})
			}
		}
	case xcomfort.EventRoomState:
		for _, room := range reg.Rooms() {
			st, ok := room.Current()
			if !ok {
				continue
			}
			out = append(out, xcomfort.Event{Type: channel, ID: room.ID(), Timestamp: now, Data: xcomfort.RoomStateMessage{
				ID:         room.ID(),
				Name:       room.Name(),
				Timestamp:  now,
				HvacMode:   room.HvacMode(),
				HvacAction: room.HvacAction(),
				State:      st,
			}})
		}
	case xcomfort.EventHeaterPower:
		for _, d := range reg.Devices() {
			if d.Kind() != device.KindHeater {
				continue
			}
			if r, err := s.bridge.HeaterPower(d.ID()); err == nil {
				out = append(out, xcomfort.Event{Type: channel, ID: r.ID, Timestamp: r.At, Data: r})
			}
		}
	}
	return out
}
