package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/device"
)

// RoomView is the API representation of a room and its climate control.
type RoomView struct {
	ID             int                  `json:"id"`
	Name           string               `json:"name"`
	HvacMode       device.HvacMode      `json:"hvac_mode"`
	HvacAction     device.HvacAction    `json:"hvac_action"`
	Preset         string               `json:"preset"`
	TargetSetpoint float64              `json:"target_setpoint"`
	SetpointRange  device.SetpointRange `json:"setpoint_range"`
	ClimateTouchID int                  `json:"climate_touch_id,omitempty"`
	State          *device.RoomState    `json:"state,omitempty"`
}

func newRoomView(reg *device.Registry, room *device.Room) RoomView {
	v := RoomView{
		ID:             room.ID(),
		Name:           room.Name(),
		HvacMode:       room.HvacMode(),
		HvacAction:     room.HvacAction(),
		Preset:         room.Preset().String(),
		TargetSetpoint: room.TargetSetpoint(),
		SetpointRange:  room.SetpointRange(),
	}
	if ct, ok := reg.ClimateTouchForRoom(room.ID()); ok {
		v.ClimateTouchID = ct.ID()
	}
	if s, ok := room.Current(); ok {
		v.State = &s
	}
	return v
}

// handleListRooms returns every room.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	reg, ok := s.bridge.Registry()
	if !ok {
		writeNotReady(w)
		return
	}
	rooms := reg.Rooms()
	views := make([]RoomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, newRoomView(reg, room))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": views, "count": len(views)})
}

// handleGetRoom returns a single room by ID.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	reg, ok := s.bridge.Registry()
	if !ok {
		writeNotReady(w)
		return
	}
	room, ok := reg.Room(id)
	if !ok {
		writeNotFound(w, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(reg, room))
}

// handleRoomClimate changes a room's hvac mode, preset or setpoint.
//
// Body: {"hvac_mode": "off|heat|cool", "preset": "eco", "setpoint": 21.5}.
// Every field is optional; at least one is required.
func (s *Server) handleRoomClimate(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}

	var cc xcomfort.ClimateCommand
	if err := json.NewDecoder(r.Body).Decode(&cc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if cc.HvacMode == nil && cc.Preset == nil && cc.Setpoint == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "one of hvac_mode, preset or setpoint is required")
		return
	}

	if err := s.bridge.SetRoomClimate(r.Context(), id, cc); err != nil {
		writeBridgeError(w, err)
		return
	}

	reg, _ := s.bridge.Registry()
	room, ok := reg.Room(id)
	if !ok {
		writeNotFound(w, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(reg, room))
}
