package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/xcomfort-core/internal/audit"
	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/device"
)

// DeviceView is the API representation of a device. Variant-specific
// fields are omitted for other kinds.
type DeviceView struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Kind        device.Kind  `json:"kind"`
	ComponentID int          `json:"component_id,omitempty"`
	State       device.State `json:"state,omitempty"`

	Dimmable     *bool    `json:"dimmable,omitempty"`
	SupportsGoTo *bool    `json:"supports_go_to,omitempty"`
	IsClosed     *bool    `json:"is_closed,omitempty"`
	RoomID       int      `json:"room_id,omitempty"`
	Description  string   `json:"description,omitempty"`
	Events       []string `json:"events,omitempty"`
}

func newDeviceView(d device.Device) DeviceView {
	v := DeviceView{
		ID:          d.ID(),
		Name:        d.Name(),
		Kind:        d.Kind(),
		ComponentID: d.ComponentID(),
	}
	if s, ok := d.CurrentState(); ok {
		v.State = s
	}

	switch t := d.(type) {
	case *device.Light:
		dimmable := t.Dimmable()
		v.Dimmable = &dimmable
	case *device.Shade:
		if supported, known := t.SupportsGoTo(); known {
			v.SupportsGoTo = &supported
		}
		if s, ok := t.Current(); ok {
			v.IsClosed = s.IsClosed()
		}
	case *device.ClimateTouch:
		v.RoomID = t.RoomID()
	case *device.Rocker:
		v.Description = t.NameWithControlled()
		v.Events = t.EventTypes()
	}
	return v
}

// handleListDevices returns all devices, with optional query filters.
//
// Query parameters:
//   - kind: filter by device kind (light, heater, shade, ...)
//   - component_id: filter by owning component
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.bridge.Registry()
	if !ok {
		writeNotReady(w)
		return
	}

	var devices []device.Device
	if v := r.URL.Query().Get("component_id"); v != "" {
		compID, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "component_id must be an integer")
			return
		}
		devices = reg.DevicesInComponent(compID)
	} else {
		devices = reg.Devices()
	}

	kind := device.Kind(r.URL.Query().Get("kind"))
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		if kind != "" && d.Kind() != kind {
			continue
		}
		views = append(views, newDeviceView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": views, "count": len(views)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	reg, ok := s.bridge.Registry()
	if !ok {
		writeNotReady(w)
		return
	}
	d, ok := reg.Device(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, newDeviceView(d))
}

// commandRequest is the body of POST /devices/{id}/command.
type commandRequest struct {
	Command string `json:"command"`
	Value   any    `json:"value,omitempty"`
}

// handleDeviceCommand executes a command on the bridge's event loop and
// answers once the request has been handed to the transport.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "command is required")
		return
	}

	msg := xcomfort.CommandMessage{
		ID:      uuid.NewString(),
		Command: req.Command,
		Value:   req.Value,
		Source:  audit.SourceHTTP,
	}
	if err := s.bridge.HandleCommand(r.Context(), id, msg); err != nil {
		writeBridgeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, xcomfort.NewAckMessage(id, msg))
}

// intParam parses a numeric URL parameter, writing a 400 when it is not.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeBadRequest(w, name+" must be an integer")
		return 0, false
	}
	return v, true
}
