package xcomfort

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/power"
)

// UpdateKind names the entity a feed update targets.
type UpdateKind string

// Update kinds relayed from the bridge.
const (
	UpdateDevice    UpdateKind = "device"
	UpdateComponent UpdateKind = "component"
	UpdateRoom      UpdateKind = "room"
	UpdateScene     UpdateKind = "scene"
)

// FeedUpdate is one partial state update relayed from the bridge.
// Topic: xcomfort/feed/{bridge}/update
type FeedUpdate struct {
	Kind    UpdateKind     `json:"kind"`
	ID      int            `json:"id"`
	Payload device.Payload `json:"payload"`
}

// CommandMessage asks the core to command a device.
// Topic: xcomfort/command/device/{id}
//
// Value depends on Command:
//
//	switch   bool
//	dim      number 0-99
//	move_to  number 0-100
//	move_up, move_down, stop  none
type CommandMessage struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Value   any    `json:"value,omitempty"`
	Source  string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

// Ack statuses.
const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// Error codes carried by failed acks.
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidCommand = "INVALID_COMMAND"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeRefused        = "REFUSED"
	ErrCodeNotReady       = "NOT_READY"
	ErrCodeBridgeError    = "BRIDGE_ERROR"
)

// AckMessage acknowledges a CommandMessage.
// Topic: xcomfort/ack/device/{id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	DeviceID  int       `json:"device_id"`
	Command   string    `json:"command"`
	Status    AckStatus `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes why a command failed.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewAckMessage builds an accepted ack for cmd.
func NewAckMessage(deviceID int, cmd CommandMessage) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		DeviceID:  deviceID,
		Command:   cmd.Command,
		Status:    AckAccepted,
		Timestamp: time.Now().UTC(),
	}
}

// NewAckError builds a failed ack for cmd, classifying err.
func NewAckError(deviceID int, cmd CommandMessage, err error) AckMessage {
	ack := NewAckMessage(deviceID, cmd)
	ack.Status = AckFailed
	ack.Error = &AckError{Code: ErrorCode(err), Message: err.Error()}
	return ack
}

// StateMessage is the retained state of one device.
// Topic: xcomfort/state/device/{id}
type StateMessage struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Kind      device.Kind  `json:"kind"`
	Timestamp time.Time    `json:"timestamp"`
	State     device.State `json:"state"`
}

// ButtonEventMessage is one press reported by a rocker or an RC Touch
// button. DeviceID is the addressed id, which for an RC Touch button is the
// controller's id plus one.
// Topic: xcomfort/event/device/{id}
type ButtonEventMessage struct {
	DeviceID  int         `json:"device_id"`
	OwnerID   int         `json:"owner_id"`
	Name      string      `json:"name"`
	Kind      device.Kind `json:"kind"`
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
}

// RoomStateMessage is the retained state of one room.
// Topic: xcomfort/state/room/{id}
type RoomStateMessage struct {
	ID         int               `json:"id"`
	Name       string            `json:"name"`
	Timestamp  time.Time         `json:"timestamp"`
	HvacMode   device.HvacMode   `json:"hvac_mode"`
	HvacAction device.HvacAction `json:"hvac_action"`
	State      device.RoomState  `json:"state"`
}

// PowerMessage is the retained corrected power of one heater.
// Topic: xcomfort/state/heater/{id}/power
type PowerMessage = power.Reading

// HealthStatus is the operational status of the bridge connection.
type HealthStatus string

// Health statuses.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: xcomfort/health/{bridge}, QoS 1, retained.
type HealthMessage struct {
	Bridge         string       `json:"bridge"`
	Timestamp      time.Time    `json:"timestamp"`
	Status         HealthStatus `json:"status"`
	Version        string       `json:"version"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	SnapshotLoaded bool         `json:"snapshot_loaded"`
	Devices        int          `json:"devices"`
	Components     int          `json:"components"`
	Rooms          int          `json:"rooms"`
	Scenes         int          `json:"scenes"`
	Reason         string       `json:"reason,omitempty"`
}

// decodeSnapshotDocument parses the raw snapshot JSON into the loose
// document DecodeSnapshot expects.
func decodeSnapshotDocument(payload []byte) (*device.Snapshot, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	return device.DecodeSnapshot(doc)
}
