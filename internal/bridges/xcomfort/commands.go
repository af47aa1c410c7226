package xcomfort

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/nerrad567/xcomfort-core/internal/audit"
	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/mqtt"
)

// Device command names.
const (
	CommandSwitch   = "switch"
	CommandDim      = "dim"
	CommandMoveUp   = "move_up"
	CommandMoveDown = "move_down"
	CommandStop     = "stop"
	CommandMoveTo   = "move_to"
)

// ClimateCommand changes a room's climate. Nil fields are left alone and
// the rest are applied in field order.
type ClimateCommand struct {
	HvacMode *device.HvacMode `json:"hvac_mode,omitempty"`
	Preset   *string          `json:"preset,omitempty"`
	Setpoint *float64         `json:"setpoint,omitempty"`
}

// HandleCommand executes msg against a device, then counts and records
// the outcome. It returns the execution error.
func (b *Bridge) HandleCommand(ctx context.Context, deviceID int, msg CommandMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	err := b.call(ctx, func() error {
		reg := b.currentRegistry()
		if reg == nil {
			return ErrNotReady
		}
		d, ok := reg.Device(deviceID)
		if !ok {
			return fmt.Errorf("%w: %d", device.ErrDeviceNotFound, deviceID)
		}
		return applyCommand(ctx, d, msg.Command, msg.Value)
	})

	b.metrics.ObserveCommand(msg.Command, err)
	b.recordCommand(ctx, deviceID, msg, err)
	if err != nil {
		b.logger.Warn("command failed",
			"command_id", msg.ID, "device_id", deviceID, "command", msg.Command, "error", err)
	} else {
		b.logger.Info("command executed",
			"command_id", msg.ID, "device_id", deviceID, "command", msg.Command, "source", msg.Source)
	}
	return err
}

func (b *Bridge) recordCommand(ctx context.Context, deviceID int, msg CommandMessage, cmdErr error) {
	if b.audit == nil {
		return
	}
	entry := &audit.Entry{
		DeviceID: deviceID,
		Command:  msg.Command,
		Value:    msg.Value,
		Source:   msg.Source,
		Success:  cmdErr == nil,
	}
	if cmdErr != nil {
		entry.Error = cmdErr.Error()
	}
	// The command context may already be done; the log entry still matters.
	if err := b.audit.Create(context.WithoutCancel(ctx), entry); err != nil {
		b.logger.Warn("failed to record command", "device_id", deviceID, "error", err)
	}
}

// handleCommand is the MQTT handler for xcomfort/command/device/{id}.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	deviceID, err := mqtt.ParseDeviceID(topic)
	if err != nil {
		return err
	}

	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.publishAck(deviceID, NewAckError(deviceID, msg, fmt.Errorf("%w: %v", ErrInvalidValue, err)))
		return fmt.Errorf("parse command: %w", err)
	}
	if msg.Source == "" {
		msg.Source = audit.SourceMQTT
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := b.HandleCommand(ctx, deviceID, msg); err != nil {
		b.publishAck(deviceID, NewAckError(deviceID, msg, err))
		return nil
	}
	b.publishAck(deviceID, NewAckMessage(deviceID, msg))
	return nil
}

func (b *Bridge) publishAck(deviceID int, ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logger.Error("failed to marshal ack", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.DeviceAck(deviceID), payload, b.qos, false); err != nil {
		b.logger.Error("failed to publish ack", "device_id", deviceID, "error", err)
	}
}

// SetRoomClimate applies cc to a room.
func (b *Bridge) SetRoomClimate(ctx context.Context, roomID int, cc ClimateCommand) error {
	return b.call(ctx, func() error {
		reg := b.currentRegistry()
		if reg == nil {
			return ErrNotReady
		}
		room, ok := reg.Room(roomID)
		if !ok {
			return fmt.Errorf("%w: %d", device.ErrRoomNotFound, roomID)
		}
		if cc.HvacMode != nil {
			if err := room.SetHvacMode(ctx, *cc.HvacMode); err != nil {
				return err
			}
		}
		if cc.Preset != nil {
			mode, err := device.ParseClimateMode(*cc.Preset)
			if err != nil {
				return err
			}
			if err := room.SetPreset(ctx, mode); err != nil {
				return err
			}
		}
		if cc.Setpoint != nil {
			if err := room.SetSetpoint(ctx, *cc.Setpoint); err != nil {
				return err
			}
		}
		return nil
	})
}

// ActivateScene asks the bridge to apply a scene.
func (b *Bridge) ActivateScene(ctx context.Context, sceneID int) error {
	return b.call(ctx, func() error {
		reg := b.currentRegistry()
		if reg == nil {
			return ErrNotReady
		}
		scene, ok := reg.Scene(sceneID)
		if !ok {
			return fmt.Errorf("%w: %d", device.ErrSceneNotFound, sceneID)
		}
		return scene.Activate(ctx)
	})
}

// applyCommand dispatches a named command to the device variant.
func applyCommand(ctx context.Context, d device.Device, command string, value any) error {
	switch command {
	case CommandSwitch:
		on, err := boolValue(value)
		if err != nil {
			return err
		}
		switch t := d.(type) {
		case *device.Light:
			return t.Switch(ctx, on)
		case *device.Appliance:
			return t.Switch(ctx, on)
		}

	case CommandDim:
		level, err := intValue(value)
		if err != nil {
			return err
		}
		if l, ok := d.(*device.Light); ok {
			return l.Dim(ctx, level)
		}

	case CommandMoveUp, CommandMoveDown, CommandStop, CommandMoveTo:
		shade, ok := d.(*device.Shade)
		if !ok {
			break
		}
		switch command {
		case CommandMoveUp:
			return shade.MoveUp(ctx)
		case CommandMoveDown:
			return shade.MoveDown(ctx)
		case CommandStop:
			return shade.MoveStop(ctx)
		default:
			pos, err := intValue(value)
			if err != nil {
				return err
			}
			return shade.MoveTo(ctx, pos)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	return fmt.Errorf("%w: %s on %s", device.ErrUnsupportedCommand, command, d.Kind())
}

func boolValue(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err == nil {
			return b, nil
		}
		switch t {
		case "on":
			return true, nil
		case "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: want bool, got %v", ErrInvalidValue, v)
}

func intValue(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(math.Round(t)), nil
	case int:
		return t, nil
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return int(math.Round(f)), nil
		}
	}
	return 0, fmt.Errorf("%w: want number, got %v", ErrInvalidValue, v)
}

// ErrorCode classifies a command error for acks and API responses.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, device.ErrRoomNotFound),
		errors.Is(err, device.ErrSceneNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrUnknownCommand),
		errors.Is(err, device.ErrUnsupportedCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrInvalidValue),
		errors.Is(err, device.ErrPositionOutOfRange),
		errors.Is(err, device.ErrInvalidClimateMode):
		return ErrCodeInvalidValue
	case errors.Is(err, device.ErrSafetyEnabled),
		errors.Is(err, device.ErrGoToUnsupported),
		errors.Is(err, device.ErrClimateOff):
		return ErrCodeRefused
	case errors.Is(err, ErrNotReady):
		return ErrCodeNotReady
	default:
		return ErrCodeBridgeError
	}
}
