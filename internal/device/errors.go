package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrSafetyEnabled) {
//	    // shade is locked by its safety sensor
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrComponentNotFound is returned when a component ID does not exist.
	ErrComponentNotFound = errors.New("device: component not found")

	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = errors.New("device: room not found")

	// ErrSceneNotFound is returned when a scene ID does not exist.
	ErrSceneNotFound = errors.New("device: scene not found")

	// ErrUnsupportedCommand is returned when a command does not apply to a device kind.
	ErrUnsupportedCommand = errors.New("device: unsupported command")

	// ErrSafetyEnabled is returned when a shade command is refused because
	// the shade's safety lock is active.
	ErrSafetyEnabled = errors.New("device: shade safety enabled")

	// ErrGoToUnsupported is returned when a positional move is requested from
	// a shade actuator that cannot go to arbitrary positions.
	ErrGoToUnsupported = errors.New("device: shade does not support go-to position")

	// ErrPositionOutOfRange is returned when a shade position is outside 0-100.
	ErrPositionOutOfRange = errors.New("device: position out of range")

	// ErrClimateOff is returned when a room preset change is requested while
	// the room's climate control is switched off.
	ErrClimateOff = errors.New("device: room climate is off")

	// ErrInvalidClimateMode is returned for an unknown climate mode or state.
	ErrInvalidClimateMode = errors.New("device: invalid climate mode")

	// ErrNoSender is returned when a command is issued without a transport.
	ErrNoSender = errors.New("device: no request sender configured")

	// ErrInvalidSnapshot is returned when a snapshot record cannot be decoded.
	ErrInvalidSnapshot = errors.New("device: invalid snapshot")
)
