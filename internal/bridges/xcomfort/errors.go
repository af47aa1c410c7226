package xcomfort

import "errors"

// Domain errors for the xComfort bridge package.
var (
	// ErrNotReady is returned when an operation needs the device registry
	// before the first snapshot has been loaded.
	ErrNotReady = errors.New("xcomfort: snapshot not loaded")

	// ErrStopped is returned when the bridge event loop has shut down.
	ErrStopped = errors.New("xcomfort: bridge stopped")

	// ErrUnknownCommand is returned for a command name the target cannot handle.
	ErrUnknownCommand = errors.New("xcomfort: unknown command")

	// ErrInvalidValue is returned when a command value has the wrong type.
	ErrInvalidValue = errors.New("xcomfort: invalid command value")

	// ErrInvalidUpdate is returned for a feed update that cannot be routed.
	ErrInvalidUpdate = errors.New("xcomfort: invalid feed update")
)
