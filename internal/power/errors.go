package power

import "errors"

// Domain errors for the power package.
var (
	// ErrUnknownSource is returned when a reading is requested for a source
	// the monitor does not track.
	ErrUnknownSource = errors.New("power: unknown source")

	// ErrInvalidKey is returned when a persisted energy total has an
	// unrecognised source kind.
	ErrInvalidKey = errors.New("power: invalid source key")
)
