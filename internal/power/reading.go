package power

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceKind is the kind of entity a reading belongs to.
type SourceKind string

// Source kinds.
const (
	SourceHeater SourceKind = "heater"
	SourceRoom   SourceKind = "room"
	SourceLight  SourceKind = "light"
)

// Key identifies a power source.
type Key struct {
	Kind SourceKind
	ID   int
}

// String returns "kind/id".
func (k Key) String() string { return fmt.Sprintf("%s/%d", k.Kind, k.ID) }

// ParseKey parses the form produced by Key.String.
func ParseKey(s string) (Key, error) {
	kind, id, ok := strings.Cut(s, "/")
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	switch SourceKind(kind) {
	case SourceHeater, SourceRoom, SourceLight:
	default:
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key{Kind: SourceKind(kind), ID: n}, nil
}

// Reading is the published power state of one source.
type Reading struct {
	Kind SourceKind `json:"kind"`
	ID   int        `json:"id"`
	Name string     `json:"name"`

	// PowerW is the corrected power. RawPowerW is what the device reported.
	PowerW    float64 `json:"power"`
	RawPowerW float64 `json:"raw_power"`
	EnergyKWh float64 `json:"energy_kwh"`

	// Watchdog view. Only meaningful when Protected is true.
	Protected     bool       `json:"protected"`
	RoomID        int        `json:"room_id,omitempty"`
	ForcedZero    bool       `json:"forced_zero"`
	RoomZeroSince *time.Time `json:"room_zero_since,omitempty"`

	At time.Time `json:"at"`
}

// Key returns the reading's source key.
func (r Reading) Key() Key { return Key{Kind: r.Kind, ID: r.ID} }
