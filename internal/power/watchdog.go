package power

import "time"

// Defaults for stale heater power protection.
const (
	DefaultThresholdW   = 0.5
	DefaultZeroWindow   = 20 * time.Second
	DefaultTickInterval = 20 * time.Second
)

// WatchdogConfig tunes a Watchdog.
type WatchdogConfig struct {
	// ThresholdW is the power at or below which a reading counts as zero.
	ThresholdW float64

	// Window is how long the room must read zero before the heater is
	// forced to zero.
	Window time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Heater and Room label log lines.
	Heater string
	Room   string
}

// Watchdog is the hysteresis state machine for one heater/room pair.
//
// Room readings at or below the threshold start the zero window; a room
// reading above it clears both the window and any forced zero. A heater
// reading at or below the threshold clears the forced zero. Room, heater and
// tick events all evaluate the trigger.
//
// A Watchdog is not safe for concurrent use.
type Watchdog struct {
	cfg    WatchdogConfig
	logger Logger

	heaterW       *float64
	roomZeroSince time.Time
	forcedZero    bool
}

// NewWatchdog creates a watchdog. Zero config fields take the defaults.
func NewWatchdog(cfg WatchdogConfig, logger Logger) *Watchdog {
	if cfg.ThresholdW <= 0 {
		cfg.ThresholdW = DefaultThresholdW
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultZeroWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Watchdog{cfg: cfg, logger: logger}
}

// ObserveRoom feeds a room power reading. It reports whether the forced
// zero flag changed.
func (w *Watchdog) ObserveRoom(powerW float64) bool {
	before := w.forcedZero
	now := w.cfg.Now()
	if powerW <= w.cfg.ThresholdW {
		if w.roomZeroSince.IsZero() {
			w.roomZeroSince = now
		}
	} else {
		w.roomZeroSince = time.Time{}
		w.forcedZero = false
	}
	w.evaluate(now, "room update")
	return before != w.forcedZero
}

// ObserveHeater feeds a raw heater power reading. It reports whether the
// forced zero flag changed.
func (w *Watchdog) ObserveHeater(powerW float64) bool {
	before := w.forcedZero
	w.heaterW = &powerW
	if powerW <= w.cfg.ThresholdW {
		w.forcedZero = false
	}
	w.evaluate(w.cfg.Now(), "heater update")
	return before != w.forcedZero
}

// Tick evaluates the trigger without new input. It reports whether the
// forced zero flag changed.
func (w *Watchdog) Tick() bool {
	before := w.forcedZero
	w.evaluate(w.cfg.Now(), "periodic check")
	return before != w.forcedZero
}

func (w *Watchdog) evaluate(now time.Time, reason string) {
	if w.forcedZero || w.roomZeroSince.IsZero() || w.heaterW == nil {
		return
	}
	if *w.heaterW <= w.cfg.ThresholdW {
		return
	}
	elapsed := now.Sub(w.roomZeroSince)
	if elapsed < w.cfg.Window {
		return
	}
	w.forcedZero = true
	w.logger.Warn("forcing heater power to 0, room reported 0",
		"reason", reason,
		"heater", w.cfg.Heater,
		"room", w.cfg.Room,
		"elapsed_seconds", int(elapsed.Seconds()),
		"overridden_power", *w.heaterW,
	)
}

// Corrected returns the power to publish: 0 while forced, otherwise the
// last raw heater reading. ok is false before any heater reading.
func (w *Watchdog) Corrected() (powerW float64, ok bool) {
	if w.heaterW == nil {
		return 0, false
	}
	if w.forcedZero {
		return 0, true
	}
	return *w.heaterW, true
}

// ForcedZero reports whether the heater is currently forced to zero.
func (w *Watchdog) ForcedZero() bool { return w.forcedZero }

// RoomZeroSince returns when the room started reading zero.
func (w *Watchdog) RoomZeroSince() (time.Time, bool) {
	return w.roomZeroSince, !w.roomZeroSince.IsZero()
}
