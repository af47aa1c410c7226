// Package power turns raw power telemetry into corrected readings and
// accumulated energy.
//
// Heating actuators occasionally keep reporting their last non-zero power
// after the load has switched off. The room the heater sits in reports its
// own aggregate power, so a heater whose room has read zero for long enough
// while the heater itself still reads non-zero is considered stuck. The
// Watchdog detects this and forces the published heater power to zero until
// the room or the heater reports a fresh reading.
//
// The Monitor wires heaters, rooms and lights from the device registry to
// watchdogs and energy integrators, and publishes Readings through one
// state cell per source. Energy totals survive restarts via Store.
//
//	heater cell ─┐
//	             ├─> Watchdog ─> corrected W ─> Integrator ─> Reading cell
//	room cell ───┘        ▲
//	tick ─────────────────┘
//
// Monitor methods that mutate state must be called from the goroutine that
// owns the device graph. Reading lookups and Totals are safe from any
// goroutine.
package power
