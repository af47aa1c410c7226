// Package xcomfort connects the device model to the xComfort bridge feed.
//
// A transport relay (outside this module) holds the encrypted session with
// the bridge and mirrors its traffic onto MQTT:
//
//	┌─────────────┐  feed/{bridge}/snapshot   ┌──────────────────┐
//	│  transport  │ ────────────────────────► │  Bridge          │
//	│   relay     │  feed/{bridge}/update     │  (this pkg)      │──► state/…, health/…
//	│             │ ◄──────────────────────── │                  │◄── command/device/+
//	└─────────────┘  feed/{bridge}/request    └──────────────────┘
//
// The Bridge builds a device.Registry from the snapshot, routes updates to
// devices, components, rooms and scenes, runs the power monitor and
// publishes every emitted state.
//
// # Concurrency
//
// Every mutation of the registry happens on one event loop goroutine.
// MQTT callbacks, commands from the API and watchdog ticks are posted into
// the loop. Readers outside the loop use the registry's lookups and each
// state cell's Current, which are safe for concurrent use.
package xcomfort
