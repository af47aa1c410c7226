// Package device models the devices, components, rooms and scenes of an
// Eaton xComfort bridge and turns the bridge's partial, loosely-typed
// payloads into typed state snapshots.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────────┐
//	│                             Registry                              │
//	│   devices[id]   components[id]   rooms[id]   scenes[id]           │
//	└──────┬──────────────────┬───────────────────────────────▲─────────┘
//	       │ HandleState      │ HandleState                   │ lookup by id
//	       ▼                  ▼                               │
//	┌──────────────┐   ┌──────────────┐   subscribe   ┌───────┴───────┐
//	│ Light/Heater │   │  Component   │──────────────▶│    Rocker     │
//	│ Shade/...    │   │  (cell)      │               │ (companion    │
//	│ (cell)       │◀──┼──────────────┼───────────────│  resolution)  │
//	└──────────────┘   └──────────────┘   subscribe   └───────────────┘
//
// Every device owns a statecell.Cell holding its latest snapshot. Reducers
// differ per variant:
//
//   - Light and Shade keep fields that a payload does not mention
//   - Heater and ClimateTouch compute each snapshot only from the payload
//     that produced it
//   - Rocker follows curstate and, on multisensor components, mirrors the
//     temperature and humidity of a companion device
//
// Cross references (component ids, controlId lists, tempRoom) are resolved
// lazily through the Registry, which implements Directory. Resolution is
// retried until it succeeds and subscribes at most once.
//
// # Commands
//
// Commands build a Request and hand it to a Sender. Refusals are reported
// with sentinel errors:
//
//	if err := shade.MoveTo(ctx, 50); errors.Is(err, device.ErrGoToUnsupported) {
//	    // fall back to MoveDown
//	}
//
// # Thread Safety
//
// HandleState, Resolve and Close must run on the single goroutine that owns
// the device graph (the bridge event loop). Subscribe, Current and the
// Registry lookups are safe from any goroutine.
package device
