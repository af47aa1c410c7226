// Package api implements the HTTP REST API and WebSocket server for the
// xComfort bridge.
//
// This package provides:
//   - read endpoints for devices, components, rooms, scenes and heater power
//   - command endpoints that forward to the bridge's event loop
//   - a WebSocket hub that relays state change events
//   - the Prometheus scrape endpoint
//   - middleware (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server never touches device state directly. Reads go through the
// bridge's registry, whose cells are safe for concurrent reads; commands go
// through the bridge so they run on its event loop. State changes reach
// WebSocket clients through the bridge's event subscription.
//
// # Graceful Degradation
//
// Until the first snapshot arrives every registry-backed endpoint answers
// 503 with code not_ready. Health, metrics and the WebSocket stay available.
package api
