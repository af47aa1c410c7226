// Package influxdb writes xComfort telemetry to InfluxDB 2.x.
//
// Three measurements are recorded:
//
//	energy   tags source,id,name         fields power_w,raw_power_w,energy_kwh,protected
//	climate  tags scope,id,name          fields temperature_c,humidity_pct,power_w
//	shade    tags id,name                fields position,safety
//
// Writes go through the non-blocking batched write API. Failures surface
// asynchronously through SetOnError. Point builders are plain functions so
// callers and tests can inspect a point without a server.
package influxdb
