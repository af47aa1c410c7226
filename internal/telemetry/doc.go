// Package telemetry exports device, room and energy state as Prometheus
// metrics and InfluxDB points.
//
// A Recorder subscribes to device, room and power-monitor cells and
// mirrors every emitted state into gauges. Subscriptions fire on the
// bridge event loop, so gauge updates and point writes must stay cheap:
// both the Prometheus vectors and the batched InfluxDB writer qualify.
package telemetry
