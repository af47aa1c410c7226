package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/device"
)

// SystemMetrics is the JSON runtime summary served at /api/v1/system.
// Prometheus series are served separately at the metrics path.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     HubStats       `json:"websocket"`
	MQTT          MQTTMetrics    `json:"mqtt"`
	Devices       DeviceMetrics  `json:"devices"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// DeviceMetrics counts registry entries.
type DeviceMetrics struct {
	Total      int                 `json:"total"`
	ByKind     map[device.Kind]int `json:"by_kind"`
	Components int                 `json:"components"`
	Rooms      int                 `json:"rooms"`
	Scenes     int                 `json:"scenes"`
}

// handleSystemMetrics returns runtime and registry statistics.
func (s *Server) handleSystemMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: s.hub.Stats(),
		Devices: DeviceMetrics{ByKind: make(map[device.Kind]int)},
	}

	if s.mqtt != nil {
		metrics.MQTT.Connected = s.mqtt.IsConnected()
	}

	if reg, ok := s.bridge.Registry(); ok {
		for _, d := range reg.Devices() {
			metrics.Devices.ByKind[d.Kind()]++
		}
		metrics.Devices.Total, metrics.Devices.Components, metrics.Devices.Rooms, metrics.Devices.Scenes = reg.Counts()
	}

	writeJSON(w, http.StatusOK, metrics)
}

// BridgeView is the bridge identity taken from the last snapshot.
type BridgeView struct {
	device.BridgeInfo
	SnapshotAt time.Time `json:"snapshot_at"`
}

// handleBridgeInfo returns the bridge's name, model and firmware.
func (s *Server) handleBridgeInfo(w http.ResponseWriter, _ *http.Request) {
	info, at := s.bridge.Info()
	if at.IsZero() {
		writeNotReady(w)
		return
	}
	writeJSON(w, http.StatusOK, BridgeView{BridgeInfo: info, SnapshotAt: at})
}
