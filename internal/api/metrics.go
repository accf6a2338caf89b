package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	WebSocket     WSMetrics         `json:"websocket"`
	Engine        EngineMetrics     `json:"engine"`
	Dispatcher    DispatcherMetrics `json:"dispatcher"`
	Devices       int               `json:"devices"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedFrames    uint64 `json:"dropped_frames"`
}

// EngineMetrics reports the native engine state.
type EngineMetrics struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
}

// DispatcherMetrics contains callback queue counters.
type DispatcherMetrics struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// handleMetrics returns system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
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
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			DroppedFrames:    s.hub.Dropped(),
		},
		Devices: len(s.devices.Devices()),
	}

	if s.engine != nil && s.engine.Available() {
		metrics.Engine = EngineMetrics{Available: true, Version: s.engine.Version()}
	}

	if s.stats != nil {
		metrics.Dispatcher.Published, metrics.Dispatcher.Dropped = s.stats.Stats()
	}

	writeJSON(w, http.StatusOK, metrics)
}
