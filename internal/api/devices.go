package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/maa-core/internal/device"
)

// maxImageSize bounds a single screenshot copied out of the engine.
const maxImageSize = 5 << 20

// addDeviceRequest is the body of POST /devices.
type addDeviceRequest struct {
	UUID    string `json:"uuid"`
	Address string `json:"address"`
	ADBPath string `json:"adb_path,omitempty"`
	Profile string `json:"profile,omitempty"`
}

// handleListDevices returns the uuids of the attached devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.devices.Devices()
	if devices == nil {
		devices = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleAddDevice creates and connects an engine instance for a device.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.UUID == "" || req.Address == "" {
		writeBadRequest(w, "uuid and address are required")
		return
	}

	err := s.devices.Add(r.Context(), device.Connection{
		UUID:    req.UUID,
		Address: req.Address,
		ADBPath: req.ADBPath,
		Profile: req.Profile,
	})
	if err != nil {
		writeDeviceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"uuid": req.UUID})
}

// handleRemoveDevice destroys a device's engine instance and saves its list.
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.devices.Remove(r.Context(), chi.URLParam(r, "uuid")); err != nil {
		writeDeviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartDevice queues the enabled tasks and starts the engine.
func (s *Server) handleStartDevice(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	if err := s.devices.Start(r.Context(), uuid); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"uuid": uuid, "status": "started"})
}

// handleStopDevice stops the engine and marks running tasks as stopped.
func (s *Server) handleStopDevice(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	if err := s.devices.Stop(r.Context(), uuid); err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uuid": uuid, "status": "stopped"})
}

// handleDeviceImage returns the last screenshot taken by the engine.
// 204 means the engine has no image for the device yet.
func (s *Server) handleDeviceImage(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil || !s.engine.Available() {
		writeDeviceError(w, device.ErrEngineUnavailable)
		return
	}

	buf := make([]byte, maxImageSize)
	n := s.engine.GetImage(chi.URLParam(r, "uuid"), buf)
	if n == 0 || n > uint64(len(buf)) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(buf[:n]))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(buf[:n])
}
