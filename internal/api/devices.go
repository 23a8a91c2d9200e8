package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailoud/blueme/internal/device"
)

// connectDeviceRequest is the body of POST /api/devices/connect.
type connectDeviceRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

// syncAudioRequest is the body of POST /api/devices/sync.
type syncAudioRequest struct {
	TrackID   string  `json:"trackId"`
	Timestamp float64 `json:"timestamp"`
}

// handleListDevices returns the currently connected devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"devices": s.registry.Devices(),
	})
}

// handleDiscoverDevices returns the discovery catalog.
func (s *Server) handleDiscoverDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"devices": s.registry.Discover(r.Context()),
	})
}

// handleConnectDevice claims a device through the registry. The connected
// state change fans out to relay participants the same way a WebSocket
// connect does.
func (s *Server) handleConnectDevice(w http.ResponseWriter, r *http.Request) {
	var req connectDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeviceID == "" {
		writeBadRequest(w, "deviceId is required")
		return
	}

	dev, err := s.registry.Connect(r.Context(), req.DeviceID, req.DeviceName)
	if err != nil {
		s.logger.Warn("device connect failed", "device", req.DeviceID, "error", err)
		writeError(w, http.StatusBadGateway, "device connection failed")
		return
	}

	s.hub.BroadcastDeviceStatus()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "device": dev})
}

// handleDisconnectDevice releases the device named in the path.
func (s *Server) handleDisconnectDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")

	dev, err := s.registry.Disconnect(deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not connected")
			return
		}
		s.logger.Error("device disconnect failed", "device", deviceID, "error", err)
		writeInternalError(w, "device disconnect failed")
		return
	}

	s.hub.BroadcastDeviceStatus()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "device": dev})
}

// handleSyncAudio streams one track to every connected device and returns
// the per-device results.
func (s *Server) handleSyncAudio(w http.ResponseWriter, r *http.Request) {
	var req syncAudioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TrackID == "" {
		writeBadRequest(w, "trackId is required")
		return
	}

	results := s.registry.SyncAudio(r.Context(),
		device.SyncPayload{TrackID: req.TrackID, Timestamp: req.Timestamp}, "http")

	synced := 0
	for _, res := range results {
		if res.Status == device.SyncStatusSynced {
			synced++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"synced":  synced,
		"results": results,
	})
}
