package device

import "time"

// Device represents a claimed audio output endpoint tracked by the registry.
//
// A device id maps to at most one entry; disconnecting removes the entry
// entirely. Battery is fabricated at connect time and not refreshed.
type Device struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Connected    bool      `json:"connected"`
	ConnectedAt  time.Time `json:"connectedAt"`
	Battery      int       `json:"battery"`
	AudioSupport bool      `json:"audioSupport"`
	SyncCapable  bool      `json:"syncCapable"`
}

// Descriptor is one entry of the discovery catalog: a candidate device
// that can be connected but is not yet claimed.
type Descriptor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Battery      int    `json:"battery"`
	AudioSupport bool   `json:"audioSupport"`
}

// Sync result statuses.
const (
	SyncStatusSynced = "synced"
	SyncStatusFailed = "failed"
)

// SyncResult is the outcome of streaming one payload to one device.
type SyncResult struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	Status     string `json:"status"`
	LatencyMS  int    `json:"latency,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SyncPayload describes the track being synced to connected devices.
type SyncPayload struct {
	TrackID   string  `json:"trackId"`
	Timestamp float64 `json:"timestamp"`
}

// catalog is the static discovery result. There is no real scanning;
// these are the candidates a client can ask to connect.
var catalog = []Descriptor{
	{ID: "device-1", Name: "AirPods Pro", Type: "headphones", Battery: 85, AudioSupport: true},
	{ID: "device-2", Name: "Sony WH-1000XM4", Type: "headphones", Battery: 92, AudioSupport: true},
	{ID: "device-3", Name: "JBL Flip 5", Type: "speaker", Battery: 78, AudioSupport: true},
	{ID: "device-4", Name: "Galaxy Buds Pro", Type: "earbuds", Battery: 67, AudioSupport: true},
}
