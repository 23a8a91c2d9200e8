package relay

import (
	"fmt"

	"github.com/kailoud/blueme/internal/device"
)

// Inbound event names (client to server).
const (
	EventJoinRoom         = "join-sync-room"
	EventDiscoverDevices  = "discover-devices"
	EventConnectDevice    = "connect-device"
	EventDisconnectDevice = "disconnect-device"
	EventPlayMusic        = "play-music"
	EventPauseMusic       = "pause-music"
	EventSeekMusic        = "seek-music"
	EventVolumeChange     = "volume-change"
	EventGetDeviceStatus  = "get-device-status"
)

// Outbound event names (server to client).
const (
	EventUserJoined         = "user-joined"
	EventUserLeft           = "user-left"
	EventDevicesDiscovered  = "devices-discovered"
	EventDeviceConnected    = "device-connected"
	EventDeviceDisconnected = "device-disconnected"
	EventDeviceStatusUpdate = "device-status-update"
	EventMusicPlay          = "music-play"
	EventMusicPause         = "music-pause"
	EventMusicSeek          = "music-seek"
	EventVolumeUpdated      = "volume-updated"
	EventSyncStatus         = "sync-status"
	EventConnectionError    = "connection-error"
	EventDisconnectionError = "disconnection-error"
	EventDiscoveryError     = "discovery-error"
	EventSyncError          = "sync-error"
)

// JoinRoomRequest is the payload of a join-sync-room event.
type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

// ConnectDeviceRequest is the payload of a connect-device event.
type ConnectDeviceRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

// DisconnectDeviceRequest is the payload of a disconnect-device event.
type DisconnectDeviceRequest struct {
	DeviceID string `json:"deviceId"`
}

// PlayRequest is the payload of a play-music event.
type PlayRequest struct {
	RoomID    string  `json:"roomId"`
	TrackID   string  `json:"trackId"`
	Timestamp float64 `json:"timestamp"`
}

// PauseRequest is the payload of a pause-music event.
type PauseRequest struct {
	RoomID  string `json:"roomId"`
	TrackID string `json:"trackId"`
}

// SeekRequest is the payload of a seek-music event.
type SeekRequest struct {
	RoomID   string  `json:"roomId"`
	TrackID  string  `json:"trackId"`
	Position float64 `json:"position"`
}

// VolumeRequest is the payload of a volume-change event.
type VolumeRequest struct {
	RoomID string  `json:"roomId"`
	Volume float64 `json:"volume"`
}

// UserEvent announces a participant joining or leaving a sync room.
type UserEvent struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

// DeviceStatus carries a full snapshot of currently connected devices.
type DeviceStatus struct {
	Devices []device.Device `json:"devices"`
}

// DevicesDiscovered carries the discovery catalog.
type DevicesDiscovered struct {
	Devices []device.Descriptor `json:"devices"`
}

// DeviceResult acknowledges a connect or disconnect to the caller.
type DeviceResult struct {
	Device *device.Device `json:"device"`
}

// PlayEvent is relayed to the other room members when playback starts.
type PlayEvent struct {
	TrackID     string              `json:"trackId"`
	Timestamp   float64             `json:"timestamp"`
	UserID      string              `json:"userId"`
	SyncResults []device.SyncResult `json:"syncResults"`
}

// PauseEvent is relayed to the other room members when playback pauses.
type PauseEvent struct {
	TrackID string `json:"trackId"`
	UserID  string `json:"userId"`
}

// SeekEvent is relayed to the other room members on a seek.
type SeekEvent struct {
	TrackID  string  `json:"trackId"`
	Position float64 `json:"position"`
	UserID   string  `json:"userId"`
}

// VolumeEvent is relayed to the other room members on a volume change.
type VolumeEvent struct {
	Volume float64 `json:"volume"`
	UserID string  `json:"userId"`
}

// SyncStatus acknowledges a play-music sync to the initiating caller.
type SyncStatus struct {
	Status  string              `json:"status"`
	Devices int                 `json:"devices"`
	Message string              `json:"message"`
	Results []device.SyncResult `json:"results"`
}

// ErrorEvent carries a failure back to the initiating caller only.
type ErrorEvent struct {
	DeviceID string `json:"deviceId,omitempty"`
	Error    string `json:"error"`
}

// syncStatusMessage builds the human-readable sync acknowledgement text.
func syncStatusMessage(n int) string {
	return fmt.Sprintf("Music synced to %d devices", n)
}
