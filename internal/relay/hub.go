package relay

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kailoud/blueme/internal/device"
	"github.com/kailoud/blueme/internal/infrastructure/logging"
)

// Conn is the transport half of a relay participant. The WebSocket layer
// implements it; tests substitute an in-memory fake.
//
// Send must not block the hub: implementations buffer or drop.
type Conn interface {
	// ID returns the stable participant identifier for this connection.
	ID() string

	// Send delivers one event to the participant.
	Send(event string, payload any)
}

// participant is one registered connection plus its room memberships.
// Room membership is tracked here so a vanishing connection can be swept
// out of every room it joined.
type participant struct {
	conn  Conn
	rooms map[string]struct{}
}

// EventSink receives copies of notable relay activity for external
// observers. The MQTT bridge implements it. Implementations must not
// block the relay path.
type EventSink interface {
	PublishSessionEvent(roomID, event string, payload any)
	PublishDeviceStatus(dev *device.Device)
	PublishSyncResults(roomID string, results []device.SyncResult)
}

// MetricsSink records relay measurements. The telemetry client
// implements it. Implementations must not block the relay path.
type MetricsSink interface {
	WriteSyncResults(roomID string, results []device.SyncResult)
	WriteDeviceEvent(deviceID, event string, battery int)
	WriteSessionGauge(roomID string, participants int)
}

// Hub routes sync-session events between participants and drives the
// device registry for the device-facing events.
//
// All state is guarded by one mutex; handler work that can block (device
// connect, audio sync) runs outside the lock.
type Hub struct {
	registry *device.Registry
	logger   *logging.Logger

	events  EventSink   // optional
	metrics MetricsSink // optional

	mu           sync.RWMutex
	participants map[string]*participant
	rooms        map[string]map[string]*participant
}

// NewHub creates a relay hub bound to the given device registry.
func NewHub(registry *device.Registry, logger *logging.Logger) *Hub {
	return &Hub{
		registry:     registry,
		logger:       logger,
		participants: make(map[string]*participant),
		rooms:        make(map[string]map[string]*participant),
	}
}

// SetEventSink attaches an external event observer, normally the MQTT
// bridge. Call before serving traffic.
func (h *Hub) SetEventSink(sink EventSink) {
	h.events = sink
}

// SetMetricsSink attaches a metrics recorder, normally the telemetry
// client. Call before serving traffic.
func (h *Hub) SetMetricsSink(sink MetricsSink) {
	h.metrics = sink
}

// Register adds a connection to the hub. The connection participates in no
// room until it sends join-sync-room.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	h.participants[conn.ID()] = &participant{
		conn:  conn,
		rooms: make(map[string]struct{}),
	}
	n := len(h.participants)
	h.mu.Unlock()

	h.logger.Debug("relay participant registered", "user", conn.ID(), "participants", n)
}

// Unregister removes a connection from the hub and from every room it
// joined, announcing user-left to each room's remaining members.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	p, ok := h.participants[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.participants, id)

	left := make([]string, 0, len(p.rooms))
	for room := range p.rooms {
		left = append(left, room)
		if members, ok := h.rooms[room]; ok {
			delete(members, id)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()

	for _, room := range left {
		ev := UserEvent{UserID: id, RoomID: room}
		h.broadcastRoom(room, id, EventUserLeft, ev)
		if h.events != nil {
			h.events.PublishSessionEvent(room, EventUserLeft, ev)
		}
		if h.metrics != nil {
			h.metrics.WriteSessionGauge(room, len(h.RoomMembers(room)))
		}
	}

	h.logger.Debug("relay participant unregistered", "user", id, "rooms", len(left))
}

// Dispatch routes one inbound event from a registered participant. Unknown
// events are logged and dropped; malformed payloads produce the matching
// caller-only error event where one exists.
func (h *Hub) Dispatch(ctx context.Context, id, event string, data json.RawMessage) {
	h.mu.RLock()
	p, ok := h.participants[id]
	h.mu.RUnlock()
	if !ok {
		h.logger.Warn("dispatch from unregistered participant", "user", id, "event", event)
		return
	}

	switch event {
	case EventJoinRoom:
		h.handleJoinRoom(p, data)
	case EventDiscoverDevices:
		h.handleDiscoverDevices(ctx, p)
	case EventConnectDevice:
		h.handleConnectDevice(ctx, p, data)
	case EventDisconnectDevice:
		h.handleDisconnectDevice(p, data)
	case EventPlayMusic:
		h.handlePlayMusic(ctx, p, data)
	case EventPauseMusic:
		h.handlePauseMusic(p, data)
	case EventSeekMusic:
		h.handleSeekMusic(p, data)
	case EventVolumeChange:
		h.handleVolumeChange(p, data)
	case EventGetDeviceStatus:
		p.conn.Send(EventDeviceStatusUpdate, DeviceStatus{Devices: h.registry.Devices()})
	default:
		h.logger.Debug("unknown relay event", "user", id, "event", event)
	}
}

// BroadcastDeviceStatus pushes the current device snapshot to every
// participant. The HTTP device endpoints call it so REST-driven state
// changes reach WebSocket clients too.
func (h *Hub) BroadcastDeviceStatus() {
	h.broadcastAll("", EventDeviceStatusUpdate, DeviceStatus{Devices: h.registry.Devices()})
}

// ParticipantCount returns the number of registered connections.
func (h *Hub) ParticipantCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.participants)
}

// RoomMembers returns the participant ids currently in a room.
func (h *Hub) RoomMembers(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		out = append(out, id)
	}
	return out
}

func (h *Hub) handleJoinRoom(p *participant, data json.RawMessage) {
	var req JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		h.logger.Warn("malformed join-sync-room payload", "user", p.conn.ID())
		return
	}

	h.mu.Lock()
	members, ok := h.rooms[req.RoomID]
	if !ok {
		members = make(map[string]*participant)
		h.rooms[req.RoomID] = members
	}
	members[p.conn.ID()] = p
	p.rooms[req.RoomID] = struct{}{}
	memberCount := len(members)
	h.mu.Unlock()

	h.logger.Info("user joined sync room", "user", p.conn.ID(), "room", req.RoomID)

	ev := UserEvent{UserID: p.conn.ID(), RoomID: req.RoomID}
	h.broadcastRoom(req.RoomID, p.conn.ID(), EventUserJoined, ev)
	if h.events != nil {
		h.events.PublishSessionEvent(req.RoomID, EventUserJoined, ev)
	}
	if h.metrics != nil {
		h.metrics.WriteSessionGauge(req.RoomID, memberCount)
	}

	// Late joiners need the current device picture to render the session.
	p.conn.Send(EventDeviceStatusUpdate, DeviceStatus{Devices: h.registry.Devices()})
}

func (h *Hub) handleDiscoverDevices(ctx context.Context, p *participant) {
	descriptors := h.registry.Discover(ctx)
	p.conn.Send(EventDevicesDiscovered, DevicesDiscovered{Devices: descriptors})
}

func (h *Hub) handleConnectDevice(ctx context.Context, p *participant, data json.RawMessage) {
	var req ConnectDeviceRequest
	if err := json.Unmarshal(data, &req); err != nil || req.DeviceID == "" {
		p.conn.Send(EventConnectionError, ErrorEvent{Error: "deviceId is required"})
		return
	}

	dev, err := h.registry.Connect(ctx, req.DeviceID, req.DeviceName)
	if err != nil {
		p.conn.Send(EventConnectionError, ErrorEvent{DeviceID: req.DeviceID, Error: err.Error()})
		return
	}

	p.conn.Send(EventDeviceConnected, DeviceResult{Device: dev})
	if h.events != nil {
		h.events.PublishDeviceStatus(dev)
	}
	if h.metrics != nil {
		h.metrics.WriteDeviceEvent(dev.ID, "connected", dev.Battery)
	}

	// Device state is process-global, so the status update goes to every
	// other participant, not just the caller's rooms.
	h.broadcastAll(p.conn.ID(), EventDeviceStatusUpdate, DeviceStatus{Devices: h.registry.Devices()})
}

func (h *Hub) handleDisconnectDevice(p *participant, data json.RawMessage) {
	var req DisconnectDeviceRequest
	if err := json.Unmarshal(data, &req); err != nil || req.DeviceID == "" {
		p.conn.Send(EventDisconnectionError, ErrorEvent{Error: "deviceId is required"})
		return
	}

	dev, err := h.registry.Disconnect(req.DeviceID)
	if err != nil {
		p.conn.Send(EventDisconnectionError, ErrorEvent{DeviceID: req.DeviceID, Error: err.Error()})
		return
	}

	p.conn.Send(EventDeviceDisconnected, DeviceResult{Device: dev})
	if h.events != nil {
		h.events.PublishDeviceStatus(dev)
	}
	if h.metrics != nil {
		h.metrics.WriteDeviceEvent(dev.ID, "disconnected", dev.Battery)
	}
	h.broadcastAll(p.conn.ID(), EventDeviceStatusUpdate, DeviceStatus{Devices: h.registry.Devices()})
}

func (h *Hub) handlePlayMusic(ctx context.Context, p *participant, data json.RawMessage) {
	var req PlayRequest
	if err := json.Unmarshal(data, &req); err != nil || req.TrackID == "" {
		p.conn.Send(EventSyncError, ErrorEvent{Error: "trackId is required"})
		return
	}

	payload := device.SyncPayload{TrackID: req.TrackID, Timestamp: req.Timestamp}
	results := h.registry.SyncAudio(ctx, payload, req.RoomID)

	if h.events != nil {
		h.events.PublishSyncResults(req.RoomID, results)
	}
	if h.metrics != nil {
		h.metrics.WriteSyncResults(req.RoomID, results)
	}

	h.broadcastRoom(req.RoomID, p.conn.ID(), EventMusicPlay, PlayEvent{
		TrackID:     req.TrackID,
		Timestamp:   req.Timestamp,
		UserID:      p.conn.ID(),
		SyncResults: results,
	})

	synced := 0
	for _, r := range results {
		if r.Status == device.SyncStatusSynced {
			synced++
		}
	}
	p.conn.Send(EventSyncStatus, SyncStatus{
		Status:  "synced",
		Devices: synced,
		Message: syncStatusMessage(synced),
		Results: results,
	})
}

func (h *Hub) handlePauseMusic(p *participant, data json.RawMessage) {
	var req PauseRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	h.broadcastRoom(req.RoomID, p.conn.ID(), EventMusicPause,
		PauseEvent{TrackID: req.TrackID, UserID: p.conn.ID()})
}

func (h *Hub) handleSeekMusic(p *participant, data json.RawMessage) {
	var req SeekRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	h.broadcastRoom(req.RoomID, p.conn.ID(), EventMusicSeek,
		SeekEvent{TrackID: req.TrackID, Position: req.Position, UserID: p.conn.ID()})
}

func (h *Hub) handleVolumeChange(p *participant, data json.RawMessage) {
	var req VolumeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	h.broadcastRoom(req.RoomID, p.conn.ID(), EventVolumeUpdated,
		VolumeEvent{Volume: req.Volume, UserID: p.conn.ID()})
}

// broadcastRoom sends an event to every room member except the sender.
// Members are snapshotted under the lock, then sent to outside it.
func (h *Hub) broadcastRoom(room, exceptID, event string, payload any) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[room]))
	for id, member := range h.rooms[room] {
		if id == exceptID {
			continue
		}
		targets = append(targets, member.conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		conn.Send(event, payload)
	}
}

// broadcastAll sends an event to every registered participant except the
// sender, regardless of room membership.
func (h *Hub) broadcastAll(exceptID, event string, payload any) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.participants))
	for id, member := range h.participants {
		if id == exceptID {
			continue
		}
		targets = append(targets, member.conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		conn.Send(event, payload)
	}
}
