package device

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry tracks the set of currently connected devices and drives the
// device transport for connect/disconnect/sync.
//
// The registry is the sole shared mutable device state in the process: both
// the HTTP facade and the relay hold a reference to the same instance, so
// all mutation is serialised behind a mutex.
//
// All public methods are thread-safe.
type Registry struct {
	transport Transport
	logger    Logger

	mu      sync.RWMutex
	devices map[string]*Device
}

// NewRegistry creates a device registry backed by the given transport.
func NewRegistry(transport Transport) *Registry {
	return &Registry{
		transport: transport,
		devices:   make(map[string]*Device),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Discover returns the catalog of candidate devices. There is no real
// scanning; the catalog is static and Discover always succeeds.
func (r *Registry) Discover(_ context.Context) []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Connect claims a device: it runs the transport handshake, fabricates a
// battery level, and inserts the device keyed by id.
//
// A second connect for an id already in the registry silently overwrites
// the prior entry; the new record's ConnectedAt restarts the clock.
func (r *Registry) Connect(ctx context.Context, id, name string) (*Device, error) {
	if err := r.transport.Connect(ctx, id, name); err != nil {
		return nil, fmt.Errorf("connecting device %s: %w", id, err)
	}

	dev := &Device{
		ID:           id,
		Name:         name,
		Connected:    true,
		ConnectedAt:  time.Now().UTC(),
		Battery:      rand.IntN(100) + 1,
		AudioSupport: true,
		SyncCapable:  true,
	}

	r.mu.Lock()
	_, replaced := r.devices[id]
	r.devices[id] = dev
	r.mu.Unlock()

	if replaced {
		r.logger.Debug("device reconnected, prior entry replaced", "id", id)
	}
	r.logger.Info("device connected", "id", id, "name", name, "battery", dev.Battery)

	out := *dev
	return &out, nil
}

// Disconnect releases a device. It returns ErrDeviceNotFound if the id is
// not in the registry; otherwise the entry is removed and the final record
// state (connected=false) is returned.
func (r *Registry) Disconnect(id string) (*Device, error) {
	r.mu.Lock()
	dev, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("disconnecting device %s: %w", id, ErrDeviceNotFound)
	}
	dev.Connected = false
	final := *dev
	delete(r.devices, id)
	r.mu.Unlock()

	// Transport teardown failures are logged, not surfaced: the registry
	// entry is already gone and the caller sees the final record.
	if err := r.transport.Disconnect(id); err != nil {
		r.logger.Warn("transport disconnect failed", "id", id, "error", err)
	}

	r.logger.Info("device disconnected", "id", id, "name", final.Name)
	return &final, nil
}

// Devices returns a snapshot of all currently connected devices in a
// stable display order (connection time, then id).
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ConnectedAt.Before(out[j].ConnectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of connected devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// SyncAudio streams one payload to every connected device and returns one
// result per device. A failure on one device is recorded in its result and
// does not abort the others.
//
// The result set length always equals the number of connected devices at
// call time.
func (r *Registry) SyncAudio(ctx context.Context, payload SyncPayload, sessionID string) []SyncResult {
	devices := r.Devices()
	results := make([]SyncResult, 0, len(devices))

	for _, dev := range devices {
		latency, err := r.transport.Stream(ctx, dev.ID, payload)
		if err != nil {
			r.logger.Warn("audio sync failed", "device", dev.ID, "session", sessionID, "error", err)
			results = append(results, SyncResult{
				DeviceID:   dev.ID,
				DeviceName: dev.Name,
				Status:     SyncStatusFailed,
				Error:      err.Error(),
			})
			continue
		}
		results = append(results, SyncResult{
			DeviceID:   dev.ID,
			DeviceName: dev.Name,
			Status:     SyncStatusSynced,
			LatencyMS:  latency,
		})
	}

	r.logger.Debug("audio synced", "session", sessionID, "devices", len(results))
	return results
}

// Clear removes every device from the registry. Called on shutdown so
// registry state does not outlive the process components that own it.
func (r *Registry) Clear() {
	r.mu.Lock()
	n := len(r.devices)
	r.devices = make(map[string]*Device)
	r.mu.Unlock()

	if n > 0 {
		r.logger.Info("device registry cleared", "devices", n)
	}
}
