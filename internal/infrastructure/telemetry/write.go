package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kailoud/blueme/internal/device"
)

// WriteSyncResults records the per-device outcome of an audio sync:
// one point per device with its status and observed latency.
func (c *Client) WriteSyncResults(roomID string, results []device.SyncResult) {
	if !c.IsConnected() {
		return
	}

	now := time.Now()
	for _, r := range results {
		point := write.NewPoint(
			"audio_sync",
			map[string]string{
				"room_id":   roomID,
				"device_id": r.DeviceID,
				"status":    r.Status,
			},
			map[string]interface{}{
				"latency_ms": float64(r.LatencyMS),
			},
			now,
		)
		c.writeAPI.WritePoint(point)
	}
}

// WriteDeviceEvent records a device connect or disconnect with its battery
// level at the time.
func (c *Client) WriteDeviceEvent(deviceID, event string, battery int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_events",
		map[string]string{
			"device_id": deviceID,
			"event":     event,
		},
		map[string]interface{}{
			"battery": float64(battery),
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WriteSessionGauge records the current participant count of a sync room.
func (c *Client) WriteSessionGauge(roomID string, participants int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sessions",
		map[string]string{
			"room_id": roomID,
		},
		map[string]interface{}{
			"participants": float64(participants),
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}
