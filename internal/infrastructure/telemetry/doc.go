// Package telemetry provides optional InfluxDB metrics for BlueMe.
//
// When enabled, the server records audio sync latency per device, device
// connect/disconnect events with battery levels, and sync room occupancy.
// Writes are batched and asynchronous so the playback path never blocks
// on the metrics store.
package telemetry
