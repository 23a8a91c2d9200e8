// Package mqtt provides the optional event bridge to an MQTT broker.
//
// When enabled, BlueMe publishes device status, sync-room activity, and
// audio sync results to retained and event topics under a configurable
// prefix, letting dashboards and automations observe the server without
// holding a WebSocket connection. Publication is fire-and-forget: broker
// trouble degrades observability, never playback.
//
// Topic layout (default prefix "blueme"):
//
//	blueme/system/status            retained online/offline, LWT-backed
//	blueme/devices/{id}/status      retained device state
//	blueme/sessions/{room}/events   playback and membership events
//	blueme/sync/results             per-device audio sync outcomes
package mqtt
