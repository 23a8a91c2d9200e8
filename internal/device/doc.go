// Package device provides the Bluetooth device registry for BlueMe.
//
// The registry is an in-memory table of currently "connected" audio output
// endpoints. There is no real Bluetooth I/O: the link layer sits behind the
// Transport capability interface, and the default SimTransport fabricates
// connection delays, battery levels, and sync latencies. A real backend can
// be substituted without touching registry or relay logic.
//
// # Usage
//
//	transport := device.NewSimTransport(time.Second, 100*time.Millisecond)
//	registry := device.NewRegistry(transport)
//	registry.SetLogger(log)
//
//	dev, err := registry.Connect(ctx, "device-1", "AirPods Pro")
//	results := registry.SyncAudio(ctx, payload, sessionID)
//
// # Thread Safety
//
// The Registry is safe for concurrent use: the HTTP API and the relay share
// one instance, and all mutation is serialised behind a mutex.
package device
