package device

import (
	"context"
	"math/rand/v2"
	"time"
)

// Transport is the capability interface for the device link layer.
// The registry drives it for connect, disconnect, and audio streaming so a
// real Bluetooth/audio backend can be substituted without touching registry
// or relay logic.
type Transport interface {
	// Connect establishes the link to a device. It may block for the
	// duration of the handshake; it must honour context cancellation.
	Connect(ctx context.Context, id, name string) error

	// Disconnect tears down the link to a device.
	Disconnect(id string) error

	// Stream sends one audio payload to a device and reports the observed
	// latency in milliseconds.
	Stream(ctx context.Context, id string, payload SyncPayload) (latencyMS int, err error)
}

// SimTransport is the default Transport: no real device I/O, just fixed
// delays and fabricated latency numbers.
type SimTransport struct {
	// ConnectDelay is how long Connect blocks to mimic a handshake.
	ConnectDelay time.Duration

	// StreamDelay is how long Stream blocks per device.
	StreamDelay time.Duration
}

// NewSimTransport returns a simulated transport with the given timings.
// Zero delays are valid and make the transport immediate (useful in tests).
func NewSimTransport(connectDelay, streamDelay time.Duration) *SimTransport {
	return &SimTransport{
		ConnectDelay: connectDelay,
		StreamDelay:  streamDelay,
	}
}

// Connect waits out the simulated handshake delay.
func (t *SimTransport) Connect(ctx context.Context, _, _ string) error {
	return sleep(ctx, t.ConnectDelay)
}

// Disconnect never fails: there is no real link to tear down.
func (t *SimTransport) Disconnect(string) error {
	return nil
}

// Stream waits out the simulated transmission delay and fabricates a
// latency between 10 and 59 milliseconds.
func (t *SimTransport) Stream(ctx context.Context, _ string, _ SyncPayload) (int, error) {
	if err := sleep(ctx, t.StreamDelay); err != nil {
		return 0, err
	}
	return rand.IntN(50) + 10, nil
}

// sleep blocks for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
