package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// testRegistry returns a registry with a zero-delay simulated transport.
func testRegistry() *Registry {
	return NewRegistry(NewSimTransport(0, 0))
}

func TestDiscoverReturnsCatalog(t *testing.T) {
	r := testRegistry()

	got := r.Discover(context.Background())
	if len(got) != 4 {
		t.Fatalf("expected 4 catalog entries, got %d", len(got))
	}

	want := map[string]string{
		"device-1": "AirPods Pro",
		"device-2": "Sony WH-1000XM4",
		"device-3": "JBL Flip 5",
		"device-4": "Galaxy Buds Pro",
	}
	for _, d := range got {
		if want[d.ID] != d.Name {
			t.Errorf("catalog entry %s: got name %q, want %q", d.ID, d.Name, want[d.ID])
		}
		if !d.AudioSupport {
			t.Errorf("catalog entry %s: expected audio support", d.ID)
		}
	}

	// Discovery must not be affected by registry contents.
	if _, err := r.Connect(context.Background(), "device-1", "AirPods Pro"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if len(r.Discover(context.Background())) != 4 {
		t.Error("discovery catalog changed after connect")
	}
}

func TestConnectAddsDevice(t *testing.T) {
	r := testRegistry()

	dev, err := r.Connect(context.Background(), "device-1", "AirPods Pro")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !dev.Connected {
		t.Error("expected connected=true")
	}
	if dev.Battery < 1 || dev.Battery > 100 {
		t.Errorf("battery %d out of range [1,100]", dev.Battery)
	}
	if !dev.AudioSupport || !dev.SyncCapable {
		t.Error("expected audio support and sync capability")
	}
	if dev.ConnectedAt.IsZero() {
		t.Error("expected ConnectedAt to be set")
	}

	list := r.Devices()
	if len(list) != 1 {
		t.Fatalf("expected 1 device, got %d", len(list))
	}
	if list[0].ID != "device-1" {
		t.Errorf("got id %q, want device-1", list[0].ID)
	}
}

func TestConnectDuplicateOverwrites(t *testing.T) {
	r := testRegistry()

	if _, err := r.Connect(context.Background(), "device-1", "AirPods Pro"); err != nil {
		t.Fatalf("first Connect failed: %v", err)
	}
	if _, err := r.Connect(context.Background(), "device-1", "AirPods Pro (renamed)"); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}

	list := r.Devices()
	if len(list) != 1 {
		t.Fatalf("expected 1 device after duplicate connect, got %d", len(list))
	}
	if list[0].Name != "AirPods Pro (renamed)" {
		t.Errorf("expected overwrite to win, got name %q", list[0].Name)
	}
}

func TestConnectTransportFailure(t *testing.T) {
	r := NewRegistry(&failingTransport{connectErr: ErrTransportFailure})

	_, err := r.Connect(context.Background(), "device-1", "AirPods Pro")
	if !errors.Is(err, ErrTransportFailure) {
		t.Fatalf("expected ErrTransportFailure, got %v", err)
	}
	if r.Count() != 0 {
		t.Error("failed connect must not register the device")
	}
}

func TestDisconnectRemovesDevice(t *testing.T) {
	r := testRegistry()

	if _, err := r.Connect(context.Background(), "device-2", "Sony WH-1000XM4"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	dev, err := r.Disconnect("device-2")
	if err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if dev.Connected {
		t.Error("final record should report connected=false")
	}
	if dev.Name != "Sony WH-1000XM4" {
		t.Errorf("got name %q, want Sony WH-1000XM4", dev.Name)
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d devices", r.Count())
	}
}

func TestDisconnectUnknownDevice(t *testing.T) {
	r := testRegistry()

	if _, err := r.Connect(context.Background(), "device-1", "AirPods Pro"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	_, err := r.Disconnect("device-9")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}

	// The registry must be unchanged by a failed disconnect.
	if r.Count() != 1 {
		t.Errorf("expected 1 device after failed disconnect, got %d", r.Count())
	}
}

func TestDevicesStableOrder(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	for _, id := range []string{"device-3", "device-1", "device-2"} {
		if _, err := r.Connect(ctx, id, id); err != nil {
			t.Fatalf("Connect %s failed: %v", id, err)
		}
	}

	first := r.Devices()
	for range 10 {
		again := r.Devices()
		for i := range first {
			if again[i].ID != first[i].ID {
				t.Fatalf("unstable order: run returned %q at %d, expected %q",
					again[i].ID, i, first[i].ID)
			}
		}
	}
}

func TestSyncAudioOneResultPerDevice(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("device-%d", i)
		if _, err := r.Connect(ctx, id, id); err != nil {
			t.Fatalf("Connect %s failed: %v", id, err)
		}
	}

	results := r.SyncAudio(ctx, SyncPayload{TrackID: "track-1", Timestamp: 12.5}, "sess-1")
	if len(results) != r.Count() {
		t.Fatalf("got %d results for %d devices", len(results), r.Count())
	}
	for _, res := range results {
		if res.Status != SyncStatusSynced {
			t.Errorf("device %s: got status %q, want synced", res.DeviceID, res.Status)
		}
		if res.LatencyMS < 10 || res.LatencyMS > 59 {
			t.Errorf("device %s: latency %d out of range [10,59]", res.DeviceID, res.LatencyMS)
		}
		if res.Error != "" {
			t.Errorf("device %s: unexpected error %q", res.DeviceID, res.Error)
		}
	}
}

func TestSyncAudioEmptyRegistry(t *testing.T) {
	r := testRegistry()

	results := r.SyncAudio(context.Background(), SyncPayload{TrackID: "track-1"}, "sess-1")
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSyncAudioPartialFailure(t *testing.T) {
	tr := &failingTransport{streamFail: map[string]bool{"device-2": true}}
	r := NewRegistry(tr)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("device-%d", i)
		if _, err := r.Connect(ctx, id, id); err != nil {
			t.Fatalf("Connect %s failed: %v", id, err)
		}
	}

	results := r.SyncAudio(ctx, SyncPayload{TrackID: "track-1"}, "sess-1")
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	var failed, synced int
	for _, res := range results {
		switch res.Status {
		case SyncStatusFailed:
			failed++
			if res.DeviceID != "device-2" {
				t.Errorf("unexpected failure on %s", res.DeviceID)
			}
			if res.Error == "" {
				t.Error("failed result missing error text")
			}
		case SyncStatusSynced:
			synced++
		}
	}
	if failed != 1 || synced != 2 {
		t.Errorf("got %d failed / %d synced, want 1 / 2", failed, synced)
	}
}

func TestClearEmptiesRegistry(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("device-%d", i)
		if _, err := r.Connect(ctx, id, id); err != nil {
			t.Fatalf("Connect %s failed: %v", id, err)
		}
	}

	r.Clear()
	if r.Count() != 0 {
		t.Errorf("expected 0 devices after Clear, got %d", r.Count())
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := testRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("device-%d", n%4+1)
			if _, err := r.Connect(ctx, id, id); err != nil {
				t.Errorf("Connect %s failed: %v", id, err)
				return
			}
			r.Devices()
			r.SyncAudio(ctx, SyncPayload{TrackID: "track-1"}, "sess-1")
		}(i)
	}
	wg.Wait()

	if r.Count() != 4 {
		t.Errorf("expected 4 distinct devices, got %d", r.Count())
	}
}

// failingTransport is a Transport whose failures are scripted per call.
type failingTransport struct {
	connectErr error
	streamFail map[string]bool
}

func (t *failingTransport) Connect(context.Context, string, string) error {
	return t.connectErr
}

func (t *failingTransport) Disconnect(string) error { return nil }

func (t *failingTransport) Stream(_ context.Context, id string, _ SyncPayload) (int, error) {
	if t.streamFail[id] {
		return 0, fmt.Errorf("streaming to %s: %w", id, ErrTransportFailure)
	}
	return 25, nil
}
