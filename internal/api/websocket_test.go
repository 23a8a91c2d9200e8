package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kailoud/blueme/internal/relay"
)

// dialWS connects a WebSocket client to the test server's relay endpoint.
func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads frames until one matches the wanted event name.
func readEvent(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	if err := conn.SetReadDeadline(deadline); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		var env wsEnvelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("decoding frame %q: %v", frame, err)
		}
		if env.Event == want {
			return env.Data
		}
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(wsEnvelope{Event: event, Data: data}); err != nil {
		t.Fatalf("sending %q: %v", event, err)
	}
}

func TestWebSocketSyncRoom(t *testing.T) {
	_, h := testServer(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	first := dialWS(t, ts, "")
	second := dialWS(t, ts, "")

	sendEvent(t, first, relay.EventJoinRoom, relay.JoinRoomRequest{RoomID: "room-1"})
	// The joiner gets a device snapshot on entry.
	var status relay.DeviceStatus
	if err := json.Unmarshal(readEvent(t, first, relay.EventDeviceStatusUpdate), &status); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if len(status.Devices) != 0 {
		t.Errorf("snapshot has %d devices, want 0", len(status.Devices))
	}

	sendEvent(t, second, relay.EventJoinRoom, relay.JoinRoomRequest{RoomID: "room-1"})
	readEvent(t, second, relay.EventDeviceStatusUpdate)

	// The earlier member hears about the new arrival.
	var joined relay.UserEvent
	if err := json.Unmarshal(readEvent(t, first, relay.EventUserJoined), &joined); err != nil {
		t.Fatalf("decoding user-joined: %v", err)
	}
	if joined.RoomID != "room-1" {
		t.Errorf("user-joined room = %q", joined.RoomID)
	}

	// Playback relays to the room and acks the sender.
	sendEvent(t, second, relay.EventPlayMusic,
		relay.PlayRequest{RoomID: "room-1", TrackID: "track-9", Timestamp: 12})

	var play relay.PlayEvent
	if err := json.Unmarshal(readEvent(t, first, relay.EventMusicPlay), &play); err != nil {
		t.Fatalf("decoding music-play: %v", err)
	}
	if play.TrackID != "track-9" || play.Timestamp != 12 {
		t.Errorf("music-play = %+v", play)
	}

	var ack relay.SyncStatus
	if err := json.Unmarshal(readEvent(t, second, relay.EventSyncStatus), &ack); err != nil {
		t.Fatalf("decoding sync-status: %v", err)
	}
	if ack.Status != "synced" {
		t.Errorf("sync status = %q", ack.Status)
	}

	// Disconnecting announces user-left to the rest of the room.
	second.Close()
	var left relay.UserEvent
	if err := json.Unmarshal(readEvent(t, first, relay.EventUserLeft), &left); err != nil {
		t.Fatalf("decoding user-left: %v", err)
	}
	if left.RoomID != "room-1" {
		t.Errorf("user-left room = %q", left.RoomID)
	}
}

func TestWebSocketAuthenticatedIdentity(t *testing.T) {
	_, h := testServer(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	token := registerUser(t, h, "alice@example.com")

	member := dialWS(t, ts, "")
	sendEvent(t, member, relay.EventJoinRoom, relay.JoinRoomRequest{RoomID: "room-1"})
	readEvent(t, member, relay.EventDeviceStatusUpdate)

	authed := dialWS(t, ts, token)
	sendEvent(t, authed, relay.EventJoinRoom, relay.JoinRoomRequest{RoomID: "room-1"})

	var joined relay.UserEvent
	if err := json.Unmarshal(readEvent(t, member, relay.EventUserJoined), &joined); err != nil {
		t.Fatalf("decoding user-joined: %v", err)
	}
	if !strings.HasPrefix(joined.UserID, "usr-") {
		t.Errorf("authenticated participant id = %q, want account id", joined.UserID)
	}
}

func TestWebSocketMalformedEnvelope(t *testing.T) {
	_, h := testServer(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	conn := dialWS(t, ts, "")
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}

	var errEvent relay.ErrorEvent
	if err := json.Unmarshal(readEvent(t, conn, relay.EventSyncError), &errEvent); err != nil {
		t.Fatalf("decoding sync-error: %v", err)
	}
	if errEvent.Error == "" {
		t.Error("sync-error carried no message")
	}
}
