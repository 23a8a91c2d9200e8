package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kailoud/blueme/internal/infrastructure/config"
	"github.com/kailoud/blueme/internal/relay"
)

// wsSendBufferSize is the per-client outbound message buffer size.
const wsSendBufferSize = 256

// wsEnvelope is the wire format in both directions: an event name plus its
// JSON payload.
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// wsConn adapts one gorilla connection to the relay.Conn interface.
type wsConn struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// handleWebSocket upgrades the HTTP connection and registers it with the
// relay hub. Authenticated users keep their account id as participant id;
// anonymous users get a generated one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := ""
	if claims := claimsFrom(r.Context()); claims != nil {
		id = claims.Subject
	}
	if id == "" {
		id = "guest-" + uuid.NewString()[:8]
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &wsConn{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		server: s,
	}

	s.hub.Register(client)
	s.logger.Debug("websocket client connected", "user", id)

	go client.writePump(s.cfg.WebSocket)
	go client.readPump(s.cfg.WebSocket)
}

// ID implements relay.Conn.
func (c *wsConn) ID() string { return c.id }

// Send implements relay.Conn. It marshals the event envelope and queues it
// without blocking; a slow client drops messages rather than stalling the
// hub.
func (c *wsConn) Send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.server.logger.Error("websocket payload marshal failed", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(wsEnvelope{Event: event, Data: data})
	if err != nil {
		return
	}

	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel during teardown
	}()
	select {
	case c.send <- frame:
	default:
		// Client buffer full, skip
	}
}

// readPump reads envelopes from the WebSocket connection and dispatches
// them to the hub. It unregisters the client on exit, which announces
// user-left to the rooms it joined.
func (c *wsConn) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.server.hub.Unregister(c.id)
		close(c.send)
		c.conn.Close()
		c.server.logger.Debug("websocket client disconnected", "user", c.id)
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Warn("websocket read error", "user", c.id, "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))

		var env wsEnvelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			c.Send(relay.EventSyncError, relay.ErrorEvent{Error: "invalid message"})
			continue
		}
		// Dispatch outlives the read loop iteration, so it is not tied to
		// the upgrade request's context.
		c.server.hub.Dispatch(context.Background(), c.id, env.Event, env.Data)
	}
}

// writePump writes queued frames and protocol pings to the connection.
func (c *wsConn) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
