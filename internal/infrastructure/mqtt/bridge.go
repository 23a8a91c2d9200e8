package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kailoud/blueme/internal/device"
	"github.com/kailoud/blueme/internal/infrastructure/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Bridge publishes BlueMe events to an MQTT broker so external systems
// (dashboards, automations) can observe device and session activity.
//
// The bridge is optional: when MQTT is disabled in configuration the rest
// of the server runs without it. All methods are safe for concurrent use.
type Bridge struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	connected bool
	connMu    sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Connect establishes a connection to the MQTT broker.
//
// The bridge registers a Last Will so the broker flips the retained status
// topic to offline if the process dies, and auto-reconnect restores the
// session after transient broker outages.
func Connect(cfg config.MQTTConfig) (*Bridge, error) {
	b := &Bridge{cfg: cfg}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetConnectTimeout(defaultConnectTimeout).
		SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	statusTopic := cfg.TopicPrefix + "/system/status"
	opts.SetWill(statusTopic, string(statusPayload(cfg.ClientID, "offline")), byte(cfg.QoS), true)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		b.setConnected(true)
		b.client.Publish(statusTopic, byte(cfg.QoS), true, statusPayload(cfg.ClientID, "online"))
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.setConnected(false)
		if logger := b.getLogger(); logger != nil {
			logger.Warn("mqtt connection lost", "error", err)
		}
	})

	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// OnConnect runs asynchronously; mark connected now so IsConnected is
	// true immediately after a successful Connect.
	b.setConnected(true)

	return b, nil
}

// SetLogger sets a logger for connection and publish failures.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

// PublishDeviceStatus publishes a device's state to its retained status
// topic after a connect or disconnect.
func (b *Bridge) PublishDeviceStatus(dev *device.Device) {
	topic := fmt.Sprintf("%s/devices/%s/status", b.cfg.TopicPrefix, dev.ID)
	b.publishJSON(topic, true, dev)
}

// PublishSessionEvent publishes a playback or membership event on a sync
// room's event topic.
func (b *Bridge) PublishSessionEvent(roomID, event string, payload any) {
	topic := fmt.Sprintf("%s/sessions/%s/events", b.cfg.TopicPrefix, roomID)
	b.publishJSON(topic, false, map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      payload,
	})
}

// PublishSyncResults publishes the per-device outcome of an audio sync.
func (b *Bridge) PublishSyncResults(roomID string, results []device.SyncResult) {
	topic := b.cfg.TopicPrefix + "/sync/results"
	b.publishJSON(topic, false, map[string]any{
		"roomId":    roomID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"results":   results,
	})
}

// publishJSON marshals a payload and publishes it fire-and-forget. Publish
// failures are logged; event publication never blocks the relay path.
func (b *Bridge) publishJSON(topic string, retained bool, v any) {
	if !b.IsConnected() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		if logger := b.getLogger(); logger != nil {
			logger.Error("mqtt payload marshal failed", "topic", topic, "error", err)
		}
		return
	}

	token := b.client.Publish(topic, byte(b.cfg.QoS), retained, data)
	go func() {
		if token.WaitTimeout(defaultPublishTimeout) && token.Error() != nil {
			if logger := b.getLogger(); logger != nil {
				logger.Warn("mqtt publish failed", "topic", topic, "error", token.Error())
			}
		}
	}()
}

// HealthCheck verifies the broker connection is alive.
func (b *Bridge) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !b.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the current connection state.
func (b *Bridge) IsConnected() bool {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	return b.connected && b.client.IsConnected()
}

// Close publishes a graceful offline status and disconnects.
func (b *Bridge) Close() error {
	if b.client == nil {
		return nil
	}

	if b.IsConnected() {
		topic := b.cfg.TopicPrefix + "/system/status"
		token := b.client.Publish(topic, byte(b.cfg.QoS), true, statusPayload(b.cfg.ClientID, "offline"))
		token.WaitTimeout(defaultPublishTimeout)
	}

	b.client.Disconnect(defaultDisconnectQuiesce)
	b.setConnected(false)
	return nil
}

func (b *Bridge) setConnected(v bool) {
	b.connMu.Lock()
	b.connected = v
	b.connMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func statusPayload(clientID, status string) []byte {
	data, _ := json.Marshal(map[string]string{ //nolint:errcheck // fixed shape cannot fail
		"client_id": clientID,
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return data
}
