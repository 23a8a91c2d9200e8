package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the BlueMe server.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Storage   StorageConfig   `yaml:"storage"`
	Media     MediaConfig     `yaml:"media"`
	Devices   DevicesConfig   `yaml:"devices"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig          `yaml:"cors"`
}

// ServerTimeoutConfig contains HTTP timeout settings in seconds.
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// WebSocketConfig contains WebSocket relay settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`

	// AccessTokenTTL is the access token lifetime in hours.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// StorageConfig contains audio file storage settings.
type StorageConfig struct {
	// UploadDir is the directory where uploaded audio files are stored.
	UploadDir string `yaml:"upload_dir"`

	// MaxUploadSize is the maximum accepted upload size in bytes.
	MaxUploadSize int64 `yaml:"max_upload_size"`
}

// MediaConfig contains YouTube extraction settings.
type MediaConfig struct {
	// ExtractorBinary is the path to the yt-dlp executable.
	ExtractorBinary string `yaml:"extractor_binary"`

	// ConvertTimeout is the hard limit for one conversion, in seconds.
	ConvertTimeout int `yaml:"convert_timeout"`

	// DefaultFormat is used when the client does not request a format.
	DefaultFormat string `yaml:"default_format"`

	// DefaultQuality is the audio bitrate used when the client does not request one.
	DefaultQuality string `yaml:"default_quality"`
}

// DevicesConfig contains simulated Bluetooth transport timings.
type DevicesConfig struct {
	// ConnectDelayMS is the simulated device connection delay in milliseconds.
	ConnectDelayMS int `yaml:"connect_delay_ms"`

	// SyncDelayMS is the simulated per-device audio sync delay in milliseconds.
	SyncDelayMS int `yaml:"sync_delay_ms"`
}

// MQTTConfig contains settings for the optional MQTT event bridge.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`

	// TopicPrefix is prepended to every published event topic.
	TopicPrefix string `yaml:"topic_prefix"`
}

// TelemetryConfig contains settings for the optional InfluxDB metrics writer.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BLUEME_SECTION_KEY
// For example: BLUEME_DATABASE_PATH, BLUEME_SERVER_PORT, BLUEME_JWT_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 120, // conversions stream back through the handler
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/blueme.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 168, // 7 days
			},
		},
		Storage: StorageConfig{
			UploadDir:     "./uploads",
			MaxUploadSize: 50 << 20, // 50 MB
		},
		Media: MediaConfig{
			ExtractorBinary: "yt-dlp",
			ConvertTimeout:  60,
			DefaultFormat:   "mp3",
			DefaultQuality:  "192K",
		},
		Devices: DevicesConfig{
			ConnectDelayMS: 1000,
			SyncDelayMS:    100,
		},
		MQTT: MQTTConfig{
			Host:        "localhost",
			Port:        1883,
			ClientID:    "blueme-server",
			QoS:         1,
			TopicPrefix: "blueme",
		},
		Telemetry: TelemetryConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BLUEME_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLUEME_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("BLUEME_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	// Bare PORT is honoured for platform deployments (Railway/Heroku style).
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("BLUEME_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BLUEME_STORAGE_UPLOAD_DIR"); v != "" {
		cfg.Storage.UploadDir = v
	}

	// Security - JWT secret (IMPORTANT: always set in production)
	if v := os.Getenv("BLUEME_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	if v := os.Getenv("BLUEME_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("BLUEME_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("BLUEME_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("BLUEME_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if c.Storage.UploadDir == "" {
		errs = append(errs, "storage.upload_dir is required")
	}
	if c.Storage.MaxUploadSize <= 0 {
		errs = append(errs, "storage.max_upload_size must be positive")
	}

	// JWT secret is REQUIRED. Tokens gate password changes and account
	// deletion; a guessable secret lets anyone forge them.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set BLUEME_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.Telemetry.Enabled && c.Telemetry.URL == "" {
		errs = append(errs, "telemetry.url is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}

// GetConnectDelay returns the simulated device connection delay.
func (c *Config) GetConnectDelay() time.Duration {
	return time.Duration(c.Devices.ConnectDelayMS) * time.Millisecond
}

// GetSyncDelay returns the simulated per-device audio sync delay.
func (c *Config) GetSyncDelay() time.Duration {
	return time.Duration(c.Devices.SyncDelayMS) * time.Millisecond
}

// GetConvertTimeout returns the hard limit for one YouTube conversion.
func (c *Config) GetConvertTimeout() time.Duration {
	return time.Duration(c.Media.ConvertTimeout) * time.Second
}
