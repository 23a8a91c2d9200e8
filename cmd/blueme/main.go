// BlueMe Server - Collaborative Music Playback
//
// This is the main entry point for the BlueMe backend. BlueMe lets a group
// of listeners share a sync session: one participant drives playback and
// every connected Bluetooth device hears the same track at the same moment.
//
// The server wires together:
//   - SQLite persistence (accounts, playlists, audio metadata)
//   - The Bluetooth device registry and its simulated transport
//   - The WebSocket sync-session relay
//   - Optional MQTT event bridging and InfluxDB telemetry
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/kailoud/blueme/migrations"

	"github.com/kailoud/blueme/internal/api"
	"github.com/kailoud/blueme/internal/auth"
	"github.com/kailoud/blueme/internal/device"
	"github.com/kailoud/blueme/internal/infrastructure/config"
	"github.com/kailoud/blueme/internal/infrastructure/database"
	"github.com/kailoud/blueme/internal/infrastructure/logging"
	"github.com/kailoud/blueme/internal/infrastructure/mqtt"
	"github.com/kailoud/blueme/internal/infrastructure/telemetry"
	"github.com/kailoud/blueme/internal/media"
	"github.com/kailoud/blueme/internal/playlist"
	"github.com/kailoud/blueme/internal/relay"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting BlueMe server",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise the device registry over the simulated Bluetooth transport
	transport := device.NewSimTransport(cfg.GetConnectDelay(), cfg.GetSyncDelay())
	registry := device.NewRegistry(transport)
	registry.SetLogger(log)
	log.Info("device registry initialised", "catalog", len(registry.Discover(ctx)))

	// The relay hub routes sync-session traffic between participants
	hub := relay.NewHub(registry, log)

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		bridge, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			// The relay works without the bridge; don't hold the server hostage.
			log.Warn("MQTT bridge unavailable, continuing without it", "error", mqttErr)
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := bridge.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			bridge.SetLogger(log)
			hub.SetEventSink(bridge)
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
				"client_id", cfg.MQTT.ClientID,
			)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	if cfg.Telemetry.Enabled {
		metrics, telErr := telemetry.Connect(cfg.Telemetry)
		if telErr != nil {
			log.Warn("telemetry unavailable, continuing without it", "error", telErr)
		} else {
			defer func() {
				log.Info("closing telemetry connection")
				if closeErr := metrics.Close(); closeErr != nil {
					log.Error("error closing telemetry", "error", closeErr)
				}
			}()
			metrics.SetOnError(func(err error) {
				log.Error("telemetry write error", "error", err)
			})
			hub.SetMetricsSink(metrics)
			log.Info("telemetry connected",
				"url", cfg.Telemetry.URL,
				"org", cfg.Telemetry.Org,
				"bucket", cfg.Telemetry.Bucket,
			)
		}
	} else {
		log.Info("telemetry disabled")
	}

	// Media storage and the YouTube extractor
	mediaRepo := media.NewRepository(db.DB)
	store, err := media.NewStore(cfg.Storage.UploadDir, cfg.Storage.MaxUploadSize, mediaRepo)
	if err != nil {
		return fmt.Errorf("initialising media store: %w", err)
	}
	log.Info("media store ready", "dir", cfg.Storage.UploadDir)

	extractor := media.NewYTDLPExtractor(
		cfg.Media.ExtractorBinary,
		cfg.Storage.UploadDir,
		cfg.GetConvertTimeout(),
	)
	extractor.DefaultFormat = cfg.Media.DefaultFormat
	extractor.DefaultQuality = cfg.Media.DefaultQuality

	// HTTP API server
	server, err := api.New(api.Deps{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		Registry:  registry,
		Hub:       hub,
		Users:     auth.NewUserRepository(db.DB),
		Playlists: playlist.NewRepository(db.DB),
		MediaRepo: mediaRepo,
		Store:     store,
		Extractor: extractor,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
	)

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Release any devices still claimed so their final state is published.
	registry.Clear()

	// Deferred Close() calls run in reverse order:
	// 1. API server (drains in-flight requests)
	// 2. Telemetry (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("BlueMe server stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BLUEME_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BLUEME_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
