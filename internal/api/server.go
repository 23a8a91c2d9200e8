// Package api provides the HTTP REST API and WebSocket relay endpoint for
// the BlueMe server.
//
// It exposes account registration and login, the Bluetooth device registry
// mirror endpoints, playlist management, audio upload and conversion, and
// the WebSocket sync-session relay to browser and mobile clients.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kailoud/blueme/internal/auth"
	"github.com/kailoud/blueme/internal/device"
	"github.com/kailoud/blueme/internal/infrastructure/config"
	"github.com/kailoud/blueme/internal/infrastructure/database"
	"github.com/kailoud/blueme/internal/infrastructure/logging"
	"github.com/kailoud/blueme/internal/media"
	"github.com/kailoud/blueme/internal/playlist"
	"github.com/kailoud/blueme/internal/relay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    *config.Config
	Logger    *logging.Logger
	DB        *database.DB
	Registry  *device.Registry
	Hub       *relay.Hub
	Users     auth.UserRepository
	Playlists playlist.Repository
	MediaRepo media.Repository
	Store     *media.Store
	Extractor media.Extractor
	Version   string
}

// Server is the HTTP API server for BlueMe.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket
// relay endpoint. The server is created with New() and started with Start().
type Server struct {
	cfg       *config.Config
	logger    *logging.Logger
	db        *database.DB
	registry  *device.Registry
	hub       *relay.Hub
	users     auth.UserRepository
	playlists playlist.Repository
	mediaRepo media.Repository
	store     *media.Store
	extractor media.Extractor
	version   string
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("relay hub is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("media store is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		db:        deps.DB,
		registry:  deps.Registry,
		hub:       deps.Hub,
		users:     deps.Users,
		playlists: deps.Playlists,
		mediaRepo: deps.MediaRepo,
		store:     deps.Store,
		extractor: deps.Extractor,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
