package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	// Health check (no auth required). /api/health is the documented path;
	// /health stays for load balancers that assume the conventional one.
	r.Get("/health", s.handleHealth)
	r.Get("/api/health", s.handleHealth)

	// Root status page, handy for a quick "is it up" in a browser.
	r.Get("/", s.handleRoot)

	// Uploaded audio is served straight off disk. Filenames are generated
	// server side, so there is nothing guessable worth protecting.
	r.Get("/uploads/{filename}", s.handleServeUpload)

	// WebSocket relay (auth optional; anonymous users get generated ids)
	r.With(s.optionalAuthMiddleware).Get(s.cfg.WebSocket.Path, s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		// JSON bodies only beyond this point; uploads opt out below.
		r.Group(func(r chi.Router) {
			r.Use(s.bodySizeLimitMiddleware)

			// Auth endpoints (no auth required)
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
			r.With(s.optionalAuthMiddleware).Get("/auth/status", s.handleAuthStatus)

			// Device registry mirror (no auth, mirrors the relay's open access)
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Get("/discover", s.handleDiscoverDevices)
				r.Post("/connect", s.handleConnectDevice)
				r.Delete("/{deviceId}", s.handleDisconnectDevice)
				r.Post("/sync", s.handleSyncAudio)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)

				r.Get("/auth/me", s.handleMe)
				r.Get("/auth/profile", s.handleMe)
				r.Put("/auth/profile", s.handleUpdateProfile)
				r.Put("/auth/change-password", s.handleChangePassword)
				r.Delete("/auth/account", s.handleDeleteAccount)

				r.Route("/playlists", func(r chi.Router) {
					r.Get("/", s.handleListPlaylists)
					r.Post("/", s.handleCreatePlaylist)

					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", s.handleGetPlaylist)
						r.Patch("/", s.handleUpdatePlaylist)
						r.Delete("/", s.handleDeletePlaylist)
						r.Get("/items", s.handleListPlaylistItems)
						r.Post("/items", s.handleAddPlaylistItem)
						r.Delete("/items/{itemID}", s.handleRemovePlaylistItem)
					})
				})

				r.Route("/files", func(r chi.Router) {
					r.Get("/", s.handleListFiles)
					r.Delete("/{id}", s.handleDeleteFile)
				})

				r.Post("/convert-youtube", s.handleConvertAudio)
			})
		})

		// Upload carries the multipart limit, not the JSON body cap.
		r.With(s.authMiddleware).Post("/upload", s.handleUpload)
	})

	return r
}

// handleRoot identifies the service.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "BlueMe server is running",
		"version":   s.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := map[string]string{}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			status = "degraded"
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"version":      s.version,
		"devices":      s.registry.Count(),
		"participants": s.hub.ParticipantCount(),
		"checks":       checks,
	})
}
