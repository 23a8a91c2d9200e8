package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailoud/blueme/internal/playlist"
)

// createPlaylistRequest is the body of POST /api/playlists.
type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

// updatePlaylistRequest is the body of PATCH /api/playlists/{id}.
// Pointer fields distinguish "not sent" from zero values.
type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

// addItemRequest is the body of POST /api/playlists/{id}/items.
type addItemRequest struct {
	AudioFileID string `json:"audioFileId"`
}

// handleListPlaylists returns the authenticated user's playlists.
func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	playlists, err := s.playlists.ListByUser(r.Context(), claims.Subject)
	if err != nil {
		s.logger.Error("playlist listing failed", "error", err)
		writeInternalError(w, "could not list playlists")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlists": playlists})
}

// handleCreatePlaylist creates a playlist for the authenticated user. The
// song cap follows the account tier.
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req createPlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	premium := false
	if user, err := s.users.GetByID(r.Context(), claims.Subject); err == nil {
		premium = user.IsPremium
	}

	p := &playlist.Playlist{
		UserID:      claims.Subject,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		IsPremium:   premium,
	}
	if err := s.playlists.Create(r.Context(), p); err != nil {
		s.logger.Error("playlist creation failed", "error", err)
		writeInternalError(w, "could not create playlist")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "playlist": p})
}

// handleGetPlaylist returns one playlist. Private playlists are visible to
// their owner only.
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	p, err := s.playlists.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, playlist.ErrPlaylistNotFound) {
			writeNotFound(w, "playlist not found")
			return
		}
		s.logger.Error("playlist lookup failed", "error", err)
		writeInternalError(w, "could not load playlist")
		return
	}
	if p.UserID != claims.Subject && !p.IsPublic {
		writeForbidden(w, "playlist is private")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlist": p})
}

// handleUpdatePlaylist patches a playlist's name, description, or
// visibility.
func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	p, err := s.playlists.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, playlist.ErrPlaylistNotFound) {
			writeNotFound(w, "playlist not found")
			return
		}
		s.logger.Error("playlist lookup failed", "error", err)
		writeInternalError(w, "could not load playlist")
		return
	}

	var req updatePlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil {
		if *req.Name == "" {
			writeBadRequest(w, "name cannot be empty")
			return
		}
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.IsPublic != nil {
		p.IsPublic = *req.IsPublic
	}

	p.UserID = claims.Subject
	if err := s.playlists.Update(r.Context(), p); err != nil {
		switch {
		case errors.Is(err, playlist.ErrNotOwner):
			writeForbidden(w, "not your playlist")
		case errors.Is(err, playlist.ErrPlaylistNotFound):
			writeNotFound(w, "playlist not found")
		default:
			s.logger.Error("playlist update failed", "error", err)
			writeInternalError(w, "could not update playlist")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlist": p})
}

// handleDeletePlaylist removes a playlist and its items.
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	err := s.playlists.Delete(r.Context(), chi.URLParam(r, "id"), claims.Subject)
	if err != nil {
		switch {
		case errors.Is(err, playlist.ErrNotOwner):
			writeForbidden(w, "not your playlist")
		case errors.Is(err, playlist.ErrPlaylistNotFound):
			writeNotFound(w, "playlist not found")
		default:
			s.logger.Error("playlist delete failed", "error", err)
			writeInternalError(w, "could not delete playlist")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleListPlaylistItems returns a playlist's entries in order.
func (s *Server) handleListPlaylistItems(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	p, err := s.playlists.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, playlist.ErrPlaylistNotFound) {
			writeNotFound(w, "playlist not found")
			return
		}
		s.logger.Error("playlist lookup failed", "error", err)
		writeInternalError(w, "could not load playlist")
		return
	}
	if p.UserID != claims.Subject && !p.IsPublic {
		writeForbidden(w, "playlist is private")
		return
	}

	items, err := s.playlists.Items(r.Context(), id)
	if err != nil {
		s.logger.Error("playlist items failed", "error", err)
		writeInternalError(w, "could not load playlist items")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": items})
}

// handleAddPlaylistItem appends an audio file to a playlist.
func (s *Server) handleAddPlaylistItem(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	p, err := s.playlists.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, playlist.ErrPlaylistNotFound) {
			writeNotFound(w, "playlist not found")
			return
		}
		s.logger.Error("playlist lookup failed", "error", err)
		writeInternalError(w, "could not load playlist")
		return
	}
	if p.UserID != claims.Subject {
		writeForbidden(w, "not your playlist")
		return
	}

	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AudioFileID == "" {
		writeBadRequest(w, "audioFileId is required")
		return
	}

	item, err := s.playlists.AddItem(r.Context(), id, req.AudioFileID)
	if err != nil {
		if errors.Is(err, playlist.ErrPlaylistFull) {
			writeError(w, http.StatusUnprocessableEntity, "playlist song limit reached")
			return
		}
		s.logger.Error("playlist add item failed", "error", err)
		writeInternalError(w, "could not add item")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "item": item})
}

// handleRemovePlaylistItem removes one entry from a playlist.
func (s *Server) handleRemovePlaylistItem(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	id := chi.URLParam(r, "id")

	p, err := s.playlists.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, playlist.ErrPlaylistNotFound) {
			writeNotFound(w, "playlist not found")
			return
		}
		s.logger.Error("playlist lookup failed", "error", err)
		writeInternalError(w, "could not load playlist")
		return
	}
	if p.UserID != claims.Subject {
		writeForbidden(w, "not your playlist")
		return
	}

	err = s.playlists.RemoveItem(r.Context(), id, chi.URLParam(r, "itemID"))
	if err != nil {
		if errors.Is(err, playlist.ErrItemNotFound) {
			writeNotFound(w, "item not found")
			return
		}
		s.logger.Error("playlist remove item failed", "error", err)
		writeInternalError(w, "could not remove item")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
