package api

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/kailoud/blueme/internal/media"
)

// uploadField is the multipart form field carrying the audio file.
const uploadField = "audio"

// convertRequest is the body of POST /api/convert-youtube. Format and
// quality are optional; the extractor's configured defaults apply.
type convertRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Quality string `json:"quality"`
}

// handleUpload accepts a multipart audio upload, stores the bytes on disk
// and the metadata in the database.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	// One byte past the limit so the store can tell at-limit from over.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Storage.MaxUploadSize+1)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeBadRequest(w, "multipart field 'audio' is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	af, err := s.store.Save(r.Context(), claims.Subject, header.Filename, contentType, file)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrNotAudio):
			writeError(w, http.StatusUnsupportedMediaType, "only audio files are accepted")
		case errors.Is(err, media.ErrFileTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		default:
			s.logger.Error("upload failed", "error", err)
			writeInternalError(w, "upload failed")
		}
		return
	}

	s.logger.Info("audio uploaded", "user", claims.Subject, "file", af.ID, "size", af.Size)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"file":    af,
		"url":     "/uploads/" + af.Filename,
	})
}

// handleListFiles returns the authenticated user's audio files.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	files, err := s.mediaRepo.ListByUser(r.Context(), claims.Subject)
	if err != nil {
		s.logger.Error("file listing failed", "error", err)
		writeInternalError(w, "could not list files")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "files": files})
}

// handleDeleteFile removes an audio file's bytes and metadata.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	err := s.store.Remove(r.Context(), chi.URLParam(r, "id"), claims.Subject)
	if err != nil {
		if errors.Is(err, media.ErrFileNotFound) {
			writeNotFound(w, "file not found")
			return
		}
		s.logger.Error("file delete failed", "error", err)
		writeInternalError(w, "could not delete file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleConvertAudio pulls the audio track from a source URL via the
// extractor and registers it as one of the user's audio files.
func (s *Server) handleConvertAudio(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	var req convertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validSourceURL(req.URL) {
		writeBadRequest(w, "a valid http(s) url is required")
		return
	}

	extraction, err := s.extractor.Extract(r.Context(), media.ExtractRequest{
		URL:     req.URL,
		Format:  req.Format,
		Quality: req.Quality,
	})
	if err != nil {
		s.logger.Warn("audio extraction failed", "url", req.URL, "error", err)
		writeError(w, http.StatusBadGateway, "audio conversion failed")
		return
	}

	af := &media.AudioFile{
		UserID:       claims.Subject,
		Filename:     extraction.Filename,
		OriginalName: extraction.Title,
		Title:        extraction.Title,
		MimeType:     mimeForFilename(extraction.Filename),
		Size:         extraction.Size,
		Source:       media.SourceYouTube,
		SourceURL:    req.URL,
	}
	if err := s.mediaRepo.Create(r.Context(), af); err != nil {
		s.logger.Error("converted file registration failed", "error", err)
		writeInternalError(w, "audio conversion failed")
		return
	}

	s.logger.Info("audio converted", "user", claims.Subject, "file", af.ID, "source", req.URL)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"file":    af,
		"url":     "/uploads/" + af.Filename,
	})
}

// handleServeUpload streams a stored audio file back to the client.
func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := s.store.Resolve(filename)
	if err != nil {
		writeNotFound(w, "file not found")
		return
	}

	// ServeFile handles range requests, needed for audio seeking.
	http.ServeFile(w, r, path)
}

// validSourceURL accepts absolute http(s) URLs only.
func validSourceURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// mimeForFilename maps an extracted file's extension to a MIME type.
// Extraction defaults to mp3, so unknown extensions fall back to that.
func mimeForFilename(name string) string {
	if typ := mime.TypeByExtension(filepath.Ext(name)); typ != "" {
		return typ
	}
	return "audio/mpeg"
}
