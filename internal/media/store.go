package media

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store writes uploaded audio to disk and records metadata rows.
type Store struct {
	dir     string
	maxSize int64
	repo    Repository
}

// NewStore creates a media store rooted at dir. The directory is created
// if missing.
func NewStore(dir string, maxSize int64, repo Repository) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Store{dir: dir, maxSize: maxSize, repo: repo}, nil
}

// Dir returns the root of the on-disk store.
func (s *Store) Dir() string {
	return s.dir
}

// Save streams an upload to disk under a generated collision-free name and
// records its metadata. The content type must be audio/* and the stream is
// cut off at the configured size limit.
func (s *Store) Save(ctx context.Context, userID, originalName, contentType string, r io.Reader) (*AudioFile, error) {
	if !IsAudio(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrNotAudio, contentType)
	}

	filename := GenerateFilename(originalName)
	path := filepath.Join(s.dir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}

	// Read one byte past the limit so an at-limit file is distinguishable
	// from an over-limit one.
	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path) //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("writing upload: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path) //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("%w: limit %d bytes", ErrFileTooLarge, s.maxSize)
	}

	af := &AudioFile{
		UserID:       userID,
		Filename:     filename,
		OriginalName: originalName,
		Title:        titleFromName(originalName),
		MimeType:     contentType,
		Size:         written,
		Source:       SourceUpload,
	}
	if err := s.repo.Create(ctx, af); err != nil {
		os.Remove(path) //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return af, nil
}

// Remove deletes an audio file's metadata row and its bytes on disk.
// Ownership is enforced by the repository.
func (s *Store) Remove(ctx context.Context, id, userID string) error {
	af, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	// Metadata is gone; a leftover file is only wasted disk.
	if err := os.Remove(filepath.Join(s.dir, filepath.Base(af.Filename))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file bytes: %w", err)
	}
	return nil
}

// Resolve maps a stored filename to its on-disk path, refusing anything
// that escapes the store directory.
func (s *Store) Resolve(filename string) (string, error) {
	clean := filepath.Base(filename)
	if clean != filename || clean == "." || clean == ".." {
		return "", ErrFileNotFound
	}
	path := filepath.Join(s.dir, clean)
	if _, err := os.Stat(path); err != nil {
		return "", ErrFileNotFound
	}
	return path, nil
}

// IsAudio reports whether a content type is an audio type.
func IsAudio(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "audio/")
}

// GenerateFilename builds a collision-free stored name from an upload's
// original name, keeping only its extension.
func GenerateFilename(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if ext == "" {
		ext = ".mp3"
	}
	return fmt.Sprintf("audio-%d-%09d%s", time.Now().UnixMilli(), rand.IntN(1_000_000_000), ext)
}

// titleFromName derives a display title from an upload's original name.
func titleFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
