package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for audio file metadata persistence.
type Repository interface {
	Create(ctx context.Context, f *AudioFile) error
	GetByID(ctx context.Context, id string) (*AudioFile, error)
	ListByUser(ctx context.Context, userID string) ([]AudioFile, error)
	Delete(ctx context.Context, id, userID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed audio file repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const audioFileColumns = `id, user_id, filename, original_name,
	COALESCE(title, ''), COALESCE(artist, ''), COALESCE(album, ''),
	mime_type, size, COALESCE(duration_seconds, 0), source, COALESCE(source_url, ''), created_at`

// Create inserts an audio file metadata row. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, f *AudioFile) error {
	if f.ID == "" {
		f.ID = "af-" + uuid.NewString()[:8]
	}
	if f.Source == "" {
		f.Source = SourceUpload
	}

	now := time.Now().UTC().Format(time.RFC3339)
	f.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audio_files (id, user_id, filename, original_name, title, artist, album, mime_type, size, duration_seconds, source, source_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.Filename, f.OriginalName,
		nullString(f.Title), nullString(f.Artist), nullString(f.Album),
		f.MimeType, f.Size, nullFloat(f.Duration), f.Source, nullString(f.SourceURL), now,
	)
	if err != nil {
		return fmt.Errorf("creating audio file: %w", err)
	}
	return nil
}

// GetByID retrieves an audio file by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*AudioFile, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+audioFileColumns+" FROM audio_files WHERE id = ?", id)
	return scanAudioFile(row)
}

// ListByUser returns a user's audio files, newest first.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]AudioFile, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+audioFileColumns+" FROM audio_files WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("listing audio files: %w", err)
	}
	defer rows.Close()

	files := []AudioFile{}
	for rows.Next() {
		f, err := scanAudioFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audio files: %w", err)
	}
	return files, nil
}

// Delete removes an audio file row. Ownership is enforced.
func (r *SQLiteRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM audio_files WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting audio file: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrFileNotFound
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanAudioFile(s scanner) (*AudioFile, error) {
	var f AudioFile
	var createdAt string

	err := s.Scan(&f.ID, &f.UserID, &f.Filename, &f.OriginalName,
		&f.Title, &f.Artist, &f.Album,
		&f.MimeType, &f.Size, &f.Duration, &f.Source, &f.SourceURL, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("scanning audio file: %w", err)
	}

	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &f, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
