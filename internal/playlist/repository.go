package playlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for playlist persistence.
type Repository interface {
	Create(ctx context.Context, p *Playlist) error
	GetByID(ctx context.Context, id string) (*Playlist, error)
	ListByUser(ctx context.Context, userID string) ([]Playlist, error)
	Update(ctx context.Context, p *Playlist) error
	Delete(ctx context.Context, id, userID string) error
	AddItem(ctx context.Context, playlistID, audioFileID string) (*Item, error)
	RemoveItem(ctx context.Context, playlistID, itemID string) error
	Items(ctx context.Context, playlistID string) ([]Item, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed playlist repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new playlist. The ID is generated if empty, and the
// song cap defaults by tier when unset.
func (r *SQLiteRepository) Create(ctx context.Context, p *Playlist) error {
	if p.ID == "" {
		p.ID = "pl-" + uuid.NewString()[:8]
	}
	if p.MaxSongs <= 0 {
		if p.IsPremium {
			p.MaxSongs = PremiumMaxSongs
		} else {
			p.MaxSongs = FreeMaxSongs
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	p.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO playlists (id, user_id, name, description, is_public, is_premium, max_songs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Description,
		boolToInt(p.IsPublic), boolToInt(p.IsPremium), p.MaxSongs, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating playlist: %w", err)
	}
	return nil
}

// GetByID retrieves a playlist with its current song count.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Playlist, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.user_id, p.name, p.description, p.is_public, p.is_premium, p.max_songs,
		        (SELECT COUNT(*) FROM playlist_items WHERE playlist_id = p.id),
		        p.created_at, p.updated_at
		 FROM playlists p WHERE p.id = ?`, id)
	return scanPlaylist(row)
}

// ListByUser returns a user's playlists ordered by creation date.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]Playlist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.user_id, p.name, p.description, p.is_public, p.is_premium, p.max_songs,
		        (SELECT COUNT(*) FROM playlist_items WHERE playlist_id = p.id),
		        p.created_at, p.updated_at
		 FROM playlists p WHERE p.user_id = ? ORDER BY p.created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	defer rows.Close()

	playlists := []Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playlists: %w", err)
	}
	return playlists, nil
}

// Update modifies a playlist's mutable fields (name, description, is_public).
// Ownership is enforced: the row must belong to p.UserID.
func (r *SQLiteRepository) Update(ctx context.Context, p *Playlist) error {
	now := time.Now().UTC().Format(time.RFC3339)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE playlists SET name = ?, description = ?, is_public = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		p.Name, p.Description, boolToInt(p.IsPublic), now, p.ID, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating playlist: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return r.notFoundOrNotOwner(ctx, p.ID)
	}
	return nil
}

// Delete removes a playlist and, via cascade, its items. Ownership is
// enforced.
func (r *SQLiteRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM playlists WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting playlist: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return r.notFoundOrNotOwner(ctx, id)
	}
	return nil
}

// AddItem appends an audio file to the end of a playlist. The song cap is
// checked and the position assigned inside one transaction so concurrent
// adds cannot overshoot the cap or collide on position.
func (r *SQLiteRepository) AddItem(ctx context.Context, playlistID, audioFileID string) (*Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var maxSongs, count int
	err = tx.QueryRowContext(ctx,
		`SELECT p.max_songs, (SELECT COUNT(*) FROM playlist_items WHERE playlist_id = p.id)
		 FROM playlists p WHERE p.id = ?`, playlistID).Scan(&maxSongs, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("reading playlist cap: %w", err)
	}
	if count >= maxSongs {
		return nil, fmt.Errorf("%w: %d of %d songs", ErrPlaylistFull, count, maxSongs)
	}

	item := &Item{
		ID:          "pli-" + uuid.NewString()[:8],
		PlaylistID:  playlistID,
		AudioFileID: audioFileID,
		Position:    count + 1,
	}
	now := time.Now().UTC().Format(time.RFC3339)
	item.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err = tx.ExecContext(ctx,
		`INSERT INTO playlist_items (id, playlist_id, audio_file_id, position, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.PlaylistID, item.AudioFileID, item.Position, now,
	)
	if err != nil {
		return nil, fmt.Errorf("adding playlist item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing playlist item: %w", err)
	}
	return item, nil
}

// RemoveItem deletes one item and closes the position gap it leaves.
func (r *SQLiteRepository) RemoveItem(ctx context.Context, playlistID, itemID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var position int
	err = tx.QueryRowContext(ctx,
		"SELECT position FROM playlist_items WHERE id = ? AND playlist_id = ?",
		itemID, playlistID).Scan(&position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("reading playlist item: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM playlist_items WHERE id = ?", itemID); err != nil {
		return fmt.Errorf("removing playlist item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE playlist_items SET position = position - 1 WHERE playlist_id = ? AND position > ?",
		playlistID, position); err != nil {
		return fmt.Errorf("reordering playlist items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item removal: %w", err)
	}
	return nil
}

// Items returns a playlist's entries in position order with track metadata
// joined from audio_files.
func (r *SQLiteRepository) Items(ctx context.Context, playlistID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.playlist_id, i.audio_file_id, i.position,
		        COALESCE(a.title, ''), COALESCE(a.artist, ''), COALESCE(a.filename, ''),
		        i.created_at
		 FROM playlist_items i
		 LEFT JOIN audio_files a ON a.id = i.audio_file_id
		 WHERE i.playlist_id = ?
		 ORDER BY i.position ASC`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("listing playlist items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		var createdAt string
		if err := rows.Scan(&it.ID, &it.PlaylistID, &it.AudioFileID, &it.Position,
			&it.Title, &it.Artist, &it.Filename, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning playlist item: %w", err)
		}
		it.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating playlist items: %w", err)
	}
	return items, nil
}

// notFoundOrNotOwner distinguishes a missing playlist from an ownership
// mismatch after a zero-row write.
func (r *SQLiteRepository) notFoundOrNotOwner(ctx context.Context, id string) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM playlists WHERE id = ?", id).Scan(&exists)
	if err == nil && exists > 0 {
		return ErrNotOwner
	}
	return ErrPlaylistNotFound
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(s scanner) (*Playlist, error) {
	var p Playlist
	var isPublic, isPremium int
	var createdAt, updatedAt string

	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Description,
		&isPublic, &isPremium, &p.MaxSongs, &p.SongCount,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("scanning playlist: %w", err)
	}

	p.IsPublic = isPublic != 0
	p.IsPremium = isPremium != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
