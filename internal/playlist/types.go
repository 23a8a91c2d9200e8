package playlist

import (
	"errors"
	"time"
)

// Song caps per account tier.
const (
	FreeMaxSongs    = 8
	PremiumMaxSongs = 500
)

// Playlist is a named, ordered collection of audio files owned by a user.
type Playlist struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	IsPremium   bool      `json:"isPremium"`
	MaxSongs    int       `json:"maxSongs"`
	SongCount   int       `json:"songCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Item is one entry of a playlist. Track metadata is denormalised from the
// audio_files row at query time so clients can render without a second
// round trip.
type Item struct {
	ID          string    `json:"id"`
	PlaylistID  string    `json:"playlistId"`
	AudioFileID string    `json:"audioFileId"`
	Position    int       `json:"position"`
	Title       string    `json:"title,omitempty"`
	Artist      string    `json:"artist,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Domain errors for the playlist package. Check with errors.Is().
var (
	// ErrPlaylistNotFound is returned when a playlist id matches no row.
	ErrPlaylistNotFound = errors.New("playlist: not found")

	// ErrItemNotFound is returned when a playlist item id matches no row.
	ErrItemNotFound = errors.New("playlist: item not found")

	// ErrPlaylistFull is returned when adding a song would exceed the
	// playlist's song cap.
	ErrPlaylistFull = errors.New("playlist: song limit reached")

	// ErrNotOwner is returned when a user operates on a playlist they do
	// not own.
	ErrNotOwner = errors.New("playlist: not owned by user")
)
