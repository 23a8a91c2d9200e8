package media

import (
	"errors"
	"time"
)

// Audio file sources.
const (
	SourceUpload  = "upload"
	SourceYouTube = "youtube"
)

// AudioFile is the stored metadata for one audio file on disk.
type AudioFile struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Title        string    `json:"title,omitempty"`
	Artist       string    `json:"artist,omitempty"`
	Album        string    `json:"album,omitempty"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Duration     float64   `json:"durationSeconds,omitempty"`
	Source       string    `json:"source"`
	SourceURL    string    `json:"sourceUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Domain errors for the media package. Check with errors.Is().
var (
	// ErrFileNotFound is returned when an audio file id matches no row.
	ErrFileNotFound = errors.New("media: file not found")

	// ErrNotAudio is returned when an upload's content type is not audio.
	ErrNotAudio = errors.New("media: not an audio file")

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("media: file exceeds size limit")

	// ErrExtractionFailed is returned when the external extractor cannot
	// produce an audio file from a source URL.
	ErrExtractionFailed = errors.New("media: extraction failed")
)
