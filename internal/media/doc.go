// Package media handles audio file storage for BlueMe.
//
// Uploaded files land on disk under generated collision-free names with
// their metadata in SQLite. The Extractor interface covers pulling audio
// from external sources; the default implementation shells out to yt-dlp
// under a hard timeout.
package media
