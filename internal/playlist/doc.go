// Package playlist provides SQLite-backed playlist storage for BlueMe.
//
// Playlists are per-user ordered collections of audio files with a song
// cap by account tier (8 for free, 500 for premium). Item positions are
// dense: removing an item closes the gap in one transaction, and adds
// check the cap transactionally so concurrent writers cannot overshoot.
package playlist
