package playlist

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the playlist schema and
// its referenced tables applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "playlist-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			is_premium INTEGER NOT NULL DEFAULT 0,
			premium_expires_at TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE audio_files (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			original_name TEXT NOT NULL,
			title TEXT,
			artist TEXT,
			album TEXT,
			mime_type TEXT NOT NULL,
			size INTEGER NOT NULL,
			duration_seconds REAL,
			source TEXT NOT NULL DEFAULT 'upload',
			source_url TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE playlists (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_public INTEGER NOT NULL DEFAULT 0,
			is_premium INTEGER NOT NULL DEFAULT 0,
			max_songs INTEGER NOT NULL DEFAULT 8,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE playlist_items (
			id TEXT PRIMARY KEY,
			playlist_id TEXT NOT NULL,
			audio_file_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
			FOREIGN KEY (audio_file_id) REFERENCES audio_files(id) ON DELETE CASCADE
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying migration: %v", err)
	}

	// One user and a handful of audio files for item tests.
	if _, err := db.Exec(
		`INSERT INTO users (id, email, username, password_hash) VALUES ('usr-1', 'a@example.com', 'a', 'hash')`); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	for i := 1; i <= 10; i++ {
		_, err := db.Exec(
			`INSERT INTO audio_files (id, user_id, filename, original_name, title, artist, mime_type, size)
			 VALUES (?, 'usr-1', ?, ?, ?, 'Artist', 'audio/mpeg', 1024)`,
			fmt.Sprintf("af-%d", i), fmt.Sprintf("audio-%d.mp3", i),
			fmt.Sprintf("song-%d.mp3", i), fmt.Sprintf("Song %d", i))
		if err != nil {
			t.Fatalf("seeding audio file: %v", err)
		}
	}

	return db
}

func seedPlaylist(t *testing.T, repo *SQLiteRepository, name string) *Playlist {
	t.Helper()
	p := &Playlist{UserID: "usr-1", Name: name}
	if err := repo.Create(t.Context(), p); err != nil {
		t.Fatalf("creating playlist: %v", err)
	}
	return p
}

func TestCreateDefaultsFreeCap(t *testing.T) {
	repo := NewRepository(testDB(t))

	p := seedPlaylist(t, repo, "Road Trip")
	if p.MaxSongs != FreeMaxSongs {
		t.Errorf("max songs = %d, want %d", p.MaxSongs, FreeMaxSongs)
	}
	if p.ID == "" {
		t.Error("expected generated ID")
	}

	premium := &Playlist{UserID: "usr-1", Name: "Big", IsPremium: true}
	if err := repo.Create(t.Context(), premium); err != nil {
		t.Fatalf("creating premium playlist: %v", err)
	}
	if premium.MaxSongs != PremiumMaxSongs {
		t.Errorf("premium max songs = %d, want %d", premium.MaxSongs, PremiumMaxSongs)
	}
}

func TestGetByIDWithSongCount(t *testing.T) {
	repo := NewRepository(testDB(t))
	p := seedPlaylist(t, repo, "Road Trip")

	for i := 1; i <= 3; i++ {
		if _, err := repo.AddItem(t.Context(), p.ID, fmt.Sprintf("af-%d", i)); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}

	got, err := repo.GetByID(t.Context(), p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.SongCount != 3 {
		t.Errorf("song count = %d, want 3", got.SongCount)
	}

	if _, err := repo.GetByID(t.Context(), "pl-missing"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestListByUser(t *testing.T) {
	repo := NewRepository(testDB(t))
	seedPlaylist(t, repo, "First")
	seedPlaylist(t, repo, "Second")

	got, err := repo.ListByUser(t.Context(), "usr-1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d playlists, want 2", len(got))
	}

	// Unknown user returns an empty slice, not an error.
	none, err := repo.ListByUser(t.Context(), "usr-ghost")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d playlists for unknown user, want 0", len(none))
	}
}

func TestUpdateOwnership(t *testing.T) {
	repo := NewRepository(testDB(t))
	p := seedPlaylist(t, repo, "Road Trip")

	p.Name = "Renamed"
	p.IsPublic = true
	if err := repo.Update(t.Context(), p); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(t.Context(), p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Renamed" || !got.IsPublic {
		t.Errorf("update not applied: %+v", got)
	}

	// Another user cannot update.
	stolen := *p
	stolen.UserID = "usr-2"
	if err := repo.Update(t.Context(), &stolen); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := NewRepository(testDB(t))
	p := seedPlaylist(t, repo, "Road Trip")
	if _, err := repo.AddItem(t.Context(), p.ID, "af-1"); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if err := repo.Delete(t.Context(), p.ID, "usr-2"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if err := repo.Delete(t.Context(), p.ID, "usr-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(t.Context(), p.ID); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound after delete, got %v", err)
	}

	// Items cascade away with the playlist.
	items, err := repo.Items(t.Context(), p.ID)
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d orphaned items, want 0", len(items))
	}
}

func TestAddItemEnforcesCap(t *testing.T) {
	repo := NewRepository(testDB(t))
	p := seedPlaylist(t, repo, "Road Trip")

	for i := 1; i <= FreeMaxSongs; i++ {
		if _, err := repo.AddItem(t.Context(), p.ID, fmt.Sprintf("af-%d", i)); err != nil {
			t.Fatalf("AddItem %d failed: %v", i, err)
		}
	}

	_, err := repo.AddItem(t.Context(), p.ID, "af-9")
	if !errors.Is(err, ErrPlaylistFull) {
		t.Fatalf("expected ErrPlaylistFull, got %v", err)
	}

	items, err := repo.Items(t.Context(), p.ID)
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(items) != FreeMaxSongs {
		t.Errorf("got %d items, want %d", len(items), FreeMaxSongs)
	}
}

func TestAddItemUnknownPlaylist(t *testing.T) {
	repo := NewRepository(testDB(t))
	if _, err := repo.AddItem(t.Context(), "pl-missing", "af-1"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestItemsOrderedWithMetadata(t *testing.T) {
	repo := NewRepository(testDB(t))
	p := seedPlaylist(t, repo, "Road Trip")

	for i := 1; i <= 3; i++ {
		if _, err := repo.AddItem(t.Context(), p.ID, fmt.Sprintf("af-%d", i)); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}

	items, err := repo.Items(t.Context(), p.ID)
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for i, it := range items {
		if it.Position != i+1 {
			t.Errorf("item %d position = %d, want %d", i, it.Position, i+1)
		}
		if it.Title == "" || it.Filename == "" {
			t.Errorf("item %d missing joined metadata: %+v", i, it)
		}
	}
}

func TestRemoveItemClosesGap(t *testing.T) {
	repo := NewRepository(testDB(t))
	p := seedPlaylist(t, repo, "Road Trip")

	var middle *Item
	for i := 1; i <= 3; i++ {
		it, err := repo.AddItem(t.Context(), p.ID, fmt.Sprintf("af-%d", i))
		if err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
		if i == 2 {
			middle = it
		}
	}

	if err := repo.RemoveItem(t.Context(), p.ID, middle.ID); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}

	items, err := repo.Items(t.Context(), p.ID)
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	for i, it := range items {
		if it.Position != i+1 {
			t.Errorf("position gap not closed: item %d has position %d", i, it.Position)
		}
	}

	if err := repo.RemoveItem(t.Context(), p.ID, middle.ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound on double remove, got %v", err)
	}
}
