package media

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeExtractorBinary writes a shell script that mimics yt-dlp's --print
// output and returns its path.
func fakeExtractorBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-ytdlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing stub binary: %v", err)
	}
	return path
}

func TestExtractParsesTitleAndPath(t *testing.T) {
	dir := t.TempDir()
	produced := filepath.Join(dir, "audio-123-000000001.mp3")
	if err := os.WriteFile(produced, []byte("mp3 bytes"), 0o644); err != nil {
		t.Fatalf("writing produced file: %v", err)
	}

	binary := fakeExtractorBinary(t,
		"echo 'Never Gonna Give You Up'\n"+
			"echo '"+produced+"'\n")

	e := NewYTDLPExtractor(binary, dir, 5*time.Second)
	got, err := e.Extract(t.Context(), ExtractRequest{URL: "https://youtube.com/watch?v=test"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if got.Title != "Never Gonna Give You Up" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Filename != filepath.Base(produced) {
		t.Errorf("filename = %q, want %q", got.Filename, filepath.Base(produced))
	}
	if got.Size != int64(len("mp3 bytes")) {
		t.Errorf("size = %d", got.Size)
	}
}

func TestExtractFailureSurfacesStderr(t *testing.T) {
	binary := fakeExtractorBinary(t,
		"echo 'ERROR: video unavailable' >&2\n"+
			"exit 1\n")

	e := NewYTDLPExtractor(binary, t.TempDir(), 5*time.Second)
	_, err := e.Extract(t.Context(), ExtractRequest{URL: "https://youtube.com/watch?v=gone"})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "video unavailable") {
		t.Errorf("error should carry stderr detail: %v", err)
	}
}

func TestExtractTimeout(t *testing.T) {
	binary := fakeExtractorBinary(t, "sleep 5\n")

	e := NewYTDLPExtractor(binary, t.TempDir(), 100*time.Millisecond)
	start := time.Now()
	_, err := e.Extract(t.Context(), ExtractRequest{URL: "https://youtube.com/watch?v=slow"})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("extraction was not killed at the deadline")
	}
}

func TestExtractMissingProducedFile(t *testing.T) {
	binary := fakeExtractorBinary(t,
		"echo 'Title'\n"+
			"echo '/nonexistent/file.mp3'\n")

	e := NewYTDLPExtractor(binary, t.TempDir(), 5*time.Second)
	if _, err := e.Extract(t.Context(), ExtractRequest{URL: "https://youtube.com/watch?v=x"}); !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestNewYTDLPExtractorDefaults(t *testing.T) {
	e := NewYTDLPExtractor("", "/tmp/uploads", 0)
	if e.Binary != "yt-dlp" {
		t.Errorf("binary = %q, want yt-dlp", e.Binary)
	}
	if e.Timeout != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", e.Timeout)
	}
	if e.DefaultFormat != "mp3" || e.DefaultQuality != "192K" {
		t.Errorf("defaults = %q/%q, want mp3/192K", e.DefaultFormat, e.DefaultQuality)
	}
}
