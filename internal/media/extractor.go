package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Extraction is the outcome of pulling audio from a source URL.
type Extraction struct {
	Filename string
	Title    string
	Size     int64
}

// ExtractRequest describes one conversion. Format and Quality fall back to
// the extractor's defaults when empty.
type ExtractRequest struct {
	URL     string
	Format  string
	Quality string
}

// Extractor pulls the audio track from a source URL into the store
// directory. Implementations must honour context cancellation.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (*Extraction, error)
}

// YTDLPExtractor extracts audio by shelling out to yt-dlp.
type YTDLPExtractor struct {
	// Binary is the yt-dlp executable, looked up on PATH if not absolute.
	Binary string

	// Dir is the directory extracted files are written to.
	Dir string

	// Timeout bounds the whole extraction. yt-dlp can hang on throttled
	// or geo-blocked sources, so the process is killed at the deadline.
	Timeout time.Duration

	// DefaultFormat and DefaultQuality apply when the request leaves them
	// empty. Quality is a bitrate in the form yt-dlp accepts, e.g. "192K".
	DefaultFormat  string
	DefaultQuality string

	// statSize reports the size of a produced file. Defaults to os.Stat.
	statSize func(path string) (int64, error)
}

// NewYTDLPExtractor creates an extractor writing into dir.
func NewYTDLPExtractor(binary, dir string, timeout time.Duration) *YTDLPExtractor {
	if binary == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &YTDLPExtractor{
		Binary:         binary,
		Dir:            dir,
		Timeout:        timeout,
		DefaultFormat:  "mp3",
		DefaultQuality: "192K",
		statSize:       statSize,
	}
}

// Extract downloads the audio track of the requested URL into the store
// directory and returns the produced filename and title.
func (e *YTDLPExtractor) Extract(ctx context.Context, req ExtractRequest) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	format := req.Format
	if format == "" {
		format = e.DefaultFormat
	}
	if format == "" {
		format = "mp3"
	}
	quality := req.Quality
	if quality == "" {
		quality = e.DefaultQuality
	}
	if quality == "" {
		quality = "192K"
	}

	outTemplate := filepath.Join(e.Dir, GenerateFilename("extract."+format))
	outTemplate = strings.TrimSuffix(outTemplate, "."+format) + ".%(ext)s"

	//nolint:gosec // binary comes from validated configuration, url is a single argv entry
	cmd := exec.CommandContext(ctx, e.Binary,
		"--no-playlist",
		"--extract-audio",
		"--audio-format", format,
		"--audio-quality", quality,
		"--output", outTemplate,
		"--print", "after_move:filepath",
		"--print", "title",
		"--no-warnings",
		"--quiet",
		req.URL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timed out after %s", ErrExtractionFailed, e.Timeout)
		}
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, firstLine(stderr.String()))
	}

	// yt-dlp prints one line per --print: title first, then the final path.
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: unexpected extractor output", ErrExtractionFailed)
	}
	title := strings.TrimSpace(lines[0])
	path := strings.TrimSpace(lines[len(lines)-1])

	size, err := e.statSize(path)
	if err != nil {
		return nil, fmt.Errorf("%w: produced file missing: %v", ErrExtractionFailed, err)
	}

	return &Extraction{
		Filename: filepath.Base(path),
		Title:    title,
		Size:     size,
	}, nil
}

func statSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "extractor exited with error"
	}
	return s
}
