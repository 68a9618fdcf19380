// Package store implements the transcript store: a directory of per-video
// WebVTT files named subs/<videoId>.<lang>.vtt. File existence is the cache
// signal for acquisition; there is no other index.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hpungsan/gifgrep/internal/errors"
	"github.com/hpungsan/gifgrep/internal/subtitle"
)

// Store provides access to the transcript directory.
type Store struct {
	dir string
}

// Init initializes the transcript store at baseDir/subs.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.gifgrep.
func Init(baseDir string) (*Store, error) {
	dir := filepath.Join(baseDir, "subs")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the transcript directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether any transcript file for videoID is present, and
// returns its path if so. Matching is by filename prefix, so both
// platform-downloaded ("<id>.el.vtt") and generated files count.
// This check is the idempotence contract of acquisition.
func (s *Store) Exists(videoID string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(s.dir, escapeGlob(videoID)+"*.vtt"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}

// DestPrefix returns the output path prefix for platform subtitle downloads:
// the downloader appends ".<lang>.vtt" to it.
func (s *Store) DestPrefix(videoID string) string {
	return filepath.Join(s.dir, videoID)
}

// Path returns the canonical transcript path for a generated transcript.
func (s *Store) Path(videoID, lang string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.vtt", videoID, lang))
}

// Write serializes cues to the canonical transcript path for videoID.
// Transcripts are never mutated after creation; Write over an existing
// file indicates a pipeline bug upstream and is refused.
func (s *Store) Write(videoID, lang string, cues []subtitle.Cue) (string, error) {
	if path, ok := s.Exists(videoID); ok {
		return "", fmt.Errorf("transcript already exists: %s", path)
	}
	path := s.Path(videoID, lang)
	if err := os.WriteFile(path, []byte(subtitle.Serialize(cues)), 0600); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}

// List returns all transcript file paths in sorted order.
// Returns an empty slice (not an error) if the directory is missing.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list transcript directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".vtt") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadCues parses the transcript at path and stamps each cue with the
// video id derived from the filename.
func (s *Store) ReadCues(path string) ([]subtitle.Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cues, err := subtitle.Parse(string(data))
	if err != nil {
		return nil, errors.NewParseFailed(path, err)
	}
	videoID := VideoIDFromPath(path)
	for i := range cues {
		cues[i].VideoID = videoID
	}
	return cues, nil
}

// VideoIDFromPath derives the video id from a transcript filename:
// everything before the first dot ("dQw4w9WgXcQ.el.vtt" → "dQw4w9WgXcQ").
func VideoIDFromPath(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// escapeGlob escapes glob metacharacters in a video id so it is matched
// literally. Video ids are normally alphanumeric but come from untrusted
// playlist metadata.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
