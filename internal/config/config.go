package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// Language is the subtitle language code requested from the platform
	// and passed to the transcription fallback (e.g. "el", "en").
	Language string `json:"language"`

	// EmbedModel is the embedding model identity. The indexer and the
	// search engine must use the same model or ranking silently breaks,
	// so both read it from here.
	EmbedModel string `json:"embed_model"`

	// RelevanceFloor is the minimum similarity score for a search hit to
	// be surfaced. Unrelated cues still get nonzero cosine similarity.
	RelevanceFloor float64 `json:"relevance_floor"`

	// TopK is the default number of search hits returned.
	TopK int `json:"top_k"`

	// ClipSeconds is the duration of the downloaded media window.
	ClipSeconds float64 `json:"clip_seconds"`

	// ClipMaxHeight bounds the downloaded media resolution to keep
	// rendering fast.
	ClipMaxHeight int `json:"clip_max_height"`

	// CaptionMaxChars bounds the sanitized caption used in clip cache
	// filenames.
	CaptionMaxChars int `json:"caption_max_chars"`

	// FontPath points at the TTF used for caption overlay. If empty or
	// missing, FontFallbacks (then a built-in per-OS list) is searched.
	FontPath string `json:"font_path,omitempty"`

	// FontFallbacks is an ordered list of extra font paths to try.
	FontFallbacks []string `json:"font_fallbacks,omitempty"`

	// YtDlpPath overrides external binary discovery for yt-dlp.
	YtDlpPath string `json:"yt_dlp_path,omitempty"`

	// FFmpegPath overrides external binary discovery for ffmpeg.
	FFmpegPath string `json:"ffmpeg_path,omitempty"`

	// WhisperPath overrides external binary discovery for the
	// transcription CLI.
	WhisperPath string `json:"whisper_path,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Language:        "el",
		EmbedModel:      "text-embedding-3-small",
		RelevanceFloor:  0.25,
		TopK:            10,
		ClipSeconds:     4,
		ClipMaxHeight:   480,
		CaptionMaxChars: 20,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.gifgrep.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; font fallbacks are merged
// and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Language = overlay.Language
	if result.Language == "" {
		result.Language = base.Language
	}

	result.EmbedModel = overlay.EmbedModel
	if result.EmbedModel == "" {
		result.EmbedModel = base.EmbedModel
	}

	result.RelevanceFloor = overlay.RelevanceFloor
	if result.RelevanceFloor == 0 {
		result.RelevanceFloor = base.RelevanceFloor
	}

	result.TopK = overlay.TopK
	if result.TopK == 0 {
		result.TopK = base.TopK
	}

	result.ClipSeconds = overlay.ClipSeconds
	if result.ClipSeconds == 0 {
		result.ClipSeconds = base.ClipSeconds
	}

	result.ClipMaxHeight = overlay.ClipMaxHeight
	if result.ClipMaxHeight == 0 {
		result.ClipMaxHeight = base.ClipMaxHeight
	}

	result.CaptionMaxChars = overlay.CaptionMaxChars
	if result.CaptionMaxChars == 0 {
		result.CaptionMaxChars = base.CaptionMaxChars
	}

	result.FontPath = overlay.FontPath
	if result.FontPath == "" {
		result.FontPath = base.FontPath
	}

	result.YtDlpPath = overlay.YtDlpPath
	if result.YtDlpPath == "" {
		result.YtDlpPath = base.YtDlpPath
	}

	result.FFmpegPath = overlay.FFmpegPath
	if result.FFmpegPath == "" {
		result.FFmpegPath = base.FFmpegPath
	}

	result.WhisperPath = overlay.WhisperPath
	if result.WhisperPath == "" {
		result.WhisperPath = base.WhisperPath
	}

	result.FontFallbacks = mergeStringSlice(base.FontFallbacks, overlay.FontFallbacks)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
