// Package clip renders captioned GIF clips from video moments. Finished
// clips are cached under gifs/ keyed by video, second, and caption;
// intermediate downloads live under temp_ prefixed names and are purged
// before each synthesis so a crashed run cannot accumulate junk.
package clip

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode"

	"github.com/hpungsan/gifgrep/internal/errors"
	"github.com/hpungsan/gifgrep/internal/media"
)

// filenameCaptionMax bounds the caption fragment of a cache key.
const filenameCaptionMax = 20

// systemFonts is tried last when neither the configured font nor any
// fallback resolves.
var systemFonts = map[string][]string{
	"linux": {
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
	},
	"darwin": {
		"/System/Library/Fonts/Helvetica.ttc",
		"/Library/Fonts/Arial.ttf",
	},
	"windows": {
		`C:\Windows\Fonts\arialbd.ttf`,
		`C:\Windows\Fonts\arial.ttf`,
	},
}

// Request asks for a clip of the moment at StartSeconds with Caption
// burned in.
type Request struct {
	VideoID      string
	StartSeconds float64
	Caption      string
}

// Result is a synthesized (or cache-served) clip.
type Result struct {
	Path   string `json:"path"`
	Cached bool   `json:"cached"`
}

// Synthesizer renders clips into baseDir/gifs.
type Synthesizer struct {
	dir         string
	downloader  media.Downloader
	encoder     media.Encoder
	fontPath    string
	fontsExtra  []string
	clipSeconds float64
	maxHeight   int
	captionMax  int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options tunes a Synthesizer. Zero values fall back to 4-second,
// 480-pixel clips with system font discovery.
type Options struct {
	FontPath      string
	FontFallbacks []string
	ClipSeconds   float64
	MaxHeight     int
	CaptionMax    int
}

// New creates the gifs directory and returns a Synthesizer over it.
func New(baseDir string, d media.Downloader, e media.Encoder, opts Options) (*Synthesizer, error) {
	dir := filepath.Join(baseDir, "gifs")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create clip directory: %w", err)
	}
	if opts.ClipSeconds <= 0 {
		opts.ClipSeconds = 4
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = 480
	}
	if opts.CaptionMax <= 0 {
		opts.CaptionMax = filenameCaptionMax
	}
	return &Synthesizer{
		dir:         dir,
		downloader:  d,
		encoder:     e,
		fontPath:    opts.FontPath,
		fontsExtra:  opts.FontFallbacks,
		clipSeconds: opts.ClipSeconds,
		maxHeight:   opts.MaxHeight,
		captionMax:  opts.CaptionMax,
	}, nil
}

// Dir returns the clip cache directory.
func (s *Synthesizer) Dir() string {
	return s.dir
}

// Synthesize returns the clip for req, rendering it if the cache has no
// entry. Concurrent requests for the same key serialize on a per-key
// lock; requests for different keys proceed independently.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if req.VideoID == "" {
		return nil, errors.NewInvalidRequest("videoId must not be empty")
	}
	if req.StartSeconds < 0 {
		return nil, errors.NewInvalidRequest("startSeconds must not be negative")
	}

	outPath := s.CachePath(req)
	unlock := s.lockKey(outPath)
	defer unlock()

	if _, err := os.Stat(outPath); err == nil {
		slog.Debug("clip cache hit", "path", outPath)
		return &Result{Path: outPath, Cached: true}, nil
	}

	s.purgeTemp(req.VideoID)

	tempPrefix := filepath.Join(s.dir, "temp_"+req.VideoID)
	mediaPath, err := s.downloader.DownloadWindow(ctx, req.VideoID, req.StartSeconds, s.clipSeconds, s.maxHeight, tempPrefix)
	if err != nil {
		return nil, errors.NewClipDownloadFailed(req.VideoID, err)
	}
	defer os.Remove(mediaPath)

	filter := BuildFilter(req.Caption, s.resolveFont(), s.maxHeight)
	if err := s.encoder.Render(ctx, mediaPath, outPath, filter); err != nil {
		// Render cleans its own partial output; nothing of ours to undo.
		return nil, errors.NewClipEncodeFailed(req.VideoID, err)
	}

	slog.Info("clip rendered", "video", req.VideoID, "path", outPath)
	return &Result{Path: outPath, Cached: false}, nil
}

// CachePath derives the deterministic cache location for req:
// gifs/<id>_<sec>_<caption>.gif with the caption reduced to a short
// filename-safe fragment.
func (s *Synthesizer) CachePath(req Request) string {
	sec := int(math.Floor(req.StartSeconds))
	name := fmt.Sprintf("%s_%d_%s.gif", req.VideoID, sec, sanitizeFilenameN(req.Caption, s.captionMax))
	return filepath.Join(s.dir, name)
}

// PurgeTemp removes leftover temp_ intermediates for every video.
// Exposed for the purge command.
func (s *Synthesizer) PurgeTemp() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "temp_*"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			removed++
		}
	}
	return removed, nil
}

// purgeTemp removes intermediates for one video before a fresh download.
func (s *Synthesizer) purgeTemp(videoID string) {
	matches, _ := filepath.Glob(filepath.Join(s.dir, "temp_"+videoID+"*"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			slog.Warn("failed to remove stale intermediate", "path", m, "error", err)
		}
	}
}

// lockKey serializes synthesis per cache path.
func (s *Synthesizer) lockKey(key string) func() {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// resolveFont picks the first usable font file: the configured path,
// then configured fallbacks, then the platform list. Empty means let
// ffmpeg use its built-in default.
func (s *Synthesizer) resolveFont() string {
	candidates := make([]string, 0, 8)
	if s.fontPath != "" {
		candidates = append(candidates, s.fontPath)
	}
	candidates = append(candidates, s.fontsExtra...)
	candidates = append(candidates, systemFonts[runtime.GOOS]...)

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// BuildFilter assembles the GIF filter graph: frame rate and width
// normalization, the caption overlay, and a palette pass for quality.
func BuildFilter(caption, fontPath string, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fps=12,scale=%d:-1:flags=lanczos", width)

	if text := SanitizeCaption(caption); text != "" {
		b.WriteString(",drawtext=")
		if fontPath != "" {
			fmt.Fprintf(&b, "fontfile=%s:", fontPath)
		}
		fmt.Fprintf(&b, "text='%s':fontcolor=white:fontsize=24:box=1:boxcolor=black@0.5:boxborderw=5:x=(w-text_w)/2:y=h-text_h-10", text)
	}

	b.WriteString(",split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse")
	return b.String()
}

// SanitizeCaption strips the characters that break drawtext option
// parsing (quotes and colons).
func SanitizeCaption(caption string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\'', '"', ':':
			return -1
		}
		return r
	}, strings.TrimSpace(caption))
}

// SanitizeFilename reduces a caption to a short filename fragment:
// letters, digits and spaces only, truncated, spaces to underscores.
func SanitizeFilename(caption string) string {
	return sanitizeFilenameN(caption, filenameCaptionMax)
}

func sanitizeFilenameN(caption string, max int) string {
	var b strings.Builder
	for _, r := range caption {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	runes := []rune(strings.TrimSpace(b.String()))
	if len(runes) > max {
		runes = runes[:max]
	}
	out := strings.TrimSpace(string(runes))
	if out == "" {
		out = "clip"
	}
	return strings.ReplaceAll(out, " ", "_")
}
