package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/hpungsan/gifgrep/internal/errors"
)

// YtDlp is the yt-dlp backed Downloader.
type YtDlp struct {
	path string
}

// NewYtDlp locates the yt-dlp binary and returns a Downloader over it.
// pathOverride, when non-empty, is used verbatim.
func NewYtDlp(pathOverride string) (*YtDlp, error) {
	path, ok := findBinary("yt-dlp", pathOverride)
	if !ok {
		return nil, errors.NewToolMissing("yt-dlp")
	}
	return &YtDlp{path: path}, nil
}

// resolveInfo mirrors the subset of `yt-dlp -J` output we consume.
type resolveInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	OriginalURL string `json:"original_url"`
	WebpageURL  string `json:"webpage_url"`
	Entries     []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"entries"`
}

// Resolve maps a URL to its ordered video entries via a flat playlist scan.
// Null playlist entries (deleted/private videos) are skipped.
func (y *YtDlp) Resolve(ctx context.Context, url string) ([]Entry, error) {
	args := buildResolveArgs(url)
	out, err := y.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp resolve failed: %w", err)
	}

	var info resolveInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("yt-dlp resolve returned unparseable JSON: %w", err)
	}

	if len(info.Entries) > 0 {
		entries := make([]Entry, 0, len(info.Entries))
		for _, e := range info.Entries {
			if strings.TrimSpace(e.ID) == "" {
				continue
			}
			entries = append(entries, Entry{ID: e.ID, Title: e.Title, URL: e.URL})
		}
		return entries, nil
	}

	if strings.TrimSpace(info.ID) == "" {
		return nil, fmt.Errorf("no video information found at %s", url)
	}
	videoURL := info.OriginalURL
	if videoURL == "" {
		videoURL = info.WebpageURL
	}
	if videoURL == "" {
		videoURL = url
	}
	return []Entry{{ID: info.ID, Title: info.Title, URL: videoURL}}, nil
}

// DownloadSubtitles requests platform subtitles for lang. yt-dlp exits
// cleanly when no subtitles exist, so the caller must check for the file.
func (y *YtDlp) DownloadSubtitles(ctx context.Context, videoURL, lang, destPrefix string) error {
	args := buildSubtitleArgs(videoURL, lang, destPrefix)
	if _, err := y.run(ctx, args); err != nil {
		return fmt.Errorf("yt-dlp subtitle download failed: %w", err)
	}
	return nil
}

// DownloadAudio fetches best-available audio, extracted to mp3.
func (y *YtDlp) DownloadAudio(ctx context.Context, videoURL, destPrefix string) (string, error) {
	args := buildAudioArgs(videoURL, destPrefix)
	if _, err := y.run(ctx, args); err != nil {
		return "", fmt.Errorf("yt-dlp audio download failed: %w", err)
	}

	audioPath := destPrefix + ".mp3"
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("yt-dlp reported success but %s is missing", audioPath)
	}
	return audioPath, nil
}

// DownloadWindow fetches a short media window starting at startSec,
// bounded to maxHeight, merged to mp4.
func (y *YtDlp) DownloadWindow(ctx context.Context, videoID string, startSec, durSec float64, maxHeight int, destPrefix string) (string, error) {
	args := buildWindowArgs(WatchURL(videoID, 0), startSec, durSec, maxHeight, destPrefix)
	if _, err := y.run(ctx, args); err != nil {
		return "", fmt.Errorf("yt-dlp window download failed: %w", err)
	}

	mediaPath := destPrefix + ".mp4"
	if _, err := os.Stat(mediaPath); err != nil {
		return "", fmt.Errorf("yt-dlp reported success but %s is missing", mediaPath)
	}
	return mediaPath, nil
}

// run executes yt-dlp and returns stdout. Stderr is folded into the error.
func (y *YtDlp) run(ctx context.Context, args []string) ([]byte, error) {
	slog.Debug("running yt-dlp", "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, y.path, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, firstLine(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// buildResolveArgs builds the argv for a flat URL scan.
func buildResolveArgs(url string) []string {
	return []string{
		"--dump-single-json",
		"--flat-playlist",
		"--ignore-errors",
		"--no-warnings",
		url,
	}
}

// buildSubtitleArgs builds the argv for platform subtitle retrieval.
// destPrefix has no extension; yt-dlp appends ".<lang>.vtt".
func buildSubtitleArgs(videoURL, lang, destPrefix string) []string {
	return []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", lang,
		"--sub-format", "vtt",
		"--ignore-errors",
		"--no-warnings",
		"--output", destPrefix,
		videoURL,
	}
}

// buildAudioArgs builds the argv for best-audio extraction to mp3.
func buildAudioArgs(videoURL, destPrefix string) []string {
	return []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--no-warnings",
		"--output", destPrefix + ".%(ext)s",
		videoURL,
	}
}

// buildWindowArgs builds the argv for a bounded-resolution media window.
func buildWindowArgs(videoURL string, startSec, durSec float64, maxHeight int, destPrefix string) []string {
	format := fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", maxHeight, maxHeight)
	section := fmt.Sprintf("*%.2f-%.2f", startSec, startSec+durSec)
	return []string{
		"--format", format,
		"--download-sections", section,
		"--merge-output-format", "mp4",
		"--no-warnings",
		"--output", destPrefix + ".%(ext)s",
		videoURL,
	}
}

// WatchURL derives the external playback link for a video at an offset.
func WatchURL(videoID string, seekSeconds int) string {
	if seekSeconds <= 0 {
		return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
	}
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", videoID, seekSeconds)
}

// firstLine trims output to its first non-empty line for error messages.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return strings.TrimSpace(s)
}
