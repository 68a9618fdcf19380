// Package media wraps the external download (yt-dlp) and encoding (ffmpeg)
// tools behind capability interfaces so the pipelines stay testable with
// fakes. Binary discovery prefers an explicit override, then the directory
// of the gifgrep executable, then PATH.
package media

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Entry is one video resolved from a URL. A single-video URL resolves to
// one entry; a playlist URL resolves to its flat entry list.
type Entry struct {
	ID    string
	Title string
	URL   string
}

// Downloader is the remote platform capability: URL resolution plus
// subtitle, audio, and time-windowed media retrieval.
type Downloader interface {
	// Resolve maps a URL to its ordered video entries (flat scan, no
	// recursive download).
	Resolve(ctx context.Context, url string) ([]Entry, error)

	// DownloadSubtitles requests platform-native or auto-generated
	// subtitles for lang, writing "<destPrefix>.<lang>.vtt". The caller
	// checks file existence; a clean exit with no file means the
	// platform has no subtitles for this video.
	DownloadSubtitles(ctx context.Context, videoURL, lang, destPrefix string) error

	// DownloadAudio fetches best-available audio as "<destPrefix>.mp3"
	// and returns the path.
	DownloadAudio(ctx context.Context, videoURL, destPrefix string) (string, error)

	// DownloadWindow fetches a media window of durSec seconds starting
	// at startSec, capped at maxHeight pixels, as "<destPrefix>.mp4",
	// and returns the path.
	DownloadWindow(ctx context.Context, videoID string, startSec, durSec float64, maxHeight int, destPrefix string) (string, error)
}

// Encoder is the media-encoding capability: raw video plus a filter graph
// in, rendered clip out.
type Encoder interface {
	Render(ctx context.Context, inPath, outPath, filter string) error
}

// findBinary locates an external tool. Order: explicit override, the
// directory of the running executable, PATH.
func findBinary(name, override string) (string, bool) {
	if override = strings.TrimSpace(override); override != "" {
		if isRunnableFile(override) {
			return override, true
		}
		return "", false
	}

	candidates := []string{name}
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		candidates = append(candidates, name+".exe")
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		for _, c := range candidates {
			local := filepath.Join(exeDir, c)
			if isRunnableFile(local) {
				return local, true
			}
		}
	}

	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, true
		}
	}

	return "", false
}

// isRunnableFile reports whether path is an existing, executable regular file.
func isRunnableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	// Windows has no executable bit.
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
