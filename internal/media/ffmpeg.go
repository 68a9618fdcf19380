package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/hpungsan/gifgrep/internal/errors"
)

// FFmpeg is the ffmpeg backed Encoder.
type FFmpeg struct {
	path string
}

// NewFFmpeg locates the ffmpeg binary and returns an Encoder over it.
func NewFFmpeg(pathOverride string) (*FFmpeg, error) {
	path, ok := findBinary("ffmpeg", pathOverride)
	if !ok {
		return nil, errors.NewToolMissing("ffmpeg")
	}
	return &FFmpeg{path: path}, nil
}

// Render runs inPath through the filter graph and writes outPath.
// A failed render leaves no output file behind.
func (f *FFmpeg) Render(ctx context.Context, inPath, outPath, filter string) error {
	args := buildRenderArgs(inPath, outPath, filter)
	slog.Debug("running ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, f.path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		// ffmpeg may have created a partial output before dying.
		os.Remove(outPath)
		if msg := firstLine(string(out)); msg != "" {
			return fmt.Errorf("ffmpeg render failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg render failed: %w", err)
	}
	return nil
}

func buildRenderArgs(inPath, outPath, filter string) []string {
	return []string{
		"-y",
		"-v", "error",
		"-i", inPath,
		"-vf", filter,
		outPath,
	}
}
