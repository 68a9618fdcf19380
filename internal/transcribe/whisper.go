package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/gifgrep/internal/errors"
)

// Whisper runs the whisper CLI. Model weights are loaded by the CLI on
// each invocation; keeping one Whisper value per process avoids repeated
// binary discovery but not model reloads.
type Whisper struct {
	path  string
	model string
}

// NewWhisper locates the whisper binary. model selects the weight size
// ("small" by default).
func NewWhisper(pathOverride, model string) (*Whisper, error) {
	path, ok := lookPath("whisper", pathOverride)
	if !ok {
		return nil, errors.NewToolMissing("whisper")
	}
	if model == "" {
		model = "small"
	}
	return &Whisper{path: path, model: model}, nil
}

// whisperOutput mirrors the segment layout of whisper's JSON output file.
type whisperOutput struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe runs whisper over audioPath and parses the JSON it writes
// next to the audio file. The JSON artifact is removed afterwards.
func (w *Whisper) Transcribe(ctx context.Context, audioPath, lang string) ([]Segment, error) {
	outDir := filepath.Dir(audioPath)
	args := buildWhisperArgs(audioPath, lang, w.model, outDir)
	slog.Debug("running whisper", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, w.path, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper failed: %w: %s", err, firstLine(string(out)))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outDir, base+".json")
	defer os.Remove(jsonPath)

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("whisper wrote no output for %s: %w", audioPath, err)
	}
	return parseWhisperJSON(data)
}

// parseWhisperJSON converts whisper's segment list into Segments,
// dropping empty-text spans.
func parseWhisperJSON(data []byte) ([]Segment, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unparseable whisper output: %w", err)
	}

	segments := make([]Segment, 0, len(out.Segments))
	for _, s := range out.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start: time.Duration(s.Start * float64(time.Second)),
			End:   time.Duration(s.End * float64(time.Second)),
			Text:  text,
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("whisper produced no speech segments")
	}
	return segments, nil
}

// buildWhisperArgs builds the whisper argv. beam_size 5 trades speed for
// noticeably better Greek accuracy.
func buildWhisperArgs(audioPath, lang, model, outDir string) []string {
	args := []string{
		audioPath,
		"--model", model,
		"--language", lang,
		"--beam_size", "5",
		"--output_format", "json",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if prompt := PromptFor(lang); prompt != "" {
		args = append(args, "--initial_prompt", prompt)
	}
	return args
}

func lookPath(name, override string) (string, bool) {
	if override = strings.TrimSpace(override); override != "" {
		if info, err := os.Stat(override); err == nil && !info.IsDir() {
			return override, true
		}
		return "", false
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, true
	}
	return "", false
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return strings.TrimSpace(s)
}
