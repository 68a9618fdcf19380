// Package acquire obtains transcripts for videos. Each video walks a
// fixed pipeline: skip if a transcript file already exists, try the
// platform's own subtitles, and fall back to local transcription of the
// audio track. Playlist runs are sequential with per-video failure
// containment: one broken video never aborts the rest.
package acquire

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/gifgrep/internal/errors"
	"github.com/hpungsan/gifgrep/internal/media"
	"github.com/hpungsan/gifgrep/internal/store"
	"github.com/hpungsan/gifgrep/internal/subtitle"
	"github.com/hpungsan/gifgrep/internal/transcribe"
)

// State is a phase of the per-video acquisition pipeline.
type State string

const (
	StateCheckExisting State = "CHECK_EXISTING"
	StateFetchSubs     State = "FETCH_PLATFORM_SUBS"
	StateTranscribe    State = "GENERATE_VIA_TRANSCRIPTION"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

// Source records which path produced the transcript.
type Source string

const (
	SourceCached      Source = "cached"
	SourcePlatform    Source = "platform"
	SourceTranscribed Source = "transcribed"
	SourceNone        Source = "none"
)

// VideoResult is the outcome of acquisition for one video.
type VideoResult struct {
	VideoID        string `json:"videoId"`
	Title          string `json:"title,omitempty"`
	State          State  `json:"state"`
	Source         Source `json:"source"`
	TranscriptPath string `json:"transcriptPath,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Report summarizes one acquisition run over a URL.
type Report struct {
	RunID     string        `json:"runId"`
	URL       string        `json:"url"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Total     int           `json:"total"`
	Acquired  int           `json:"acquired"`
	Cached    int           `json:"cached"`
	Failed    int           `json:"failed"`
	Results   []VideoResult `json:"results"`
}

// Pipeline wires the transcript store to the download and transcription
// capabilities.
type Pipeline struct {
	store      *store.Store
	downloader media.Downloader
	transcribe transcribe.Transcriber
	lang       string
}

// New builds an acquisition pipeline for lang.
func New(s *store.Store, d media.Downloader, t transcribe.Transcriber, lang string) *Pipeline {
	return &Pipeline{store: s, downloader: d, transcribe: t, lang: lang}
}

// Run resolves url into its videos and acquires a transcript for each,
// sequentially. Per-video failures are recorded in the report, not
// propagated; Run itself fails only when the URL resolves to nothing.
func (p *Pipeline) Run(ctx context.Context, url string) (*Report, error) {
	started := time.Now()
	entropy := ulid.Monotonic(rand.Reader, 0)
	report := &Report{
		RunID:     ulid.MustNew(ulid.Timestamp(started), entropy).String(),
		URL:       url,
		StartedAt: started,
	}

	entries, err := p.downloader.Resolve(ctx, url)
	if err != nil {
		return nil, errors.NewAcquisitionFailed("", err)
	}
	if len(entries) == 0 {
		return nil, errors.NewAcquisitionFailed("", fmt.Errorf("no videos found at %s", url))
	}

	report.Total = len(entries)
	slog.Info("acquisition run starting", "runId", report.RunID, "videos", len(entries))

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		slog.Info("acquiring video",
			"video", entry.ID,
			"progress", fmt.Sprintf("%d/%d", i+1, len(entries)))

		result := p.AcquireVideo(ctx, entry)
		report.Results = append(report.Results, result)

		switch {
		case result.State == StateFailed:
			report.Failed++
			slog.Warn("video failed", "video", entry.ID, "error", result.Error)
		case result.Source == SourceCached:
			report.Cached++
		default:
			report.Acquired++
		}
	}

	report.Duration = time.Since(started)
	slog.Info("acquisition run finished",
		"runId", report.RunID,
		"acquired", report.Acquired,
		"cached", report.Cached,
		"failed", report.Failed,
		"duration", report.Duration)
	return report, nil
}

// AcquireVideo walks the acquisition states for a single video.
func (p *Pipeline) AcquireVideo(ctx context.Context, entry media.Entry) VideoResult {
	result := VideoResult{VideoID: entry.ID, Title: entry.Title, State: StateCheckExisting, Source: SourceNone}

	// A transcript file on disk is the cache: nothing else tracks
	// acquisition, so presence means done.
	if path, ok := p.store.Exists(entry.ID); ok {
		slog.Info("skipping: transcript exists", "video", entry.ID, "path", path)
		result.State = StateDone
		result.Source = SourceCached
		result.TranscriptPath = path
		return result
	}

	result.State = StateFetchSubs
	if err := p.downloader.DownloadSubtitles(ctx, entry.URL, p.lang, p.store.DestPrefix(entry.ID)); err != nil {
		slog.Debug("platform subtitle fetch errored, falling back", "video", entry.ID, "error", err)
	}
	// yt-dlp exits cleanly when no subtitles exist; the file is the
	// only reliable signal either way.
	if path, ok := p.store.Exists(entry.ID); ok {
		result.State = StateDone
		result.Source = SourcePlatform
		result.TranscriptPath = path
		return result
	}

	result.State = StateTranscribe
	path, err := p.transcribeVideo(ctx, entry)
	if err != nil {
		result.State = StateFailed
		result.Error = err.Error()
		return result
	}

	result.State = StateDone
	result.Source = SourceTranscribed
	result.TranscriptPath = path
	return result
}

// transcribeVideo downloads the audio track, transcribes it, and writes
// the cues as a transcript. The audio file is removed on every path.
func (p *Pipeline) transcribeVideo(ctx context.Context, entry media.Entry) (string, error) {
	audioPath, err := p.downloader.DownloadAudio(ctx, entry.URL, p.store.DestPrefix(entry.ID))
	if err != nil {
		return "", fmt.Errorf("audio download failed: %w", err)
	}
	defer os.Remove(audioPath)

	segments, err := p.transcribe.Transcribe(ctx, audioPath, p.lang)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	cues := make([]subtitle.Cue, 0, len(segments))
	for _, seg := range segments {
		text := subtitle.CleanText(seg.Text)
		if text == "" {
			continue
		}
		cues = append(cues, subtitle.Cue{Start: seg.Start, End: seg.End, Text: text})
	}
	if len(cues) == 0 {
		return "", fmt.Errorf("transcription produced no usable cues")
	}

	return p.store.Write(entry.ID, p.lang, cues)
}
