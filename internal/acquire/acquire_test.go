package acquire

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hpungsan/gifgrep/internal/media"
	"github.com/hpungsan/gifgrep/internal/store"
	"github.com/hpungsan/gifgrep/internal/subtitle"
	"github.com/hpungsan/gifgrep/internal/transcribe"
)

// fakeDownloader scripts the platform per video id.
type fakeDownloader struct {
	entries      []media.Entry
	resolveErr   error
	subsFor      map[string]bool // ids the platform has subtitles for
	audioErrFor  map[string]bool // ids whose audio download fails
	subsCalls    int
	audioCalls   int
	resolveCalls int
}

func (f *fakeDownloader) Resolve(ctx context.Context, url string) ([]media.Entry, error) {
	f.resolveCalls++
	return f.entries, f.resolveErr
}

func (f *fakeDownloader) DownloadSubtitles(ctx context.Context, videoURL, lang, destPrefix string) error {
	f.subsCalls++
	id := idFromURL(videoURL)
	if !f.subsFor[id] {
		// Clean exit, no file: the platform has nothing.
		return nil
	}
	cues := []subtitle.Cue{{Start: time.Second, End: 3 * time.Second, Text: "platform subtitle text"}}
	return os.WriteFile(destPrefix+"."+lang+".vtt", []byte(subtitle.Serialize(cues)), 0600)
}

func (f *fakeDownloader) DownloadAudio(ctx context.Context, videoURL, destPrefix string) (string, error) {
	f.audioCalls++
	if f.audioErrFor[idFromURL(videoURL)] {
		return "", fmt.Errorf("HTTP 403")
	}
	path := destPrefix + ".mp3"
	if err := os.WriteFile(path, []byte("audio"), 0600); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeDownloader) DownloadWindow(ctx context.Context, videoID string, startSec, durSec float64, maxHeight int, destPrefix string) (string, error) {
	path := destPrefix + ".mp4"
	if err := os.WriteFile(path, []byte("media"), 0600); err != nil {
		return "", err
	}
	return path, nil
}

// fakeTranscriber returns one fixed segment.
type fakeTranscriber struct {
	calls int
	err   error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath, lang string) ([]transcribe.Segment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []transcribe.Segment{
		{Start: 0, End: 2 * time.Second, Text: "generated  segment   text"},
	}, nil
}

func idFromURL(url string) string {
	return url[len("https://v/"):]
}

func entry(id string) media.Entry {
	return media.Entry{ID: id, Title: "Video " + id, URL: "https://v/" + id}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatalf("store.Init failed: %v", err)
	}
	return s
}

func TestAcquireVideoCachedShortCircuits(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Write("abc", "el", []subtitle.Cue{{End: time.Second, Text: "cached"}}); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	dl := &fakeDownloader{}
	tr := &fakeTranscriber{}
	p := New(s, dl, tr, "el")

	result := p.AcquireVideo(context.Background(), entry("abc"))
	if result.State != StateDone || result.Source != SourceCached {
		t.Errorf("result = %+v, want DONE/cached", result)
	}
	if dl.subsCalls != 0 || dl.audioCalls != 0 || tr.calls != 0 {
		t.Error("cached video must not touch the network or transcriber")
	}
}

func TestAcquireVideoPlatformSubtitles(t *testing.T) {
	s := newTestStore(t)
	dl := &fakeDownloader{subsFor: map[string]bool{"abc": true}}
	tr := &fakeTranscriber{}
	p := New(s, dl, tr, "el")

	result := p.AcquireVideo(context.Background(), entry("abc"))
	if result.State != StateDone || result.Source != SourcePlatform {
		t.Fatalf("result = %+v, want DONE/platform", result)
	}
	if tr.calls != 0 {
		t.Error("platform subtitles must skip transcription")
	}

	cues, err := s.ReadCues(result.TranscriptPath)
	if err != nil || len(cues) == 0 {
		t.Fatalf("transcript unreadable: %v", err)
	}
}

func TestAcquireVideoFallsBackToTranscription(t *testing.T) {
	s := newTestStore(t)
	dl := &fakeDownloader{}
	tr := &fakeTranscriber{}
	p := New(s, dl, tr, "el")

	result := p.AcquireVideo(context.Background(), entry("abc"))
	if result.State != StateDone || result.Source != SourceTranscribed {
		t.Fatalf("result = %+v, want DONE/transcribed", result)
	}
	if dl.subsCalls != 1 || dl.audioCalls != 1 || tr.calls != 1 {
		t.Errorf("calls = subs %d, audio %d, transcribe %d; want 1/1/1",
			dl.subsCalls, dl.audioCalls, tr.calls)
	}

	cues, err := s.ReadCues(result.TranscriptPath)
	if err != nil {
		t.Fatalf("ReadCues failed: %v", err)
	}
	if cues[0].Text != "generated segment text" {
		t.Errorf("cue text = %q, want whitespace collapsed", cues[0].Text)
	}

	// Audio intermediate must not linger next to the transcript.
	if _, err := os.Stat(s.DestPrefix("abc") + ".mp3"); !os.IsNotExist(err) {
		t.Error("audio file left behind after transcription")
	}
}

func TestAcquireVideoAudioFailure(t *testing.T) {
	s := newTestStore(t)
	dl := &fakeDownloader{audioErrFor: map[string]bool{"abc": true}}
	p := New(s, dl, &fakeTranscriber{}, "el")

	result := p.AcquireVideo(context.Background(), entry("abc"))
	if result.State != StateFailed {
		t.Fatalf("result = %+v, want FAILED", result)
	}
	if result.Error == "" {
		t.Error("failed result must carry the error")
	}
	if _, ok := s.Exists("abc"); ok {
		t.Error("failed acquisition must not leave a transcript")
	}
}

func TestRunContainsPerVideoFailures(t *testing.T) {
	s := newTestStore(t)
	dl := &fakeDownloader{
		entries:     []media.Entry{entry("good1"), entry("bad"), entry("good2")},
		subsFor:     map[string]bool{"good1": true},
		audioErrFor: map[string]bool{"bad": true},
	}
	tr := &fakeTranscriber{}
	p := New(s, dl, tr, "el")

	report, err := p.Run(context.Background(), "https://v/playlist")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Total != 3 || report.Acquired != 2 || report.Failed != 1 {
		t.Errorf("report = total %d, acquired %d, failed %d; want 3/2/1",
			report.Total, report.Acquired, report.Failed)
	}
	if report.RunID == "" {
		t.Error("report must carry a run id")
	}
	if report.Results[1].State != StateFailed {
		t.Errorf("bad video state = %v, want FAILED", report.Results[1].State)
	}
	// The video after the failure still completed.
	if report.Results[2].State != StateDone {
		t.Errorf("video after failure = %v, want DONE", report.Results[2].State)
	}
}

func TestRunSecondPassAllCached(t *testing.T) {
	s := newTestStore(t)
	dl := &fakeDownloader{
		entries: []media.Entry{entry("a"), entry("b")},
		subsFor: map[string]bool{"a": true, "b": true},
	}
	p := New(s, dl, &fakeTranscriber{}, "el")

	if _, err := p.Run(context.Background(), "https://v/playlist"); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	subsCallsAfterFirst := dl.subsCalls

	report, err := p.Run(context.Background(), "https://v/playlist")
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if report.Cached != 2 || report.Acquired != 0 {
		t.Errorf("second run = cached %d, acquired %d; want 2/0", report.Cached, report.Acquired)
	}
	if dl.subsCalls != subsCallsAfterFirst {
		t.Error("second run must not re-download subtitles")
	}
}

func TestRunEmptyResolve(t *testing.T) {
	s := newTestStore(t)
	dl := &fakeDownloader{}
	p := New(s, dl, &fakeTranscriber{}, "el")

	if _, err := p.Run(context.Background(), "https://v/empty"); err == nil {
		t.Error("Run should fail when the URL resolves to no videos")
	}
}
