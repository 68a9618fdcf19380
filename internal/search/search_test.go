package search

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hpungsan/gifgrep/internal/errors"
	"github.com/hpungsan/gifgrep/internal/store"
	"github.com/hpungsan/gifgrep/internal/subtitle"
)

// fakeEmbedder assigns each known text a fixed unit vector so ranking
// is deterministic.
type fakeEmbedder struct {
	vectors map[string][]float64
	calls   int
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no scripted vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embedding" }

func writeTranscript(t *testing.T, s *store.Store, videoID string, cues []subtitle.Cue) {
	t.Helper()
	if _, err := s.Write(videoID, "el", cues); err != nil {
		t.Fatalf("Write %s failed: %v", videoID, err)
	}
}

func TestBuildCorpusFiltersShortCues(t *testing.T) {
	s, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatalf("store.Init failed: %v", err)
	}
	writeTranscript(t, s, "vid1", []subtitle.Cue{
		{Start: 0, End: time.Second, Text: "ok"},
		{Start: time.Second, End: 2 * time.Second, Text: "καλημέρα κόσμε"},
	})

	e := &fakeEmbedder{vectors: map[string][]float64{
		"καλημέρα κόσμε": {1, 0},
	}}
	corpus, err := BuildCorpus(context.Background(), s, e)
	if err != nil {
		t.Fatalf("BuildCorpus failed: %v", err)
	}
	if len(corpus.Cues) != 1 {
		t.Fatalf("len(cues) = %d, want 1 (short cue filtered)", len(corpus.Cues))
	}
	if corpus.Cues[0].Text != "καλημέρα κόσμε" {
		t.Errorf("kept cue = %q", corpus.Cues[0].Text)
	}
	if len(corpus.Vectors) != 1 {
		t.Errorf("vectors not aligned with cues: %d", len(corpus.Vectors))
	}
	if e.calls != 1 {
		t.Errorf("embed calls = %d, want a single batched call", e.calls)
	}
}

func TestBuildCorpusSkipsUnparseableFile(t *testing.T) {
	s, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatalf("store.Init failed: %v", err)
	}
	writeTranscript(t, s, "good", []subtitle.Cue{
		{Start: 0, End: time.Second, Text: "usable cue text"},
	})
	if err := os.WriteFile(filepath.Join(s.Dir(), "bad.el.vtt"), []byte("not a vtt file"), 0600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	e := &fakeEmbedder{vectors: map[string][]float64{
		"usable cue text": {1, 0},
	}}
	corpus, err := BuildCorpus(context.Background(), s, e)
	if err != nil {
		t.Fatalf("BuildCorpus failed: %v", err)
	}
	if corpus.Skipped != 1 || corpus.Files != 1 {
		t.Errorf("corpus = files %d, skipped %d; want 1/1", corpus.Files, corpus.Skipped)
	}
}

func TestBuildCorpusEmptyStore(t *testing.T) {
	s, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatalf("store.Init failed: %v", err)
	}
	_, err = BuildCorpus(context.Background(), s, &fakeEmbedder{})
	if !errors.Is(err, errors.ErrEmptyCorpus) {
		t.Errorf("err = %v, want ErrEmptyCorpus", err)
	}
}

func TestBuildCorpusEmbedFailure(t *testing.T) {
	s, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatalf("store.Init failed: %v", err)
	}
	writeTranscript(t, s, "vid1", []subtitle.Cue{
		{Start: 0, End: time.Second, Text: "some cue text"},
	})

	e := &fakeEmbedder{err: fmt.Errorf("API down")}
	if _, err := BuildCorpus(context.Background(), s, e); err == nil {
		t.Error("embed failure must fail the build, not return a partial corpus")
	}
}

func TestSearchRanksAndFloors(t *testing.T) {
	corpus := &Corpus{
		Cues: []subtitle.Cue{
			{VideoID: "vid1", Start: 65 * time.Second, End: 68 * time.Second, Text: "close match"},
			{VideoID: "vid2", Start: 10 * time.Second, End: 12 * time.Second, Text: "exact match"},
			{VideoID: "vid3", Start: 20 * time.Second, End: 22 * time.Second, Text: "unrelated"},
		},
		Vectors: [][]float64{
			{0.8, 0.6},
			{1, 0},
			{0, 1},
		},
	}
	e := &fakeEmbedder{vectors: map[string][]float64{"the query": {1, 0}}}
	engine := NewEngine(corpus, e, 0.25)

	hits, err := engine.Search(context.Background(), "the query", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// unrelated scores 0, below the floor.
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
	if hits[0].VideoID != "vid2" || hits[1].VideoID != "vid1" {
		t.Errorf("ranking wrong: %q then %q", hits[0].VideoID, hits[1].VideoID)
	}
	if math.Abs(hits[0].Score-1) > 1e-9 {
		t.Errorf("hits[0].Score = %v, want 1", hits[0].Score)
	}
	if hits[0].Confidence != "100%" {
		t.Errorf("Confidence = %q, want 100%%", hits[0].Confidence)
	}

	if hits[1].Timestamp != "00:01:05.000" {
		t.Errorf("Timestamp = %q, want 00:01:05.000", hits[1].Timestamp)
	}
	// 65s start rewinds to 63s, reflected in the watch link.
	if hits[1].SeekSeconds != 63 {
		t.Errorf("SeekSeconds = %d, want 63", hits[1].SeekSeconds)
	}
	if hits[1].WatchURL != "https://www.youtube.com/watch?v=vid1&t=63s" {
		t.Errorf("WatchURL = %q", hits[1].WatchURL)
	}
}

func TestSearchTopKTruncates(t *testing.T) {
	corpus := &Corpus{
		Cues: []subtitle.Cue{
			{VideoID: "a", Text: "one"},
			{VideoID: "b", Text: "two"},
			{VideoID: "c", Text: "three"},
		},
		Vectors: [][]float64{{1, 0}, {0.9, 0.1}, {0.8, 0.2}},
	}
	e := &fakeEmbedder{vectors: map[string][]float64{"q": {1, 0}}}
	engine := NewEngine(corpus, e, 0.25)

	hits, err := engine.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("len(hits) = %d, want 2", len(hits))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	engine := NewEngine(&Corpus{Cues: []subtitle.Cue{{Text: "x"}}, Vectors: [][]float64{{1}}}, &fakeEmbedder{}, 0.25)
	_, err := engine.Search(context.Background(), "", 10)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	engine := NewEngine(&Corpus{}, &fakeEmbedder{}, 0.25)
	_, err := engine.Search(context.Background(), "anything", 10)
	if !errors.Is(err, errors.ErrEmptyCorpus) {
		t.Errorf("err = %v, want ErrEmptyCorpus", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite clamps to zero", []float64{1, 0}, []float64{-1, 0}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0},
		{"length mismatch", []float64{1}, []float64{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeekOffset(t *testing.T) {
	tests := []struct {
		start float64
		want  int
	}{
		{65, 63},
		{65.9, 63},
		{2, 0},
		{1, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := SeekOffset(tt.start); got != tt.want {
			t.Errorf("SeekOffset(%v) = %d, want %d", tt.start, got, tt.want)
		}
	}
}
