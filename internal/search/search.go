package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/hpungsan/gifgrep/internal/embed"
	"github.com/hpungsan/gifgrep/internal/errors"
	"github.com/hpungsan/gifgrep/internal/media"
	"github.com/hpungsan/gifgrep/internal/subtitle"
)

// seekRewindSeconds is subtracted from a hit's start time so playback
// begins slightly before the matched speech.
const seekRewindSeconds = 2

// Hit is one search result, ordered by descending score.
type Hit struct {
	VideoID      string  `json:"videoId"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"startSeconds"`
	EndSeconds   float64 `json:"endSeconds"`
	Timestamp    string  `json:"timestamp"`
	Score        float64 `json:"score"`
	Confidence   string  `json:"confidence"`
	SeekSeconds  int     `json:"seekSeconds"`
	WatchURL     string  `json:"watchUrl"`
}

// Engine answers queries against a built corpus.
type Engine struct {
	corpus   *Corpus
	embedder embed.Embedder
	floor    float64
}

// NewEngine builds a query engine. floor is the minimum score a cue must
// reach to appear in results.
func NewEngine(corpus *Corpus, e embed.Embedder, floor float64) *Engine {
	return &Engine{corpus: corpus, embedder: e, floor: floor}
}

// Search embeds query and returns up to topK hits above the relevance
// floor, best first.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if query == "" {
		return nil, errors.NewInvalidRequest("query must not be empty")
	}
	if e.corpus == nil || len(e.corpus.Cues) == 0 {
		return nil, errors.NewEmptyCorpus()
	}
	if topK <= 0 {
		topK = 10
	}

	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVec := vectors[0]

	hits := make([]Hit, 0, topK)
	for i, cue := range e.corpus.Cues {
		score := CosineSimilarity(queryVec, e.corpus.Vectors[i])
		if score < e.floor {
			continue
		}

		start := cue.Start.Seconds()
		seek := SeekOffset(start)
		hits = append(hits, Hit{
			VideoID:      cue.VideoID,
			Text:         cue.Text,
			StartSeconds: start,
			EndSeconds:   cue.End.Seconds(),
			Timestamp:    subtitle.FormatTimestamp(cue.Start),
			Score:        score,
			Confidence:   fmt.Sprintf("%.0f%%", score*100),
			SeekSeconds:  seek,
			WatchURL:     media.WatchURL(cue.VideoID, seek),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// CosineSimilarity returns the cosine of the angle between a and b,
// clamped to [0, 1]. Negative similarity carries no ranking value for
// this corpus, so it maps to 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Min(math.Max(sim, 0), 1)
}

// SeekOffset converts a cue start time into the playback seek position:
// a couple of seconds of lead-in, never negative.
func SeekOffset(startSeconds float64) int {
	seek := int(math.Floor(startSeconds)) - seekRewindSeconds
	if seek < 0 {
		return 0
	}
	return seek
}
