// Package search builds an in-memory vector index over the transcript
// store and answers semantic queries against it. The corpus is rebuilt
// from the .vtt files on each process start; embeddings for the whole
// corpus are fetched in one batched call.
package search

import (
	"context"
	"log/slog"

	"github.com/hpungsan/gifgrep/internal/embed"
	"github.com/hpungsan/gifgrep/internal/errors"
	"github.com/hpungsan/gifgrep/internal/store"
	"github.com/hpungsan/gifgrep/internal/subtitle"
)

// minCueRunes filters out cues too short to carry meaning ("ναι", "ok").
const minCueRunes = 3

// Corpus pairs every indexed cue with its embedding vector. Vectors[i]
// always corresponds to Cues[i].
type Corpus struct {
	Cues    []subtitle.Cue
	Vectors [][]float64
	Model   string
	Files   int
	Skipped int
}

// BuildCorpus scans the transcript store in sorted order and embeds
// every usable cue. Files that fail to parse are skipped with a warning
// so one corrupt transcript cannot poison the index. An embedding
// failure fails the whole build: a partial index would silently return
// wrong results.
func BuildCorpus(ctx context.Context, s *store.Store, e embed.Embedder) (*Corpus, error) {
	paths, err := s.List()
	if err != nil {
		return nil, err
	}

	corpus := &Corpus{Model: e.Model()}
	for _, path := range paths {
		cues, err := s.ReadCues(path)
		if err != nil {
			corpus.Skipped++
			slog.Warn("skipping unparseable transcript", "path", path, "error", err)
			continue
		}
		corpus.Files++
		for _, cue := range cues {
			if len([]rune(cue.Text)) < minCueRunes {
				continue
			}
			corpus.Cues = append(corpus.Cues, cue)
		}
	}

	if len(corpus.Cues) == 0 {
		return nil, errors.NewEmptyCorpus()
	}

	texts := make([]string, len(corpus.Cues))
	for i, cue := range corpus.Cues {
		texts[i] = cue.Text
	}

	vectors, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	corpus.Vectors = vectors

	slog.Info("corpus built",
		"files", corpus.Files,
		"cues", len(corpus.Cues),
		"skipped", corpus.Skipped,
		"model", corpus.Model)
	return corpus, nil
}
