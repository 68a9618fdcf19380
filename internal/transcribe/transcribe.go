// Package transcribe generates transcripts from audio when the platform
// has no subtitles to offer. The whisper CLI is invoked once per audio
// file with a language-specific priming prompt to steer decoding.
package transcribe

import (
	"context"
	"time"
)

// Segment is one transcribed span of speech.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcriber converts an audio file into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, lang string) ([]Segment, error)
}

// primingPrompts steers the model toward the expected language. Whisper
// otherwise tends to mislabel short or noisy openings.
var primingPrompts = map[string]string{
	"el": "Αυτό είναι ένα βίντεο στα Ελληνικά.",
}

// PromptFor returns the priming prompt for lang, empty if none is known.
func PromptFor(lang string) string {
	return primingPrompts[lang]
}
