package transcribe

import (
	"strings"
	"testing"
	"time"
)

func TestParseWhisperJSON(t *testing.T) {
	raw := `{
		"text": "ignored full text",
		"segments": [
			{"start": 0.0, "end": 2.5, "text": " Καλημέρα σε όλους. "},
			{"start": 2.5, "end": 4.0, "text": "   "},
			{"start": 4.0, "end": 7.25, "text": "Σήμερα θα μιλήσουμε."}
		]
	}`

	segments, err := parseWhisperJSON([]byte(raw))
	if err != nil {
		t.Fatalf("parseWhisperJSON failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2 (blank segment dropped)", len(segments))
	}
	if segments[0].Text != "Καλημέρα σε όλους." {
		t.Errorf("segments[0].Text = %q, want trimmed", segments[0].Text)
	}
	if segments[1].Start != 4*time.Second {
		t.Errorf("segments[1].Start = %v, want 4s", segments[1].Start)
	}
	if segments[1].End != 7250*time.Millisecond {
		t.Errorf("segments[1].End = %v, want 7.25s", segments[1].End)
	}
}

func TestParseWhisperJSONEmpty(t *testing.T) {
	if _, err := parseWhisperJSON([]byte(`{"segments": []}`)); err == nil {
		t.Error("empty segment list should be an error")
	}
	if _, err := parseWhisperJSON([]byte(`not json`)); err == nil {
		t.Error("malformed JSON should be an error")
	}
}

func TestBuildWhisperArgsGreekPrompt(t *testing.T) {
	args := buildWhisperArgs("/x/subs/abc.mp3", "el", "small", "/x/subs")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--model small",
		"--language el",
		"--beam_size 5",
		"--output_format json",
		"--output_dir /x/subs",
		"--initial_prompt",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("whisper args missing %q: %v", want, args)
		}
	}
	if !strings.Contains(joined, "Ελληνικά") {
		t.Errorf("Greek priming prompt not passed: %v", args)
	}
}

func TestBuildWhisperArgsUnknownLangOmitsPrompt(t *testing.T) {
	args := buildWhisperArgs("a.mp3", "xx", "small", ".")
	if strings.Contains(strings.Join(args, " "), "--initial_prompt") {
		t.Errorf("unknown language should not get a priming prompt: %v", args)
	}
}

func TestPromptFor(t *testing.T) {
	if PromptFor("el") == "" {
		t.Error("el should have a priming prompt")
	}
	if PromptFor("zz") != "" {
		t.Error("unknown language should have no prompt")
	}
}
