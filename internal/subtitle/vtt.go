// Package subtitle implements the WebVTT cue format used by the
// transcript store: a WEBVTT header, then blank-line separated cues of
// paired HH:MM:SS.mmm timestamps followed by caption text.
package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timingLineRe matches VTT timing cues like "00:00:01.234 --> 00:00:03.456"
// with optional position/alignment metadata after the timestamps.
var timingLineRe = regexp.MustCompile(`^(\d{2,}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2,}:\d{2}:\d{2}\.\d{3})`)

// htmlTagRe matches markup commonly found in VTT files (<c>, <i>, timing tags).
var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// whitespaceRe matches one or more whitespace characters, newlines included.
var whitespaceRe = regexp.MustCompile(`\s+`)

// Cue is one timestamped caption unit.
type Cue struct {
	// VideoID is the owning video, derived from the transcript filename.
	// Empty until the cue is attached to a video by the indexer.
	VideoID string

	// Start is the offset from video start at which the cue is spoken.
	Start time.Duration

	// End is the offset at which the cue stops being displayed.
	End time.Duration

	// Text is the caption text, trimmed and newline-free.
	Text string
}

// Parse parses WebVTT content into ordered cues.
// Header and metadata lines are skipped, markup is stripped, and multi-line
// cue text is collapsed to single spaces. A file without a WEBVTT header or
// without a single valid timing line is malformed.
func Parse(raw string) ([]Cue, error) {
	lines := strings.Split(raw, "\n")

	sawHeader := false
	var cues []Cue
	var current *Cue

	flush := func() {
		if current == nil {
			return
		}
		current.Text = CleanText(current.Text)
		if current.Text != "" {
			cues = append(cues, *current)
		}
		current = nil
	}

	for i, line := range lines {
		line = strings.TrimRight(line, "\r")

		if i == 0 || (!sawHeader && current == nil) {
			if strings.HasPrefix(line, "WEBVTT") {
				sawHeader = true
				continue
			}
		}

		if m := timingLineRe.FindStringSubmatch(line); m != nil {
			flush()
			start, err := ParseTimestamp(m[1])
			if err != nil {
				return nil, fmt.Errorf("bad start timestamp on line %d: %w", i+1, err)
			}
			end, err := ParseTimestamp(m[2])
			if err != nil {
				return nil, fmt.Errorf("bad end timestamp on line %d: %w", i+1, err)
			}
			current = &Cue{Start: start, End: end}
			continue
		}

		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}

		// Metadata lines and bare cue identifiers outside a cue body.
		if current == nil {
			continue
		}

		trimmed = htmlTagRe.ReplaceAllString(trimmed, "")
		if trimmed == "" {
			continue
		}
		if current.Text != "" {
			current.Text += " "
		}
		current.Text += trimmed
	}
	flush()

	if !sawHeader {
		return nil, fmt.Errorf("missing WEBVTT header")
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("no cues found")
	}
	return cues, nil
}

// Serialize renders cues as a WebVTT document, the inverse of Parse.
// Used by the transcription fallback to persist generated segments.
func Serialize(cues []Cue) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, c := range cues {
		b.WriteString(FormatTimestamp(c.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(c.End))
		b.WriteByte('\n')
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// ParseTimestamp parses "HH:MM:SS.mmm" into a duration.
func ParseTimestamp(ts string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	if h < 0 || m < 0 || m > 59 || sec < 0 || sec >= 60 {
		return 0, fmt.Errorf("timestamp out of range %q", ts)
	}

	total := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second))
	return total, nil
}

// FormatTimestamp renders a duration as "HH:MM:SS.mmm".
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// CleanText trims a caption and collapses internal whitespace (newlines
// included) to single spaces.
func CleanText(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
