// Package transcript parses loosely structured podcast transcripts into
// speaker-attributed, time-stamped segments.
package transcript

import (
	"regexp"
	"strings"
)

// UnknownSpeaker is used when a segment has no attributable speaker.
const UnknownSpeaker = "Unknown"

// Segment is one contiguous utterance with the timestamp it starts at.
type Segment struct {
	Speaker   string `json:"speaker"`
	Timestamp string `json:"timestamp"`
	Seconds   int    `json:"timestamp_seconds"`
	Text      string `json:"text"`
}

var (
	// Brian Chesky (00:01:23):
	speakerHeader = regexp.MustCompile(`^(.+?)\s*\((\d{1,2}:\d{2}:\d{2})\):?\s*$`)
	// (00:01:23):
	timestampHeader = regexp.MustCompile(`^\((\d{1,2}:\d{2}:\d{2})\):?\s*$`)
)

// Parse splits a transcript body (front matter already removed) into
// segments in speaking order. Header lines start a new segment; every other
// non-blank, non-heading line is spoken content of the current segment.
// Text before the first header belongs to UnknownSpeaker at 00:00:00, so a
// body without any header becomes a single such segment.
func Parse(body string) []Segment {
	var (
		segments []Segment
		speaker  = UnknownSpeaker
		stamp    = "00:00:00"
		pending  []string
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(pending, " "))
		pending = pending[:0]
		if text == "" {
			return
		}
		segments = append(segments, Segment{
			Speaker:   speaker,
			Timestamp: stamp,
			Seconds:   ParseTimestamp(stamp),
			Text:      text,
		})
	}

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := speakerHeader.FindStringSubmatch(line); m != nil {
			flush()
			speaker = strings.TrimSpace(m[1])
			stamp = m[2]
			continue
		}
		if m := timestampHeader.FindStringSubmatch(line); m != nil {
			flush()
			stamp = m[1]
			continue
		}

		pending = append(pending, line)
	}
	flush()

	return segments
}
