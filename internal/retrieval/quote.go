package retrieval

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kalambet/podquote/internal/corpus"
)

// contextChars is how much neighbouring text a quote carries on each side.
const contextChars = 200

// Quote is the display form of a Result.
type Quote struct {
	Text          string  `json:"quote"`
	Speaker       string  `json:"speaker"`
	Guest         string  `json:"guest"`
	EpisodeTitle  string  `json:"episode_title"`
	EpisodeID     string  `json:"episode_id"`
	Timestamp     string  `json:"timestamp"`
	URL           string  `json:"episode_url,omitempty"`
	ContextBefore string  `json:"context_before,omitempty"`
	ContextAfter  string  `json:"context_after,omitempty"`
	Score         float64 `json:"score"`
}

// ToQuote projects r with a deep link and the text of its neighbours.
func (e *Engine) ToQuote(r Result) Quote {
	q := Quote{
		Text:         r.Segment.Text,
		Speaker:      r.Segment.Speaker,
		Score:        r.Score,
		Timestamp:    r.Segment.Timestamp,
		Guest:        "Unknown",
		EpisodeTitle: "Unknown",
	}
	if r.Episode == nil {
		return q
	}
	q.Guest = r.Episode.Guest
	q.EpisodeTitle = r.Episode.Title
	q.EpisodeID = r.Episode.FolderName
	q.URL = DeepLink(r.Episode, r.Segment.Seconds)
	q.ContextBefore, q.ContextAfter = Context(r)
	return q
}

// Context returns up to 200 trailing characters of the previous segment
// and up to 200 leading characters of the next one. A side without a
// neighbour is empty.
func Context(r Result) (before, after string) {
	if r.Episode == nil {
		return "", ""
	}
	segs := r.Episode.Segments

	pos := r.Position
	if pos < 0 || pos >= len(segs) || segs[pos] != r.Segment {
		pos = -1
		for i, s := range segs {
			if s.Timestamp == r.Segment.Timestamp && s.Text == r.Segment.Text {
				pos = i
				break
			}
		}
	}
	if pos < 0 {
		return "", ""
	}

	if pos > 0 {
		before = lastRunes(segs[pos-1].Text, contextChars)
	}
	if pos+1 < len(segs) {
		after = firstRunes(segs[pos+1].Text, contextChars)
	}
	return before, after
}

func lastRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[len(rs)-n:])
}

func firstRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}

// DeepLink points at the YouTube video at the given offset. It prefers the
// video ID and falls back to the stored URL; with neither it is empty.
func DeepLink(ep *corpus.Episode, seconds int) string {
	if ep.VideoID != "" {
		return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", url.QueryEscape(ep.VideoID), seconds)
	}
	if ep.YouTubeURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(ep.YouTubeURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%ds", ep.YouTubeURL, sep, seconds)
}
