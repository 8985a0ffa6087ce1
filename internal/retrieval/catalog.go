package retrieval

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kalambet/podquote/internal/index"
)

// ErrEpisodeNotFound is returned when no episode matches a guest lookup.
var ErrEpisodeNotFound = errors.New("episode not found")

// GuestSort selects the ordering of ListGuests.
type GuestSort string

const (
	SortByName  GuestSort = "name"
	SortByViews GuestSort = "views"
)

// GuestEntry summarises one episode for guest listings.
type GuestEntry struct {
	Guest      string `json:"guest"`
	FolderName string `json:"episode_id"`
	Title      string `json:"title"`
	ViewCount  int64  `json:"view_count"`
}

// ListGuests returns one entry per episode. A non-empty filter keeps
// entries whose guest or title contains it, ignoring case. Entries are
// ordered by guest name, or by view count descending for SortByViews.
func (e *Engine) ListGuests(filter string, by GuestSort) []GuestEntry {
	filter = strings.ToLower(strings.TrimSpace(filter))

	var entries []GuestEntry
	for _, ep := range e.ix.Episodes() {
		if filter != "" &&
			!strings.Contains(strings.ToLower(ep.Guest), filter) &&
			!strings.Contains(strings.ToLower(ep.Title), filter) {
			continue
		}
		entries = append(entries, GuestEntry{
			Guest:      ep.Guest,
			FolderName: ep.FolderName,
			Title:      ep.Title,
			ViewCount:  ep.ViewCount,
		})
	}

	if by == SortByViews {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].ViewCount > entries[j].ViewCount
		})
	} else {
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := strings.ToLower(entries[i].Guest), strings.ToLower(entries[j].Guest)
			if a != b {
				return a < b
			}
			return entries[i].Guest < entries[j].Guest
		})
	}
	return entries
}

// EpisodeDetail is the metadata of one episode, optionally with its full
// transcript.
type EpisodeDetail struct {
	FolderName      string  `json:"episode_id"`
	Guest           string  `json:"guest"`
	Title           string  `json:"title"`
	YouTubeURL      string  `json:"youtube_url,omitempty"`
	VideoID         string  `json:"video_id,omitempty"`
	Description     string  `json:"description,omitempty"`
	Duration        string  `json:"duration,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	ViewCount       int64   `json:"view_count"`
	Channel         string  `json:"channel"`
	SegmentCount    int     `json:"segment_count"`
	Transcript      string  `json:"transcript,omitempty"`
}

// FindEpisode returns the first episode, in index order, whose normalized
// guest or folder name contains the normalized guest query.
func (e *Engine) FindEpisode(guest string, includeTranscript bool) (EpisodeDetail, error) {
	want := index.NormalizeGuest(guest)
	if want == "" {
		return EpisodeDetail{}, fmt.Errorf("%w: empty guest", ErrEpisodeNotFound)
	}

	episodes := e.ix.Episodes()
	for i := range episodes {
		ep := &episodes[i]
		folder := index.NormalizeGuest(strings.ReplaceAll(ep.FolderName, "-", " "))
		if !strings.Contains(index.NormalizeGuest(ep.Guest), want) && !strings.Contains(folder, want) {
			continue
		}
		d := EpisodeDetail{
			FolderName:      ep.FolderName,
			Guest:           ep.Guest,
			Title:           ep.Title,
			YouTubeURL:      ep.YouTubeURL,
			VideoID:         ep.VideoID,
			Description:     ep.Description,
			Duration:        ep.Duration,
			DurationSeconds: ep.DurationSeconds,
			ViewCount:       ep.ViewCount,
			Channel:         ep.Channel,
			SegmentCount:    len(ep.Segments),
		}
		if includeTranscript {
			d.Transcript = ep.Transcript
		}
		return d, nil
	}
	return EpisodeDetail{}, fmt.Errorf("%w: %q", ErrEpisodeNotFound, guest)
}
