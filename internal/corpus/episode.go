// Package corpus discovers transcript files on disk and turns them into
// episodes ready for indexing.
package corpus

import (
	"errors"

	"github.com/kalambet/podquote/internal/transcript"
)

// DefaultChannel is used when a transcript does not name its channel.
const DefaultChannel = "Lenny's Podcast"

// ErrEmptyCorpus is returned when loading yields no usable episode.
var ErrEmptyCorpus = errors.New("no episodes with transcript segments found")

// Episode is one podcast installment. FolderName is its only stable key.
type Episode struct {
	FolderName      string               `json:"folder_name"`
	Guest           string               `json:"guest"`
	Title           string               `json:"title"`
	YouTubeURL      string               `json:"youtube_url"`
	VideoID         string               `json:"video_id"`
	Description     string               `json:"description"`
	DurationSeconds float64              `json:"duration_seconds"`
	Duration        string               `json:"duration"`
	ViewCount       int64                `json:"view_count"`
	Channel         string               `json:"channel"`
	Segments        []transcript.Segment `json:"segments"`
	Transcript      string               `json:"-"`
}

// metadata mirrors the recognized front-matter keys.
type metadata struct {
	Guest           string  `yaml:"guest"`
	Title           string  `yaml:"title"`
	YouTubeURL      string  `yaml:"youtube_url"`
	VideoID         string  `yaml:"video_id"`
	Description     string  `yaml:"description"`
	DurationSeconds float64 `yaml:"duration_seconds"`
	Duration        string  `yaml:"duration"`
	ViewCount       int64   `yaml:"view_count"`
	Channel         string  `yaml:"channel"`
}

func newEpisode(folder string, meta metadata, body, defaultChannel string) Episode {
	ep := Episode{
		FolderName:      folder,
		Guest:           meta.Guest,
		Title:           meta.Title,
		YouTubeURL:      meta.YouTubeURL,
		VideoID:         meta.VideoID,
		Description:     meta.Description,
		DurationSeconds: meta.DurationSeconds,
		Duration:        meta.Duration,
		ViewCount:       meta.ViewCount,
		Channel:         meta.Channel,
		Segments:        transcript.Parse(body),
		Transcript:      body,
	}
	if ep.Guest == "" {
		ep.Guest = "Unknown"
	}
	if ep.Title == "" {
		ep.Title = "Unknown"
	}
	if ep.Channel == "" {
		ep.Channel = defaultChannel
	}
	return ep
}
