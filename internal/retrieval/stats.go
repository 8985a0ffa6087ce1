package retrieval

import (
	"sort"
	"strings"
)

// Stats summarises the loaded corpus.
type Stats struct {
	Episodes             int      `json:"episodes"`
	Segments             int      `json:"segments"`
	Guests               int      `json:"guests"`
	Channels             []string `json:"channels"`
	TotalDurationSeconds float64  `json:"total_duration_seconds"`
	TotalViews           int64    `json:"total_views"`
}

func (e *Engine) Stats() Stats {
	var (
		s        Stats
		guests   = make(map[string]bool)
		channels = make(map[string]bool)
	)
	for _, ep := range e.ix.Episodes() {
		s.Episodes++
		s.Segments += len(ep.Segments)
		s.TotalDurationSeconds += ep.DurationSeconds
		s.TotalViews += ep.ViewCount
		guests[strings.ToLower(ep.Guest)] = true
		if ep.Channel != "" {
			channels[ep.Channel] = true
		}
	}
	s.Guests = len(guests)
	s.Channels = make([]string, 0, len(channels))
	for c := range channels {
		s.Channels = append(s.Channels, c)
	}
	sort.Strings(s.Channels)
	return s
}
