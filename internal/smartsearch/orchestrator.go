// Package smartsearch runs the three-phase search protocol in which the
// calling agent broadens the query and then picks the relevant hits.
//
// The phase is inferred from the request: a query alone asks for
// expansion, expansion terms ask for candidates, and selected indices
// finish the search.
package smartsearch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kalambet/podquote/internal/retrieval"
)

// ToolName is the tool the agent is told to call back.
const ToolName = "search_quotes_smart"

const (
	DefaultMinScore = 0.05

	perTermLimit  = 15
	maxCandidates = 30
	candidateText = 400
)

type Phase string

const (
	PhaseExpand   Phase = "expand"
	PhaseFilter   Phase = "filter"
	PhaseComplete Phase = "complete"
)

// Request carries the arguments of one protocol step. ExpandedTerms and
// SelectedIndices are nil when the caller did not send them.
type Request struct {
	Query string
	Guest string
	// Limit caps the quotes returned by the complete phase. Zero or less
	// means retrieval.DefaultLimit.
	Limit int
	// MinScore applies to every per-term search. Nil means the
	// orchestrator's default; an explicit zero keeps every match.
	MinScore        *float64
	ExpandedTerms   []string
	SelectedIndices []int
}

// Candidate is a shortened hit offered to the agent for selection.
type Candidate struct {
	Index     int     `json:"index"`
	Speaker   string  `json:"speaker"`
	Guest     string  `json:"guest"`
	Title     string  `json:"title"`
	Text      string  `json:"text"`
	Timestamp string  `json:"timestamp"`
	Score     float64 `json:"score"`
}

// NextCall tells the agent exactly how to continue.
type NextCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Response is the phase-tagged result of a step.
type Response struct {
	Phase         Phase             `json:"phase"`
	OriginalQuery string            `json:"originalQuery"`
	Instructions  string            `json:"instructions,omitempty"`
	ContinueWith  *NextCall         `json:"continueWith,omitempty"`
	Candidates    []Candidate       `json:"candidates,omitempty"`
	Text          string            `json:"text,omitempty"`
	Quotes        []retrieval.Quote `json:"quotes,omitempty"`
	ResultCount   int               `json:"resultCount"`
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	engine   *retrieval.Engine
	sessions *SessionCache
	minScore float64
}

// New returns an orchestrator over engine. A nil sessions gets a cache of
// DefaultSessionCapacity. A minScore of zero or less means DefaultMinScore.
func New(engine *retrieval.Engine, sessions *SessionCache, minScore float64) *Orchestrator {
	if sessions == nil {
		sessions = NewSessionCache(DefaultSessionCapacity)
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Orchestrator{engine: engine, sessions: sessions, minScore: minScore}
}

// Sessions exposes the session cache.
func (o *Orchestrator) Sessions() *SessionCache {
	return o.sessions
}

// Run executes the phase selected by req.
func (o *Orchestrator) Run(ctx context.Context, req Request) Response {
	req.Query = strings.TrimSpace(req.Query)
	switch {
	case req.SelectedIndices != nil && req.ExpandedTerms != nil:
		return o.complete(ctx, req)
	case len(req.ExpandedTerms) > 0:
		return o.filter(ctx, req)
	default:
		return o.expand(req)
	}
}

func (o *Orchestrator) expand(req Request) Response {
	args := baseArguments(req)
	args["expanded_terms"] = []string{"<term 1>", "<term 2>", "<term 3>", "<term 4>", "<term 5>"}

	return Response{
		Phase:         PhaseExpand,
		OriginalQuery: req.Query,
		Instructions: fmt.Sprintf(
			"Generate 5-7 alternative search terms for %q. Include synonyms, paraphrases and the "+
				"everyday phrasing a podcast guest would use when talking about this idea. Then call %s "+
				"again with the same query and expanded_terms set to your list.",
			req.Query, ToolName),
		ContinueWith: &NextCall{Tool: ToolName, Arguments: args},
	}
}

func (o *Orchestrator) filter(ctx context.Context, req Request) Response {
	start := time.Now()

	minScore := o.minScore
	if req.MinScore != nil {
		minScore = max(*req.MinScore, 0)
	}
	opts := retrieval.Options{Guest: req.Guest, Limit: perTermLimit, MinScore: minScore}

	terms := append([]string{req.Query}, req.ExpandedTerms...)
	merged := make(map[string]int)
	var pool []retrieval.Result
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		for _, r := range o.engine.Search(ctx, term, opts) {
			key := r.Episode.FolderName + ":" + r.Segment.Timestamp
			if i, ok := merged[key]; ok {
				if r.Score > pool[i].Score {
					pool[i] = r
				}
				continue
			}
			merged[key] = len(pool)
			pool = append(pool, r)
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})
	if len(pool) > maxCandidates {
		pool = pool[:maxCandidates]
	}

	slog.Debug("smart search filter",
		"query", req.Query,
		"terms", len(terms),
		"candidates", len(pool),
		"duration", time.Since(start),
	)

	if len(pool) == 0 {
		return noResults(req.Query)
	}

	o.sessions.Put(SessionKey(req.Query, req.ExpandedTerms), pool)

	candidates := make([]Candidate, len(pool))
	for i, r := range pool {
		candidates[i] = Candidate{
			Index:     i,
			Speaker:   r.Segment.Speaker,
			Guest:     r.Episode.Guest,
			Title:     r.Episode.Title,
			Text:      truncate(r.Segment.Text, candidateText),
			Timestamp: r.Segment.Timestamp,
			Score:     r.Score,
		}
	}

	args := baseArguments(req)
	args["expanded_terms"] = req.ExpandedTerms
	args["selected_indices"] = []string{"<index>", "<index>"}

	return Response{
		Phase:         PhaseFilter,
		OriginalQuery: req.Query,
		Instructions: fmt.Sprintf(
			"Review the %d candidates below and select the 5-7 that best answer %q. Prefer quotes "+
				"that state an idea directly over passing mentions. Then call %s again with the same "+
				"query and expanded_terms, and selected_indices set to the chosen candidate indices.",
			len(candidates), req.Query, ToolName),
		ContinueWith: &NextCall{Tool: ToolName, Arguments: args},
		Candidates:   candidates,
		ResultCount:  len(candidates),
	}
}

func (o *Orchestrator) complete(ctx context.Context, req Request) Response {
	key := SessionKey(req.Query, req.ExpandedTerms)
	pool, ok := o.sessions.Get(key)
	if !ok {
		return Response{
			Phase:         PhaseComplete,
			OriginalQuery: req.Query,
			Text: fmt.Sprintf(
				"The search session for %q has expired. Start over by calling %s with only the query.",
				req.Query, ToolName),
		}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = retrieval.DefaultLimit
	}

	seen := make(map[int]bool)
	var quotes []retrieval.Quote
	for _, i := range req.SelectedIndices {
		if len(quotes) == limit {
			break
		}
		if i < 0 || i >= len(pool) || seen[i] {
			continue
		}
		seen[i] = true
		quotes = append(quotes, o.engine.ToQuote(pool[i]))
	}
	o.sessions.Delete(key)

	slog.Debug("smart search complete", "query", req.Query, "selected", len(req.SelectedIndices), "quotes", len(quotes))

	if len(quotes) == 0 {
		return noResults(req.Query)
	}
	return Response{
		Phase:         PhaseComplete,
		OriginalQuery: req.Query,
		Text:          FormatQuotes(req.Query, quotes),
		Quotes:        quotes,
		ResultCount:   len(quotes),
	}
}

func noResults(query string) Response {
	return Response{
		Phase:         PhaseComplete,
		OriginalQuery: query,
		Text:          fmt.Sprintf("No quotes found for %q. Try different wording or a broader topic.", query),
	}
}

func baseArguments(req Request) map[string]any {
	args := map[string]any{"query": req.Query}
	if req.Guest != "" {
		args["guest"] = req.Guest
	}
	if req.Limit > 0 {
		args["limit"] = req.Limit
	}
	if req.MinScore != nil {
		args["min_score"] = *req.MinScore
	}
	return args
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "..."
}
