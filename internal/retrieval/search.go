package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kalambet/podquote/internal/index"
)

// Search runs query against the index and returns at most opts.Limit
// results scoring at least opts.MinScore, best first. It never fails: a
// malformed query is retried once with its syntax escaped, and anything
// still failing yields no results.
func (e *Engine) Search(ctx context.Context, query string, opts Options) []Result {
	opts = opts.normalized()

	var (
		guestClause string
		fetch       = opts.Limit
		wantGuest   = index.NormalizeGuest(opts.Guest)
	)
	if wantGuest != "" {
		if _, ok := e.ix.FolderForGuest(opts.Guest); ok {
			guestClause = index.GuestClause(wantGuest)
		}
		// The guest post-filter may drop hits, so rank everything first.
		fetch = 0
	}

	hits, err := e.ix.Query(ctx, index.And(index.Expression(query), guestClause), fetch)
	if errors.Is(err, index.ErrSyntax) {
		slog.Debug("retrying search with escaped query", "query", query, "error", err)
		hits, err = e.ix.Query(ctx, index.And(index.Escape(query), guestClause), fetch)
	}
	if err != nil {
		slog.Warn("search failed", "query", query, "error", err)
		return nil
	}

	results := make([]Result, 0, min(len(hits), opts.Limit))
	for _, h := range hits {
		if len(results) == opts.Limit {
			break
		}
		if h.Score < opts.MinScore {
			// Hits are sorted, nothing further can pass.
			break
		}
		ep, ok := e.ix.Episode(h.Document.FolderName)
		if !ok {
			continue
		}
		if wantGuest != "" && !guestOverlaps(ep.Guest, wantGuest) {
			continue
		}
		results = append(results, Result{
			Segment:      ep.Segments[h.Document.Position],
			Episode:      ep,
			Position:     h.Document.Position,
			Score:        h.Score,
			MatchedTerms: h.MatchedTerms,
		})
	}
	return results
}

// SearchQuotes is Search shaped for display.
func (e *Engine) SearchQuotes(ctx context.Context, query string, opts Options) []Quote {
	results := e.Search(ctx, query, opts)
	quotes := make([]Quote, len(results))
	for i, r := range results {
		quotes[i] = e.ToQuote(r)
	}
	return quotes
}

// guestOverlaps reports whether either normalized name contains the other.
func guestOverlaps(episodeGuest, normalizedWant string) bool {
	have := index.NormalizeGuest(episodeGuest)
	return strings.Contains(have, normalizedWant) || strings.Contains(normalizedWant, have)
}
