package retrieval

import (
	"context"
	"unicode/utf8"
)

const (
	minRandomChars = 100

	topicLimit    = 50
	topicMinScore = 0.05
)

// RandomSegment picks a segment at random. Without a topic it chooses a
// random episode and then one of its segments of at least 100 characters,
// moving on to another episode when one has none. With a topic it picks
// among the hits of a broadened search. ok is false when nothing qualifies.
func (e *Engine) RandomSegment(ctx context.Context, topic string) (r Result, ok bool) {
	if topic != "" {
		hits := e.Search(ctx, topic, Options{Limit: topicLimit, MinScore: topicMinScore})
		if len(hits) == 0 {
			return Result{}, false
		}
		return hits[e.intN(len(hits))], true
	}

	episodes := e.ix.Episodes()
	for _, i := range e.perm(len(episodes)) {
		ep := &episodes[i]
		var candidates []int
		for pos, seg := range ep.Segments {
			if utf8.RuneCountInString(seg.Text) >= minRandomChars {
				candidates = append(candidates, pos)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		pos := candidates[e.intN(len(candidates))]
		return Result{Segment: ep.Segments[pos], Episode: ep, Position: pos}, true
	}
	return Result{}, false
}
