// Package retrieval answers lexical queries against the transcript index
// and shapes hits into quotes with surrounding context.
package retrieval

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kalambet/podquote/internal/corpus"
	"github.com/kalambet/podquote/internal/index"
	"github.com/kalambet/podquote/internal/transcript"
)

const (
	DefaultLimit    = 10
	DefaultMinScore = 0.1
)

// Options controls a single search.
type Options struct {
	// Guest restricts results to episodes whose guest overlaps this name.
	Guest string
	// Limit caps the number of results. Zero or less means DefaultLimit.
	Limit int
	// MinScore drops results scoring below it.
	MinScore float64
}

// DefaultOptions returns {Limit: 10, MinScore: 0.1} with no guest filter.
func DefaultOptions() Options {
	return Options{Limit: DefaultLimit, MinScore: DefaultMinScore}
}

func (o Options) normalized() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.MinScore < 0 {
		o.MinScore = 0
	}
	return o
}

// Result is a matched segment together with its episode.
type Result struct {
	Segment      transcript.Segment
	Episode      *corpus.Episode
	Position     int
	Score        float64
	MatchedTerms []string
}

// Engine is safe for concurrent use.
type Engine struct {
	ix *index.Index

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewEngine wraps a built index. A nil rnd seeds from the clock.
func NewEngine(ix *index.Index, rnd *rand.Rand) *Engine {
	if rnd == nil {
		now := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(now, now>>17|1))
	}
	return &Engine{ix: ix, rnd: rnd}
}

// Index exposes the underlying index for read-only use.
func (e *Engine) Index() *index.Index {
	return e.ix
}

func (e *Engine) intN(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.IntN(n)
}

func (e *Engine) perm(n int) []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Perm(n)
}
