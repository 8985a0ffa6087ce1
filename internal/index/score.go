package index

import (
	"math"
	"sort"
	"strings"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// fieldStats holds corpus-wide term statistics for one field.
type fieldStats struct {
	docFreq  map[string]int
	totalLen int
	vocab    []string // sorted, for prefix lookups
}

// stats is collected once during Build and never modified afterwards.
type stats struct {
	docs   int
	fields [numFields]fieldStats
}

func newStats() *stats {
	s := &stats{}
	for f := range s.fields {
		s.fields[f].docFreq = make(map[string]int)
	}
	return s
}

func (s *stats) add(d Document) {
	s.docs++
	for f := Field(0); f < numFields; f++ {
		tokens := Tokenize(d.field(f))
		fs := &s.fields[f]
		fs.totalLen += len(tokens)
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			fs.docFreq[tok]++
		}
	}
}

func (s *stats) finish() {
	for f := range s.fields {
		fs := &s.fields[f]
		fs.vocab = make([]string, 0, len(fs.docFreq))
		for term := range fs.docFreq {
			fs.vocab = append(fs.vocab, term)
		}
		sort.Strings(fs.vocab)
	}
}

func (s *stats) avgLen(f Field) float64 {
	if s.docs == 0 {
		return 0
	}
	return float64(s.fields[f].totalLen) / float64(s.docs)
}

// df returns the document frequency of term in field f. For prefix terms
// it sums the frequencies of every vocabulary entry sharing the prefix,
// capped at the document count.
func (s *stats) df(f Field, t queryTerm) int {
	fs := &s.fields[f]
	if !t.prefix {
		return fs.docFreq[t.text]
	}
	n := 0
	i := sort.SearchStrings(fs.vocab, t.text)
	for ; i < len(fs.vocab) && strings.HasPrefix(fs.vocab[i], t.text); i++ {
		n += fs.docFreq[fs.vocab[i]]
	}
	return min(n, s.docs)
}

// idf is the BM25 inverse document frequency in its always-positive form,
// so a term present in most documents still contributes a little.
func (s *stats) idf(df int) float64 {
	n := float64(s.docs)
	d := float64(df)
	return math.Log(1 + (n-d+0.5)/(d+0.5))
}

// score computes the weighted BM25 score of doc for terms and reports
// which terms matched at least one field.
func (s *stats) score(doc Document, terms []queryTerm) (float64, []string) {
	var tokens [numFields][]string
	for f := Field(0); f < numFields; f++ {
		tokens[f] = Tokenize(doc.field(f))
	}

	var (
		total   float64
		matched []string
	)
	for _, t := range terms {
		hit := false
		for f := Field(0); f < numFields; f++ {
			if t.field >= 0 && t.field != f {
				continue
			}
			tf := termFrequency(tokens[f], t)
			if tf == 0 {
				continue
			}
			hit = true

			norm := 1.0
			if avg := s.avgLen(f); avg > 0 {
				norm = 1 - bm25B + bm25B*float64(len(tokens[f]))/avg
			}
			tfPart := float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
			total += fieldWeights[f] * s.idf(s.df(f, t)) * tfPart
		}
		if hit {
			matched = append(matched, t.text)
		}
	}
	return total, matched
}

func termFrequency(tokens []string, t queryTerm) int {
	n := 0
	for _, tok := range tokens {
		if tok == t.text || (t.prefix && strings.HasPrefix(tok, t.text)) {
			n++
		}
	}
	return n
}
