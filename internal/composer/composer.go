package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/podquote/internal/proxy"
	"github.com/kalambet/podquote/internal/retrieval"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "anthropic/claude-sonnet-4"

// ErrInvalidAnswer is returned when the model reply does not match the
// answer schema or cites quotes it was not given.
var ErrInvalidAnswer = errors.New("invalid answer")

// ChatClient is the subset of proxy.Client the composer needs.
type ChatClient interface {
	Chat(ctx context.Context, req proxy.ChatRequest) (*proxy.ChatResponse, error)
}

// Citation links part of an answer to a supplied quote.
type Citation struct {
	QuoteIndex int    `json:"quote_index"`
	Speaker    string `json:"speaker"`
	Guest      string `json:"guest"`
	Timestamp  string `json:"timestamp"`
	Quote      string `json:"quote"`
	URL        string `json:"episode_url,omitempty"`
}

// Answer is a composed, cited reply.
type Answer struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Model     string     `json:"model,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Composer is safe for concurrent use.
type Composer struct {
	Model            string
	MaxContextTokens int

	client ChatClient
}

// New creates a Composer. An empty model means DefaultModel and a
// maxContextTokens of zero or less means 4000.
func New(client ChatClient, model string, maxContextTokens int) *Composer {
	if model == "" {
		model = DefaultModel
	}
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{Model: model, MaxContextTokens: maxContextTokens, client: client}
}

// Answer asks the model to answer question from quotes. With no quotes it
// answers locally without calling the model.
func (c *Composer) Answer(ctx context.Context, question string, quotes []retrieval.Quote) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("%w: empty question", ErrInvalidAnswer)
	}

	req, used := c.BuildRequest(question, quotes)
	if len(used) == 0 {
		return Answer{
			ID:        uuid.New().String(),
			Question:  question,
			Text:      "No transcript quotes matched this question, so there is nothing to answer from.",
			Citations: []Citation{},
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	start := time.Now()
	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return Answer{}, fmt.Errorf("requesting answer: %w", err)
	}
	slog.Debug("answer composed", "model", c.Model, "quotes", len(used), "tokens", resp.Usage.TotalTokens, "duration", time.Since(start))

	a, err := ParseAnswer(resp.Content(), used)
	if err != nil {
		return Answer{}, err
	}
	a.Question = question
	a.Model = resp.Model
	if a.Model == "" {
		a.Model = c.Model
	}
	return a, nil
}

type rawAnswer struct {
	Answer    string `json:"answer"`
	Citations []struct {
		QuoteIndex *int `json:"quote_index"`
	} `json:"citations"`
}

// ParseAnswer decodes a model reply and resolves its citations against
// quotes. A reply wrapped in a markdown code fence is accepted.
func ParseAnswer(content string, quotes []retrieval.Quote) (Answer, error) {
	var raw rawAnswer
	if err := json.Unmarshal([]byte(stripFence(content)), &raw); err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
	}
	if strings.TrimSpace(raw.Answer) == "" {
		return Answer{}, fmt.Errorf("%w: empty answer", ErrInvalidAnswer)
	}

	seen := make(map[int]bool)
	citations := make([]Citation, 0, len(raw.Citations))
	for _, rc := range raw.Citations {
		if rc.QuoteIndex == nil {
			return Answer{}, fmt.Errorf("%w: citation without quote_index", ErrInvalidAnswer)
		}
		i := *rc.QuoteIndex
		if i < 0 || i >= len(quotes) {
			return Answer{}, fmt.Errorf("%w: quote_index %d out of range [0,%d)", ErrInvalidAnswer, i, len(quotes))
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		q := quotes[i]
		citations = append(citations, Citation{
			QuoteIndex: i,
			Speaker:    q.Speaker,
			Guest:      q.Guest,
			Timestamp:  q.Timestamp,
			Quote:      q.Text,
			URL:        q.URL,
		})
	}

	return Answer{
		ID:        uuid.New().String(),
		Text:      strings.TrimSpace(raw.Answer),
		Citations: citations,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
