package composer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kalambet/podquote/internal/proxy"
	"github.com/kalambet/podquote/internal/retrieval"
)

type fakeChat struct {
	reply string
	err   error
	calls int
	last  proxy.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req proxy.ChatRequest) (*proxy.ChatResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &proxy.ChatResponse{
		ID:      "gen-1",
		Model:   "test/model",
		Choices: []proxy.Choice{{Message: proxy.Message{Role: "assistant", Content: f.reply}}},
	}, nil
}

func testQuotes() []retrieval.Quote {
	return []retrieval.Quote{
		{Text: "Hire for slope, not intercept.", Speaker: "Ada Chen Rekhi", Guest: "Ada Chen Rekhi", EpisodeTitle: "Career decisions", Timestamp: "00:10:00", URL: "https://youtu.be/ada?t=600s"},
		{Text: "Give feedback early and often.", Speaker: "Julie Zhuo", Guest: "Julie Zhuo", EpisodeTitle: "Becoming a great manager", Timestamp: "00:01:00"},
	}
}

func TestAnswer(t *testing.T) {
	fake := &fakeChat{reply: `{"answer":"Hire for growth [0] and give feedback early [1].","citations":[{"quote_index":0},{"quote_index":1},{"quote_index":0}]}`}
	c := New(fake, "", 0)

	a, err := c.Answer(context.Background(), "How should I build a team?", testQuotes())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
	if fake.last.Model != DefaultModel {
		t.Errorf("model = %q, want %q", fake.last.Model, DefaultModel)
	}
	if a.ID == "" {
		t.Error("answer has no ID")
	}
	if a.Question != "How should I build a team?" || a.Model != "test/model" {
		t.Errorf("answer = %+v", a)
	}
	if len(a.Citations) != 2 {
		t.Fatalf("got %d citations, want 2 (duplicates collapsed)", len(a.Citations))
	}
	if a.Citations[0].Guest != "Ada Chen Rekhi" || a.Citations[0].URL == "" {
		t.Errorf("citation 0 = %+v", a.Citations[0])
	}
	if a.Citations[1].Quote != "Give feedback early and often." {
		t.Errorf("citation 1 = %+v", a.Citations[1])
	}
}

func TestAnswer_NoQuotesSkipsModel(t *testing.T) {
	fake := &fakeChat{}
	c := New(fake, "m", 0)

	a, err := c.Answer(context.Background(), "anything?", nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("model called %d times", fake.calls)
	}
	if a.Text == "" || len(a.Citations) != 0 {
		t.Errorf("answer = %+v", a)
	}
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	c := New(&fakeChat{}, "m", 0)
	if _, err := c.Answer(context.Background(), "  ", testQuotes()); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("err = %v, want ErrInvalidAnswer", err)
	}
}

func TestAnswer_ClientError(t *testing.T) {
	c := New(&fakeChat{err: errors.New("boom")}, "m", 0)
	_, err := c.Answer(context.Background(), "q?", testQuotes())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v", err)
	}
}

func TestParseAnswer(t *testing.T) {
	quotes := testQuotes()
	tests := []struct {
		name    string
		content string
		wantErr bool
		cites   int
	}{
		{"plain", `{"answer":"x","citations":[{"quote_index":1}]}`, false, 1},
		{"fenced", "```json\n{\"answer\":\"x\",\"citations\":[]}\n```", false, 0},
		{"out of range", `{"answer":"x","citations":[{"quote_index":2}]}`, true, 0},
		{"negative", `{"answer":"x","citations":[{"quote_index":-1}]}`, true, 0},
		{"missing index", `{"answer":"x","citations":[{}]}`, true, 0},
		{"empty answer", `{"answer":"  ","citations":[]}`, true, 0},
		{"not json", `The answer is 42.`, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAnswer(tt.content, quotes)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAnswer) {
					t.Errorf("err = %v, want ErrInvalidAnswer", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAnswer: %v", err)
			}
			if len(a.Citations) != tt.cites {
				t.Errorf("got %d citations, want %d", len(a.Citations), tt.cites)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	c := New(nil, "m", 0)
	req, used := c.BuildRequest("How do I hire?", testQuotes())

	if len(used) != 2 {
		t.Fatalf("used %d quotes, want 2", len(used))
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "(0) Ada Chen Rekhi") || !strings.Contains(user, "(1) Julie Zhuo") {
		t.Errorf("user message lacks numbered quotes:\n%s", user)
	}
	if !strings.HasSuffix(user, "How do I hire?") {
		t.Errorf("user message does not end with the question:\n%s", user)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
		t.Errorf("response format = %+v", req.ResponseFormat)
	}
}

func TestBuildRequest_RespectsBudget(t *testing.T) {
	big := retrieval.Quote{Text: strings.Repeat("word ", 400), Speaker: "S", EpisodeTitle: "T", Timestamp: "00:00:01"}
	small := testQuotes()[1]

	c := New(nil, "m", 100)
	req, used := c.BuildRequest("q?", []retrieval.Quote{big, small})

	if len(used) != 1 || used[0].Text != small.Text {
		t.Fatalf("used = %+v", used)
	}
	// Kept quotes are renumbered from zero.
	if !strings.Contains(req.Messages[1].Content, "(0) Julie Zhuo") {
		t.Errorf("user message:\n%s", req.Messages[1].Content)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
