package api

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/podquote/internal/composer"
	"github.com/kalambet/podquote/internal/corpus"
	"github.com/kalambet/podquote/internal/index"
	"github.com/kalambet/podquote/internal/proxy"
	"github.com/kalambet/podquote/internal/retrieval"
	"github.com/kalambet/podquote/internal/smartsearch"
	"github.com/kalambet/podquote/internal/transcript"
)

type fakeChat struct {
	reply string
	err   error
}

func (f *fakeChat) Chat(_ context.Context, _ proxy.ChatRequest) (*proxy.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &proxy.ChatResponse{Choices: []proxy.Choice{{Message: proxy.Message{Content: f.reply}}}}, nil
}

func seg(speaker, ts, text string) transcript.Segment {
	return transcript.Segment{Speaker: speaker, Timestamp: ts, Seconds: transcript.ParseTimestamp(ts), Text: text}
}

func testEpisodes() []corpus.Episode {
	return []corpus.Episode{
		{
			FolderName: "brian-chesky",
			Guest:      "Brian Chesky",
			Title:      "Brian Chesky's new playbook",
			VideoID:    "abc123",
			Channel:    "Lenny's Podcast",
			ViewCount:  100,
			Transcript: "Brian (00:00:05):\nI love design thinking.",
			Segments: []transcript.Segment{
				seg("Brian", "00:00:05", "I love design thinking."),
				seg("Lenny", "00:00:12", "Tell me more."),
			},
		},
		{
			FolderName: "shreyas-doshi",
			Guest:      "Shreyas Doshi",
			Title:      "The art of product management",
			Channel:    "Lenny's Podcast",
			ViewCount:  300,
			Segments: []transcript.Segment{
				seg("Shreyas Doshi", "00:03:00", "Most execution problems are strategy problems in disguise, and most design problems are too. Good product managers learn to see that early."),
				seg("Shreyas Doshi", "00:04:00", "Pre-mortems help teams surface the risks nobody wants to say out loud."),
			},
		},
	}
}

func newTestDeps(t *testing.T, chat composer.ChatClient) Deps {
	t.Helper()
	ix, err := index.Build(context.Background(), testEpisodes())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	engine := retrieval.NewEngine(ix, rand.New(rand.NewPCG(7, 7)))
	deps := Deps{
		Engine:   engine,
		Smart:    smartsearch.New(engine, smartsearch.NewSessionCache(10), 0),
		Defaults: retrieval.DefaultOptions(),
		Version:  "test",
	}
	if chat != nil {
		deps.Composer = composer.New(chat, "test/model", 0)
	}
	return deps
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}
