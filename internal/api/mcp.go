package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/podquote/internal/composer"
	"github.com/kalambet/podquote/internal/retrieval"
	"github.com/kalambet/podquote/internal/smartsearch"
)

const maxLimit = 50

// Deps holds what the MCP and HTTP surfaces share.
type Deps struct {
	Engine *retrieval.Engine
	Smart  *smartsearch.Orchestrator
	// Composer is optional; without it answer composition is unavailable.
	Composer *composer.Composer
	// Defaults are the options of a plain search when the caller sends none.
	Defaults retrieval.Options
	Version  string
}

func (d Deps) version() string {
	if d.Version == "" {
		return "dev"
	}
	return d.Version
}

// NewMCPServer creates an MCP server with all podquote tools and resources registered.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"podquote",
		deps.version(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("podquote searches podcast transcripts for quotes with speaker, episode and timestamp. "+
			"Use search_quotes for direct lookups and search_quotes_smart when wording may differ from the question."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_quotes",
			mcp.WithDescription("Search podcast transcripts for quotes matching a query."),
			mcp.WithString("query", mcp.Description("Words or phrase to search for"), mcp.Required()),
			mcp.WithString("guest", mcp.Description("Only return quotes from episodes with this guest")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of quotes (default 10, max 50)")),
			mcp.WithNumber("min_score", mcp.Description("Minimum relevance score (default 0.1)")),
		),
		mcpSearchQuotes(deps),
	)

	s.AddTool(
		mcp.NewTool(smartsearch.ToolName,
			mcp.WithDescription("Multi-step quote search. Call with only a query to get expansion instructions, "+
				"then with expanded_terms to get candidates, then with selected_indices to get the final quotes."),
			mcp.WithString("query", mcp.Description("The question or topic"), mcp.Required()),
			mcp.WithString("guest", mcp.Description("Only consider episodes with this guest")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of final quotes (default 10)")),
			mcp.WithNumber("min_score", mcp.Description("Minimum relevance score per term (default 0.05)")),
			mcp.WithArray("expanded_terms", mcp.Description("Alternative search terms"), mcp.Items(map[string]any{"type": "string"})),
			mcp.WithArray("selected_indices", mcp.Description("Indices of the chosen candidates"), mcp.Items(map[string]any{"type": "integer"})),
		),
		mcpSearchQuotesSmart(deps),
	)

	s.AddTool(
		mcp.NewTool("list_guests",
			mcp.WithDescription("List podcast guests and their episodes."),
			mcp.WithString("filter", mcp.Description("Only guests or titles containing this text")),
			mcp.WithString("sort_by", mcp.Description("Sort order"), mcp.Enum(string(retrieval.SortByName), string(retrieval.SortByViews))),
		),
		mcpListGuests(deps),
	)

	s.AddTool(
		mcp.NewTool("get_episode",
			mcp.WithDescription("Get the details of a guest's episode."),
			mcp.WithString("guest", mcp.Description("Guest name or part of it"), mcp.Required()),
			mcp.WithBoolean("include_transcript", mcp.Description("Include the full transcript (default false)")),
		),
		mcpGetEpisode(deps),
	)

	s.AddTool(
		mcp.NewTool("random_wisdom",
			mcp.WithDescription("Return a random substantial quote, optionally about a topic."),
			mcp.WithString("topic", mcp.Description("Optional topic")),
		),
		mcpRandomWisdom(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"podcast://stats",
			"Corpus Statistics",
			mcp.WithResourceDescription("Episode, segment and guest counts of the loaded transcripts"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

type searchResponse struct {
	Query  string            `json:"query"`
	Count  int               `json:"count"`
	Quotes []retrieval.Quote `json:"quotes"`
}

func mcpSearchQuotes(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || query == "" {
			return mcpError("query is required"), nil
		}

		opts := retrieval.Options{
			Guest:    req.GetString("guest", ""),
			Limit:    clampLimit(req.GetInt("limit", deps.Defaults.Limit)),
			MinScore: req.GetFloat("min_score", deps.Defaults.MinScore),
		}
		quotes := deps.Engine.SearchQuotes(ctx, query, opts)
		return mcpJSON(searchResponse{Query: query, Count: len(quotes), Quotes: quotes})
	}
}

func mcpSearchQuotesSmart(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil || query == "" {
			return mcpError("query is required"), nil
		}

		sreq := smartsearch.Request{
			Query: query,
			Guest: req.GetString("guest", ""),
			Limit: clampLimit(req.GetInt("limit", 0)),
		}
		args := req.GetArguments()
		if _, ok := args["min_score"]; ok {
			minScore := req.GetFloat("min_score", 0)
			sreq.MinScore = &minScore
		}
		if _, ok := args["expanded_terms"]; ok {
			sreq.ExpandedTerms = req.GetStringSlice("expanded_terms", []string{})
		}
		if _, ok := args["selected_indices"]; ok {
			sreq.SelectedIndices = req.GetIntSlice("selected_indices", []int{})
		}

		return mcpJSON(deps.Smart.Run(ctx, sreq))
	}
}

func mcpListGuests(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sortBy := retrieval.GuestSort(req.GetString("sort_by", string(retrieval.SortByName)))
		guests := deps.Engine.ListGuests(req.GetString("filter", ""), sortBy)
		if guests == nil {
			guests = []retrieval.GuestEntry{}
		}
		return mcpJSON(guests)
	}
}

func mcpGetEpisode(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		guest, err := req.RequireString("guest")
		if err != nil || guest == "" {
			return mcpError("guest is required"), nil
		}

		detail, err := deps.Engine.FindEpisode(guest, req.GetBool("include_transcript", false))
		if errors.Is(err, retrieval.ErrEpisodeNotFound) {
			return mcpError(fmt.Sprintf("no episode found for guest %q", guest)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("episode lookup failed: %v", err)), nil
		}
		return mcpJSON(detail)
	}
}

func mcpRandomWisdom(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic := req.GetString("topic", "")
		r, ok := deps.Engine.RandomSegment(ctx, topic)
		if !ok {
			if topic != "" {
				return mcpText(fmt.Sprintf("No quotes found about %q.", topic)), nil
			}
			return mcpText("No quotes available."), nil
		}
		return mcpJSON(deps.Engine.ToQuote(r))
	}
}

func mcpResourceStats(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Engine.Stats())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func clampLimit(n int) int {
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
