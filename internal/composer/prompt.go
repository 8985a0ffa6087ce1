// Package composer turns retrieved quotes into a cited answer from a chat
// model.
package composer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/podquote/internal/proxy"
	"github.com/kalambet/podquote/internal/retrieval"
)

const defaultMaxContextTokens = 4000

const systemPrompt = `You answer questions using only quotes from podcast transcripts.
Each quote is numbered. Ground every claim in one or more quotes and cite them
by number. If the quotes do not answer the question, say so plainly.
Reply with JSON matching the provided schema.`

var answerSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "answer": {"type": "string"},
    "citations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {"quote_index": {"type": "integer"}},
        "required": ["quote_index"],
        "additionalProperties": false
      }
    }
  },
  "required": ["answer", "citations"],
  "additionalProperties": false
}`)

// BuildRequest assembles the chat request for question. Quotes are kept in
// order until the context budget runs out; the returned slice is what the
// model sees, and citation indices refer to it.
func (c *Composer) BuildRequest(question string, quotes []retrieval.Quote) (proxy.ChatRequest, []retrieval.Quote) {
	var (
		sb        strings.Builder
		used      []retrieval.Quote
		remaining = c.MaxContextTokens - EstimateTokens(question)
	)
	for _, q := range quotes {
		entry := formatQuote(len(used), q)
		tokens := EstimateTokens(entry)
		if tokens > remaining {
			continue
		}
		sb.WriteString(entry)
		used = append(used, q)
		remaining -= tokens
	}

	user := fmt.Sprintf("[Quotes]\n%s[Question]\n%s", sb.String(), question)
	temperature := 0.2

	return proxy.ChatRequest{
		Model: c.Model,
		Messages: []proxy.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		Temperature: &temperature,
		ResponseFormat: &proxy.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &proxy.JSONSchema{Name: "cited_answer", Strict: true, Schema: answerSchema},
		},
	}, used
}

func formatQuote(i int, q retrieval.Quote) string {
	return fmt.Sprintf("(%d) %s, %q at %s:\n%s\n\n", i, q.Speaker, q.EpisodeTitle, q.Timestamp, q.Text)
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
