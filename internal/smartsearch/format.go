package smartsearch

import (
	"fmt"
	"strings"

	"github.com/kalambet/podquote/internal/retrieval"
)

// FormatQuotes renders quotes as a numbered, citation-bearing text block.
func FormatQuotes(query string, quotes []retrieval.Quote) string {
	var b strings.Builder
	noun := "quotes"
	if len(quotes) == 1 {
		noun = "quote"
	}
	fmt.Fprintf(&b, "Found %d relevant %s for %q:\n", len(quotes), noun, query)

	for i, q := range quotes {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", i+1, q.Speaker, q.Timestamp)
		fmt.Fprintf(&b, "   %q\n", q.Text)
		fmt.Fprintf(&b, "   Episode: %s with %s\n", q.EpisodeTitle, q.Guest)
		if q.URL != "" {
			fmt.Fprintf(&b, "   Watch: %s\n", q.URL)
		}
	}
	return b.String()
}
