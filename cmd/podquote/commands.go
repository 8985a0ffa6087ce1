package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/podquote/internal/composer"
	"github.com/kalambet/podquote/internal/config"
	"github.com/kalambet/podquote/internal/retrieval"
	"github.com/kalambet/podquote/internal/smartsearch"
)

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search transcripts for quotes",
	Long: `Search transcripts for quotes.

Examples:
  podquote search "product market fit"
  podquote search "hiring" --guest "Brian Chesky" --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		guest, _ := cmd.Flags().GetString("guest")
		limit, _ := cmd.Flags().GetInt("limit")
		minScore, _ := cmd.Flags().GetFloat64("min-score")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), searchPath(strings.Join(args, " "), guest, limit, minScore))
		if err != nil {
			return err
		}
		var result struct {
			Query  string            `json:"query"`
			Count  int               `json:"count"`
			Quotes []retrieval.Quote `json:"quotes"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Count == 0 {
			printWarning("No quotes found for %q", result.Query)
			return nil
		}
		renderQuotes(cmd.OutOrStdout(), result.Quotes)
		return nil
	},
}

func searchPath(query, guest string, limit int, minScore float64) string {
	v := url.Values{}
	v.Set("q", query)
	if guest != "" {
		v.Set("guest", guest)
	}
	if limit > 0 {
		v.Set("limit", fmt.Sprint(limit))
	}
	if minScore > 0 {
		v.Set("min_score", fmt.Sprint(minScore))
	}
	return "/api/search?" + v.Encode()
}

func init() {
	searchCmd.Flags().String("guest", "", "only return quotes from episodes with this guest")
	searchCmd.Flags().Int("limit", 0, "maximum number of quotes (server default when 0)")
	searchCmd.Flags().Float64("min-score", 0, "minimum relevance score (server default when 0)")
}

// --- smart ---

var smartCmd = &cobra.Command{
	Use:   "smart <query>",
	Short: "Run one phase of the expand/filter/complete smart search",
	Long: `Run one phase of the smart search workflow.

Without flags the server returns expansion instructions. Pass --terms to get
candidates, then the same --terms with --select to get the final quotes.

Examples:
  podquote smart "dealing with burnout"
  podquote smart "dealing with burnout" --terms "exhaustion,recharge"
  podquote smart "dealing with burnout" --terms "exhaustion,recharge" --select 0,3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		guest, _ := cmd.Flags().GetString("guest")
		limit, _ := cmd.Flags().GetInt("limit")
		terms, _ := cmd.Flags().GetStringSlice("terms")
		selected, _ := cmd.Flags().GetIntSlice("select")

		req := map[string]any{"query": strings.Join(args, " ")}
		if guest != "" {
			req["guest"] = guest
		}
		if limit > 0 {
			req["limit"] = limit
		}
		if cmd.Flags().Changed("min-score") {
			minScore, _ := cmd.Flags().GetFloat64("min-score")
			req["min_score"] = minScore
		}
		if cmd.Flags().Changed("select") {
			if len(terms) == 0 {
				return errors.New("--select requires the --terms used for the filter phase")
			}
			req["selected_indices"] = selected
		}
		if len(terms) > 0 {
			req["expanded_terms"] = terms
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/smart-search", req)
		if err != nil {
			return err
		}
		var result smartsearch.Response
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		renderSmart(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	smartCmd.Flags().String("guest", "", "restrict to episodes with this guest")
	smartCmd.Flags().Int("limit", 0, "maximum number of final quotes")
	smartCmd.Flags().Float64("min-score", 0, "minimum relevance score per term (server default unless set)")
	smartCmd.Flags().StringSlice("terms", nil, "comma-separated expanded search terms")
	smartCmd.Flags().IntSlice("select", nil, "comma-separated candidate indices to keep")
}

func renderSmart(w io.Writer, r smartsearch.Response) {
	switch r.Phase {
	case smartsearch.PhaseExpand:
		fmt.Fprintln(w, r.Instructions)
	case smartsearch.PhaseFilter:
		if r.Text != "" {
			fmt.Fprintln(w, r.Text)
			return
		}
		fmt.Fprintf(w, "%d candidate(s) for %q:\n\n", len(r.Candidates), r.OriginalQuery)
		for _, c := range r.Candidates {
			fmt.Fprintf(w, "%s %s (%s) at %s, score %.3f\n", colorize(colorBold, fmt.Sprintf("[%d]", c.Index)), c.Speaker, c.Title, c.Timestamp, c.Score)
			fmt.Fprintf(w, "    %s\n\n", c.Text)
		}
		fmt.Fprintln(w, r.Instructions)
	default:
		fmt.Fprintln(w, r.Text)
	}
}

// --- guests ---

var guestsCmd = &cobra.Command{
	Use:   "guests",
	Short: "List podcast guests",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		sortBy, _ := cmd.Flags().GetString("sort")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		v := url.Values{}
		if filter != "" {
			v.Set("filter", filter)
		}
		if sortBy != "" {
			v.Set("sort", sortBy)
		}
		path := "/api/guests"
		if len(v) > 0 {
			path += "?" + v.Encode()
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var guests []retrieval.GuestEntry
		if err := decodeJSON(resp, &guests); err != nil {
			return err
		}

		if len(guests) == 0 {
			printWarning("No guests found")
			return nil
		}
		out := cmd.OutOrStdout()
		for _, g := range guests {
			fmt.Fprintf(out, "%s  %s  (%d views)\n", colorize(colorBold, g.Guest), g.Title, g.ViewCount)
		}
		return nil
	},
}

func init() {
	guestsCmd.Flags().String("filter", "", "case-insensitive substring of the guest name")
	guestsCmd.Flags().String("sort", "", "sort order: name or views")
}

// --- episode ---

var episodeCmd = &cobra.Command{
	Use:   "episode <guest>",
	Short: "Show episode details for a guest",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript, _ := cmd.Flags().GetBool("transcript")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/api/episodes/" + url.PathEscape(strings.Join(args, " "))
		if transcript {
			path += "?transcript=true"
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var ep retrieval.EpisodeDetail
		if err := decodeJSON(resp, &ep); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", colorize(colorBold, ep.Title))
		printStatus("Guest", "%s", ep.Guest)
		printStatus("Channel", "%s", ep.Channel)
		if ep.Duration != "" {
			printStatus("Duration", "%s", ep.Duration)
		}
		printStatus("Views", "%d", ep.ViewCount)
		printStatus("Segments", "%d", ep.SegmentCount)
		if ep.YouTubeURL != "" {
			printStatus("URL", "%s", ep.YouTubeURL)
		}
		if ep.Description != "" {
			fmt.Fprintf(out, "\n%s\n", ep.Description)
		}
		if ep.Transcript != "" {
			fmt.Fprintf(out, "\n%s\n", ep.Transcript)
		}
		return nil
	},
}

func init() {
	episodeCmd.Flags().Bool("transcript", false, "include the full transcript")
}

// --- random ---

var randomCmd = &cobra.Command{
	Use:   "random [topic]",
	Short: "Show a random quote, optionally about a topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		path := "/api/random"
		if topic := strings.Join(args, " "); topic != "" {
			path += "?" + url.Values{"topic": {topic}}.Encode()
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		var q retrieval.Quote
		if err := decodeJSON(resp, &q); err != nil {
			return err
		}
		renderQuotes(cmd.OutOrStdout(), []retrieval.Quote{q})
		return nil
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from transcript quotes with citations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		guest, _ := cmd.Flags().GetString("guest")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		req := map[string]any{"question": strings.Join(args, " ")}
		if guest != "" {
			req["guest"] = guest
		}
		if limit > 0 {
			req["limit"] = limit
		}

		printStep("Searching transcripts and composing an answer...")
		resp, err := client.post(cmd.Context(), "/api/ask", req)
		if err != nil {
			return err
		}
		var answer composer.Answer
		if err := decodeJSON(resp, &answer); err != nil {
			return err
		}
		renderAnswer(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	askCmd.Flags().String("guest", "", "restrict sources to episodes with this guest")
	askCmd.Flags().Int("limit", 0, "maximum number of quotes to consider")
}

func renderAnswer(w io.Writer, a composer.Answer) {
	fmt.Fprintln(w, a.Text)
	if len(a.Citations) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Sources:"))
	for _, c := range a.Citations {
		fmt.Fprintf(w, "  [%d] %s at %s: %q\n", c.QuoteIndex, c.Speaker, c.Timestamp, c.Quote)
		if c.URL != "" {
			fmt.Fprintf(w, "      %s\n", c.URL)
		}
	}
}

func renderQuotes(w io.Writer, quotes []retrieval.Quote) {
	for i, q := range quotes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s, %s\n", colorize(colorCyan, "["+q.Timestamp+"]"), colorize(colorBold, q.Speaker), q.EpisodeTitle)
		fmt.Fprintf(w, "  %q\n", q.Text)
		if q.URL != "" {
			fmt.Fprintf(w, "  %s\n", q.URL)
		}
	}
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
