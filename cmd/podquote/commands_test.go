package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kalambet/podquote/internal/composer"
	"github.com/kalambet/podquote/internal/config"
	"github.com/kalambet/podquote/internal/corpus"
	"github.com/kalambet/podquote/internal/retrieval"
	"github.com/kalambet/podquote/internal/smartsearch"
)

// testServer points newAPIClient at handler for the duration of the test.
func testServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	orig := newAPIClient
	newAPIClient = func() (*apiClient, error) {
		return &apiClient{baseURL: srv.URL, token: "test-token", httpClient: srv.Client()}, nil
	}
	t.Cleanup(func() { newAPIClient = orig })

	prev := noColor
	noColor = true
	t.Cleanup(func() { noColor = prev })
}

func runCmd(t *testing.T, cmd *cobra.Command, args []string, flags map[string]string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	for name, value := range flags {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("setting --%s: %v", name, err)
		}
	}
	t.Cleanup(func() {
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				sv.Replace(nil)
			} else {
				f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	})
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func TestAPIClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := &apiClient{baseURL: srv.URL, token: "secret", httpClient: srv.Client()}
	resp, err := c.get(context.Background(), "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret")
	}
}

func TestAPIClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := &apiClient{baseURL: srv.URL, httpClient: srv.Client()}
	resp, err := c.get(context.Background(), "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestAPIClient_Unreachable(t *testing.T) {
	c := &apiClient{baseURL: "http://127.0.0.1:1", httpClient: &http.Client{Timeout: time.Second}}
	_, err := c.get(context.Background(), "/health")
	if err == nil || !strings.Contains(err.Error(), "podquote serve") {
		t.Fatalf("err = %v, want server not reachable hint", err)
	}
}

func TestNewClientFor(t *testing.T) {
	cfg := config.Config{Server: config.ServerConfig{Port: 4242, APIToken: "tok"}}
	c := newClientFor(cfg, time.Second)
	if c.baseURL != "http://127.0.0.1:4242" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.token != "tok" {
		t.Errorf("token = %q", c.token)
	}
}

func TestDecodeJSON_ErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusNotFound)
	rec.WriteString(`{"error":"missing"}`)

	var v map[string]any
	err := decodeJSON(rec.Result(), &v)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "missing") {
		t.Errorf("err = %v", err)
	}
}

func TestSearchPath(t *testing.T) {
	got := searchPath("product market fit", "Brian Chesky", 5, 0)
	want := "/api/search?guest=Brian+Chesky&limit=5&q=product+market+fit"
	if got != want {
		t.Errorf("searchPath = %q, want %q", got, want)
	}
}

func TestSearchCmd_RendersQuotes(t *testing.T) {
	var gotQuery string
	testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		json.NewEncoder(w).Encode(map[string]any{
			"query": gotQuery,
			"count": 1,
			"quotes": []retrieval.Quote{{
				Text:         "I love design thinking.",
				Speaker:      "Brian",
				EpisodeTitle: "Brian Chesky's new playbook",
				Timestamp:    "00:00:05",
				URL:          "https://www.youtube.com/watch?v=abc123&t=5s",
			}},
		})
	})

	out, err := runCmd(t, searchCmd, []string{"design", "thinking"}, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotQuery != "design thinking" {
		t.Errorf("server got q = %q", gotQuery)
	}
	for _, want := range []string{"[00:00:05] Brian", "I love design thinking.", "t=5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSmartCmd_SendsPhaseFields(t *testing.T) {
	var got map[string]any
	testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/smart-search" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(smartsearch.Response{Phase: smartsearch.PhaseComplete, OriginalQuery: "burnout", Text: "Found 1 relevant quote(s)"})
	})

	out, err := runCmd(t, smartCmd, []string{"burnout"}, map[string]string{"terms": "exhaustion,recharge", "select": "0,2", "min-score": "0"})
	if err != nil {
		t.Fatalf("smart: %v", err)
	}
	terms, _ := got["expanded_terms"].([]any)
	if len(terms) != 2 || terms[0] != "exhaustion" {
		t.Errorf("expanded_terms = %v", got["expanded_terms"])
	}
	indices, _ := got["selected_indices"].([]any)
	if len(indices) != 2 || indices[1] != float64(2) {
		t.Errorf("selected_indices = %v", got["selected_indices"])
	}
	if v, ok := got["min_score"]; !ok || v != float64(0) {
		t.Errorf("min_score = %v (present %v), want explicit 0", v, ok)
	}
	if !strings.Contains(out, "Found 1 relevant quote(s)") {
		t.Errorf("output = %q", out)
	}
}

func TestSmartCmd_SelectRequiresTerms(t *testing.T) {
	testServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	})
	_, err := runCmd(t, smartCmd, []string{"burnout"}, map[string]string{"select": "1"})
	if err == nil {
		t.Fatal("expected error for --select without --terms")
	}
}

func TestRenderSmart_Filter(t *testing.T) {
	noColor = true
	var buf bytes.Buffer
	renderSmart(&buf, smartsearch.Response{
		Phase:         smartsearch.PhaseFilter,
		OriginalQuery: "burnout",
		Candidates: []smartsearch.Candidate{
			{Index: 0, Speaker: "Julie", Title: "Julie Zhuo on management", Timestamp: "00:10:00", Text: "Rest matters.", Score: 0.5},
		},
		Instructions: "Pick the best candidates.",
	})
	out := buf.String()
	for _, want := range []string{`1 candidate(s) for "burnout"`, "[0] Julie", "Rest matters.", "Pick the best candidates."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEpisodeCmd_NotFound(t *testing.T) {
	testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/episodes/Nobody Here" {
			t.Errorf("path = %q", r.URL.Path)
		}
		http.Error(w, `{"error":"no episode found"}`, http.StatusNotFound)
	})
	_, err := runCmd(t, episodeCmd, []string{"Nobody", "Here"}, nil)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestAskCmd_RendersCitations(t *testing.T) {
	testServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(composer.Answer{
			Question: "why design?",
			Text:     "Because founders care about it [0].",
			Citations: []composer.Citation{
				{QuoteIndex: 0, Speaker: "Brian", Timestamp: "00:00:05", Quote: "I love design thinking."},
			},
		})
	})
	out, err := runCmd(t, askCmd, []string{"why", "design?"}, nil)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(out, "Because founders care about it") || !strings.Contains(out, "[0] Brian at 00:00:05") {
		t.Errorf("output = %q", out)
	}
}

func TestColorize_NoColor(t *testing.T) {
	prev := noColor
	defer func() { noColor = prev }()

	noColor = true
	if got := colorize(colorRed, "x"); got != "x" {
		t.Errorf("colorize with noColor = %q", got)
	}
	noColor = false
	if got := colorize(colorRed, "x"); got != colorRed+"x"+colorReset {
		t.Errorf("colorize = %q", got)
	}
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevColor := statusOut, noColor
	statusOut, noColor = &buf, true
	defer func() { statusOut, noColor = prevOut, prevColor }()

	printStatus("Guest", "%s", "Brian Chesky")
	printError("index %d failed", 3)

	want := "  Guest:         Brian Chesky\nerror: index 3 failed\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

const testTranscript = `---
guest: Brian Chesky
title: "Brian Chesky's new playbook"
video_id: abc123
---
# Transcript

Brian (00:00:05):
I love design thinking.

Lenny (00:00:12):
Tell me more about design.
`

func TestBuildApp(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "brian-chesky")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "transcript.md"), []byte(testTranscript), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		Corpus: config.CorpusConfig{Dir: root, DefaultChannel: "Lenny's Podcast", Workers: 2},
		Search: config.SearchConfig{Limit: 5, MinScore: 0, SmartMinScore: 0.05, SessionCapacity: 4},
	}
	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer a.Close()

	if a.deps.Composer != nil {
		t.Error("composer should be disabled without an API key")
	}
	if a.deps.Defaults.Limit != 5 {
		t.Errorf("Defaults.Limit = %d", a.deps.Defaults.Limit)
	}
	quotes := a.deps.Engine.SearchQuotes(context.Background(), "design", a.deps.Defaults)
	if len(quotes) == 0 {
		t.Fatal("expected quotes for design")
	}
	if quotes[0].EpisodeID != "brian-chesky" {
		t.Errorf("EpisodeID = %q", quotes[0].EpisodeID)
	}
}

func TestBuildApp_EmptyCorpus(t *testing.T) {
	cfg := config.Config{Corpus: config.CorpusConfig{Dir: t.TempDir(), Workers: 1}}
	_, err := buildApp(context.Background(), cfg)
	if !errors.Is(err, corpus.ErrEmptyCorpus) {
		t.Fatalf("err = %v, want ErrEmptyCorpus", err)
	}
}
