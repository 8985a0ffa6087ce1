package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/podquote/internal/retrieval"
	"github.com/kalambet/podquote/internal/smartsearch"
)

const maxRequestBodySize = 1 << 20 // 1MB

// NewHandler returns the REST API. A non-empty token protects everything
// except /health. A non-nil mcpHandler is mounted at /mcp.
func NewHandler(deps Deps, token string, mcpHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, echoRequestID, logRequests, middleware.Recoverer)

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		if token != "" {
			r.Use(BearerAuth(token))
		}
		r.Get("/api/search", handleSearch(deps))
		r.Post("/api/smart-search", handleSmartSearch(deps))
		r.Get("/api/guests", handleGuests(deps))
		r.Get("/api/episodes/{guest}", handleEpisode(deps))
		r.Get("/api/random", handleRandom(deps))
		r.Get("/api/stats", handleStats(deps))
		r.Post("/api/ask", handleAsk(deps))
		if mcpHandler != nil {
			r.Handle("/mcp", mcpHandler)
		}
	})

	return r
}

// echoRequestID returns the id assigned by middleware.RequestID so clients
// can quote it when reporting problems.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(middleware.RequestIDHeader, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"version":  deps.version(),
			"episodes": len(deps.Engine.Index().Episodes()),
		})
	}
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := strings.TrimSpace(q.Get("q"))
		if query == "" {
			query = strings.TrimSpace(q.Get("query"))
		}
		if query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query parameter q is required")
			return
		}

		opts := retrieval.Options{
			Guest:    q.Get("guest"),
			Limit:    parseIntParam(r, "limit", deps.Defaults.Limit, maxLimit),
			MinScore: parseFloatParam(r, "min_score", deps.Defaults.MinScore),
		}
		quotes := deps.Engine.SearchQuotes(r.Context(), query, opts)
		writeJSON(w, http.StatusOK, searchResponse{Query: query, Count: len(quotes), Quotes: quotes})
	}
}

type smartSearchRequest struct {
	Query           string   `json:"query"`
	Guest           string   `json:"guest"`
	Limit           int      `json:"limit"`
	MinScore        *float64 `json:"min_score"`
	ExpandedTerms   []string `json:"expanded_terms"`
	SelectedIndices []int    `json:"selected_indices"`
}

func handleSmartSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req smartSearchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		resp := deps.Smart.Run(r.Context(), smartsearch.Request{
			Query:           req.Query,
			Guest:           req.Guest,
			Limit:           clampLimit(req.Limit),
			MinScore:        req.MinScore,
			ExpandedTerms:   req.ExpandedTerms,
			SelectedIndices: req.SelectedIndices,
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGuests(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		guests := deps.Engine.ListGuests(q.Get("filter"), retrieval.GuestSort(q.Get("sort")))
		if guests == nil {
			guests = []retrieval.GuestEntry{}
		}
		writeJSON(w, http.StatusOK, guests)
	}
}

func handleEpisode(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guest := chi.URLParam(r, "guest")
		withTranscript, _ := strconv.ParseBool(r.URL.Query().Get("transcript"))

		detail, err := deps.Engine.FindEpisode(guest, withTranscript)
		if errors.Is(err, retrieval.ErrEpisodeNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "no episode found for guest %q", guest)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "episode lookup failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func handleRandom(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.URL.Query().Get("topic")
		res, ok := deps.Engine.RandomSegment(r.Context(), topic)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "no quote available")
			return
		}
		writeJSON(w, http.StatusOK, deps.Engine.ToQuote(res))
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Engine.Stats())
	}
}

type askRequest struct {
	Question string `json:"question"`
	Guest    string `json:"guest"`
	Limit    int    `json:"limit"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Composer == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "answer composition is not configured")
			return
		}

		var req askRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		opts := deps.Defaults
		opts.Guest = req.Guest
		if req.Limit > 0 {
			opts.Limit = clampLimit(req.Limit)
		}
		quotes := deps.Engine.SearchQuotes(r.Context(), req.Question, opts)

		answer, err := deps.Composer.Answer(r.Context(), req.Question, quotes)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "composing answer: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, answer)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func parseFloatParam(r *http.Request, key string, defaultVal float64) float64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
