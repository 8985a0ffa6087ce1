package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

// account is the secret store account name of a secret key.
func (s keySpec) account() string {
	_, name, _ := strings.Cut(s.key, ".")
	return name
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PODQUOTE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_conns", typ: kInt, env: "PODQUOTE_SERVER_MAX_CONNS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConns = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConns },
	},
	{
		key: "server.api_token", typ: kString, env: "PODQUOTE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "corpus.dir", typ: kString, env: "PODQUOTE_CORPUS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Corpus.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Corpus.Dir },
	},
	{
		key: "corpus.default_channel", typ: kString, env: "PODQUOTE_CORPUS_DEFAULT_CHANNEL",
		apply:   func(cfg *Config, v any) { cfg.Corpus.DefaultChannel = v.(string) },
		extract: func(cfg Config) any { return cfg.Corpus.DefaultChannel },
	},
	{
		key: "corpus.workers", typ: kInt, env: "PODQUOTE_CORPUS_WORKERS",
		apply:   func(cfg *Config, v any) { cfg.Corpus.Workers = v.(int) },
		extract: func(cfg Config) any { return cfg.Corpus.Workers },
	},
	{
		key: "search.limit", typ: kInt, env: "PODQUOTE_SEARCH_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Search.Limit = v.(int) },
		extract: func(cfg Config) any { return cfg.Search.Limit },
	},
	{
		key: "search.min_score", typ: kFloat, env: "PODQUOTE_SEARCH_MIN_SCORE",
		apply:   func(cfg *Config, v any) { cfg.Search.MinScore = v.(float64) },
		extract: func(cfg Config) any { return cfg.Search.MinScore },
	},
	{
		key: "search.smart_min_score", typ: kFloat, env: "PODQUOTE_SEARCH_SMART_MIN_SCORE",
		apply:   func(cfg *Config, v any) { cfg.Search.SmartMinScore = v.(float64) },
		extract: func(cfg Config) any { return cfg.Search.SmartMinScore },
	},
	{
		key: "search.session_capacity", typ: kInt, env: "PODQUOTE_SEARCH_SESSION_CAPACITY",
		apply:   func(cfg *Config, v any) { cfg.Search.SessionCapacity = v.(int) },
		extract: func(cfg Config) any { return cfg.Search.SessionCapacity },
	},
	{
		key: "answer.openrouter_api_key", typ: kString, env: "PODQUOTE_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Answer.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Answer.OpenRouterAPIKey },
	},
	{
		key: "answer.model", typ: kString, env: "PODQUOTE_ANSWER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Answer.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Answer.Model },
	},
	{
		key: "log.level", typ: kString, env: "PODQUOTE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
