// Package config loads podquote settings from the platform backend,
// PODQUOTE_* environment variables and the platform secret store.
package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Service is the secret store service name.
const Service = "podquote"

type Config struct {
	Server ServerConfig
	Corpus CorpusConfig
	Search SearchConfig
	Answer AnswerConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port     int
	MaxConns int
	// APIToken enables bearer authentication on the HTTP API when set.
	APIToken string
}

type CorpusConfig struct {
	Dir            string
	DefaultChannel string
	Workers        int
}

type SearchConfig struct {
	Limit           int
	MinScore        float64
	SmartMinScore   float64
	SessionCapacity int
}

type AnswerConfig struct {
	// OpenRouterAPIKey enables answer composition when set.
	OpenRouterAPIKey string
	Model            string
}

type LogConfig struct {
	Level string
}

// SlogLevel maps Level onto a slog level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:     4100,
			MaxConns: 64,
		},
		Corpus: CorpusConfig{
			Dir:            "./episodes",
			DefaultChannel: "Lenny's Podcast",
			Workers:        8,
		},
		Search: SearchConfig{
			Limit:           10,
			MinScore:        0.1,
			SmartMinScore:   0.05,
			SessionCapacity: 10,
		},
		Answer: AnswerConfig{
			Model: "anthropic/claude-sonnet-4",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.podquote.app) and
// secrets fall back to the macOS Keychain.
// Elsewhere the backend is a JSON file at $XDG_CONFIG_HOME/podquote/config.json
// and secrets fall back to $XDG_DATA_HOME/podquote/secrets.json.
//
// Environment variables (PODQUOTE_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg) != "" {
			continue
		}
		if v, err := kc.Get(Service, s.account()); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxConns < 1 {
		problems = append(problems, "server.max_conns must be positive")
	}
	if strings.TrimSpace(c.Corpus.Dir) == "" {
		problems = append(problems, "corpus.dir is empty")
	}
	if c.Corpus.Workers < 1 {
		problems = append(problems, "corpus.workers must be positive")
	}
	if c.Search.Limit < 1 {
		problems = append(problems, "search.limit must be positive")
	}
	if c.Search.MinScore < 0 || c.Search.SmartMinScore < 0 {
		problems = append(problems, "search scores must not be negative")
	}
	if c.Search.SessionCapacity < 1 {
		problems = append(problems, "search.session_capacity must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
