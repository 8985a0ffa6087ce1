package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/kalambet/podquote/internal/api"
	"github.com/kalambet/podquote/internal/composer"
	"github.com/kalambet/podquote/internal/config"
	"github.com/kalambet/podquote/internal/corpus"
	"github.com/kalambet/podquote/internal/index"
	"github.com/kalambet/podquote/internal/proxy"
	"github.com/kalambet/podquote/internal/retrieval"
	"github.com/kalambet/podquote/internal/smartsearch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the transcript corpus and serve the HTTP API and MCP tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		stdio, _ := cmd.Flags().GetBool("stdio")
		host, _ := cmd.Flags().GetString("host")
		corpusDir, _ := cmd.Flags().GetString("corpus")
		port, _ := cmd.Flags().GetInt("port")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if corpusDir != "" {
			cfg.Corpus.Dir = corpusDir
		}
		if port > 0 {
			cfg.Server.Port = port
		}
		return runServer(cfg, host, stdio)
	},
}

func init() {
	serveCmd.Flags().Bool("stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	serveCmd.Flags().String("host", "127.0.0.1", "address to bind the HTTP server to")
	serveCmd.Flags().String("corpus", "", "transcript directory (overrides corpus.dir)")
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides server.port)")
}

func setupLogging(cfg config.LogConfig) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

// app is the loaded corpus with everything that queries it.
type app struct {
	index *index.Index
	deps  api.Deps
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	start := time.Now()

	episodes, err := corpus.Load(ctx, cfg.Corpus.Dir, corpus.Options{
		DefaultChannel: cfg.Corpus.DefaultChannel,
		Workers:        cfg.Corpus.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	ix, err := index.Build(ctx, episodes)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	engine := retrieval.NewEngine(ix, nil)
	deps := api.Deps{
		Engine:   engine,
		Smart:    smartsearch.New(engine, smartsearch.NewSessionCache(cfg.Search.SessionCapacity), cfg.Search.SmartMinScore),
		Defaults: retrieval.Options{Limit: cfg.Search.Limit, MinScore: cfg.Search.MinScore},
		Version:  version,
	}
	if cfg.Answer.OpenRouterAPIKey != "" {
		deps.Composer = composer.New(proxy.NewClient(cfg.Answer.OpenRouterAPIKey), cfg.Answer.Model, 0)
	} else {
		slog.Info("answer composition disabled: no OpenRouter API key")
	}

	slog.Info("corpus ready",
		"dir", cfg.Corpus.Dir,
		"episodes", len(ix.Episodes()),
		"segments", ix.SegmentCount(),
		"duration", time.Since(start),
	)
	return &app{index: ix, deps: deps}, nil
}

func (a *app) Close() error {
	return a.index.Close()
}

func runServer(cfg config.Config, host string, stdio bool) error {
	setupLogging(cfg.Log)
	slog.Info("starting podquote", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if errors.Is(err, corpus.ErrEmptyCorpus) {
		return fmt.Errorf("refusing to start: %w", err)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("closing index", "error", err)
		}
	}()

	mcpSrv := api.NewMCPServer(a.deps)

	if stdio {
		slog.Info("MCP server started (stdio transport)")
		err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	}

	if cfg.Server.APIToken == "" {
		slog.Warn("API token not set, HTTP API is unauthenticated")
	}
	handler := api.NewHandler(a.deps, cfg.Server.APIToken, server.NewStreamableHTTPServer(mcpSrv))

	addr := net.JoinHostPort(host, fmt.Sprint(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	ln = netutil.LimitListener(ln, cfg.Server.MaxConns)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("podquote listening", "addr", addr, "max_conns", cfg.Server.MaxConns)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show podquote server and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still report what we can.
		printError("config error: %v", err)
		return nil
	}

	client := newClientFor(cfg, 2*time.Second)
	var health struct {
		Version  string `json:"version"`
		Episodes int    `json:"episodes"`
	}
	resp, err := client.get(ctx, "/health")
	if err == nil {
		err = decodeJSON(resp, &health)
	}
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		printStatus("Server", "running on port %d (version %s)", cfg.Server.Port, health.Version)
		var stats retrieval.Stats
		if resp, err := client.get(ctx, "/api/stats"); err == nil && decodeJSON(resp, &stats) == nil {
			printStatus("Episodes", "%d", stats.Episodes)
			printStatus("Segments", "%d", stats.Segments)
			printStatus("Guests", "%d", stats.Guests)
		}
	}

	printStatus("Corpus dir", "%s", cfg.Corpus.Dir)
	if cfg.Server.APIToken != "" {
		printStatus("Auth", "bearer token")
	} else {
		printStatus("Auth", "disabled")
	}

	if cfg.Answer.OpenRouterAPIKey == "" {
		printStatus("Answer model", "disabled (no OpenRouter API key)")
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ok, err := proxy.NewClient(cfg.Answer.OpenRouterAPIKey).HasModel(checkCtx, cfg.Answer.Model)
	switch {
	case err != nil:
		printStatus("Answer model", "%s (could not reach OpenRouter: %v)", cfg.Answer.Model, err)
	case ok:
		printStatus("Answer model", "%s", cfg.Answer.Model)
	default:
		printStatus("Answer model", "%s (not listed by OpenRouter)", cfg.Answer.Model)
	}
	return nil
}
