// Package main provides the CLI entry point for mcpgw, an MCP gateway
// exposing a bounded chat orchestration core over JSON-RPC 2.0.
//
// # Basic Usage
//
// Start the server:
//
//	mcpgw serve
//
// # Environment Variables
//
// All configuration is read from the environment (see internal/config):
// OPENAI_API_KEY, OPENAI_BASE_URL, PORT, MCP_REQUIRE_SESSION, POLL_DELAY,
// MAX_POLLS, RESPONSES_POLL_MAX_CONCURRENCY, MAX_TURNS,
// THINK_TOOL_ENABLED, THINK_TOOL_URL, THINK_TOOL_TIMEOUT_MS,
// THINK_TOOL_RETRY_LIMIT, LANGSMITH_TRACING, LANGSMITH_PROJECT,
// LANGSMITH_API_KEY, OTEL_EXPORTER_OTLP_ENDPOINT, LOG_LEVEL, LOG_FORMAT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mcpgateway/mcpgw/internal/config"
	"github.com/mcpgateway/mcpgw/internal/observability"
	"github.com/mcpgateway/mcpgw/internal/orchestrator"
	"github.com/mcpgateway/mcpgw/internal/poller"
	"github.com/mcpgateway/mcpgw/internal/provider"
	"github.com/mcpgateway/mcpgw/internal/router"
	"github.com/mcpgateway/mcpgw/internal/session"
	"github.com/mcpgateway/mcpgw/internal/thinkclient"
	"github.com/mcpgateway/mcpgw/internal/thinkproc"
	"github.com/mcpgateway/mcpgw/internal/toolregistry"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mcpgw",
		Short:        "mcpgw - MCP gateway with bounded chat orchestration",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(buildServeCmd())
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway's JSON-RPC server",
		Long: `Start the gateway server.

The server will:
1. Load configuration from the environment
2. Wire the Provider Adapter, Response Poller, Think Client, and Chat Orchestrator
3. Start the JSON-RPC router on the configured port

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), debug)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func runServe(ctx context.Context, debug bool) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info(ctx, "starting mcpgw gateway", "version", version, "commit", commit)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName: "mcpgw",
		Endpoint:    cfg.Trace.OTLPEndpoint,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn(ctx, "tracer shutdown error", "error", err)
		}
	}()

	adapter := provider.NewAdapter(cfg.Provider.APIKey, cfg.Provider.BaseURL)
	resolver := poller.New(adapter, poller.Config{
		MaxConcurrency: cfg.Poll.MaxConcurrency,
		SemaphoreWait:  cfg.Poll.SemaphoreWait,
		Delay:          time.Duration(cfg.Poll.DelaySeconds * float64(time.Second)),
		MaxPolls:       cfg.Poll.MaxPolls,
	}, metrics)

	// dispatcher is left as a nil thinkproc.ThinkDispatcher interface (not a
	// typed-nil *thinkclient.Client) when think is disabled, so the
	// orchestrator's "o.Think == nil" check behaves correctly.
	var dispatcher thinkproc.ThinkDispatcher
	if cfg.Think.Enabled {
		dispatcher = thinkclient.New(cfg.Think.URL, time.Duration(cfg.Think.TimeoutMS)*time.Millisecond, cfg.Think.RetryLimit)
	}

	orc := &orchestrator.Orchestrator{
		Provider:     adapter,
		Poller:       resolver,
		ThinkEnabled: cfg.Think.Enabled,
		Think:        dispatcher,
		Tracer:       tracer,
		Metrics:      metrics,
		MaxTurns:     cfg.Chat.MaxTurns,
	}

	sessions := session.New(cfg.Server.RequireSession)

	tools := toolregistry.New()
	if err := toolregistry.RegisterBuiltins(tools, orc, cfg.Think.Enabled); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	r := &router.Router{
		Sessions: sessions,
		Tools:    tools,
		Logger:   logger,
		Metrics:  metrics,
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info(ctx, "gateway ready", "addr", addr, "think_enabled", cfg.Think.Enabled)
	if err := r.Serve(ctx, addr); err != nil {
		return fmt.Errorf("router serve: %w", err)
	}
	sessions.Clear()

	logger.Info(ctx, "mcpgw gateway stopped gracefully")
	return nil
}
