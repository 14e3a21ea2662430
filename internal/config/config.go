// Package config loads the gateway's typed settings from the environment.
// Configuration-file parsing is out of scope (spec.md §1); every setting
// is read from the process environment, following the teacher's pattern
// of a single root Config composed of nested, named sub-configs
// (internal/config.Config in the teacher repo). FromEnv starts from
// Default() and overwrites each setting whose variable is set; there is no
// later pass that refills zero values, so e.g. MAX_TURNS=0 yields 0.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the gateway's root configuration object.
type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Poll     PollConfig
	Chat     ChatConfig
	Think    ThinkConfig
	Trace    TraceConfig
	Logging  LoggingConfig
}

// ServerConfig configures the HTTP listener and session strictness.
type ServerConfig struct {
	Port            int
	RequireSession  bool
}

// ProviderConfig configures the outbound LLM provider connection.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

// PollConfig configures the Response Poller (spec.md §4.4).
type PollConfig struct {
	DelaySeconds       float64
	MaxPolls           int
	MaxConcurrency     int64
	SemaphoreWait      time.Duration
}

// ChatConfig configures the Chat Orchestrator's loop guardrail.
type ChatConfig struct {
	MaxTurns int
}

// ThinkConfig configures the subordinate think-tool MCP client.
type ThinkConfig struct {
	Enabled    bool
	URL        string
	TimeoutMS  int
	RetryLimit int
}

// TraceConfig holds the tracing settings. Only OTLPEndpoint is consumed
// (cmd/mcpgw passes it to the tracer); Enabled, Project and APIKey are
// loaded from the environment but no other code reads them, so tracing is
// activated per request by its metadata, not by LANGSMITH_TRACING.
type TraceConfig struct {
	Enabled     bool
	Project     string
	APIKey      string
	OTLPEndpoint string
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// Default returns the gateway's baseline configuration, matching the
// defaults spec.md §3's invariants assume (MAX_TURNS=15, MAX_POLL_CONCURRENCY=8).
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			RequireSession: false,
		},
		Poll: PollConfig{
			DelaySeconds:   1,
			MaxPolls:       60,
			MaxConcurrency: 8,
			SemaphoreWait:  5 * time.Second,
		},
		Chat: ChatConfig{
			MaxTurns: 15,
		},
		Think: ThinkConfig{
			TimeoutMS:  30_000,
			RetryLimit: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// FromEnv loads a Config starting from Default() and overriding fields
// present in the process environment (spec.md §6's env var list). It
// never fails on a missing optional variable; it returns an error only
// when a present variable cannot be parsed, or a combination is invalid
// (e.g. THINK_TOOL_ENABLED=true with no THINK_TOOL_URL).
func FromEnv() (Config, error) {
	cfg := Default()

	cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Provider.BaseURL = os.Getenv("OPENAI_BASE_URL")

	if v, ok := os.LookupEnv("PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = n
	}
	if v, ok := os.LookupEnv("MCP_REQUIRE_SESSION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("MCP_REQUIRE_SESSION: %w", err)
		}
		cfg.Server.RequireSession = b
	}

	if v, ok := os.LookupEnv("POLL_DELAY"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("POLL_DELAY: %w", err)
		}
		cfg.Poll.DelaySeconds = f
	}
	if v, ok := os.LookupEnv("MAX_POLLS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("MAX_POLLS: %w", err)
		}
		cfg.Poll.MaxPolls = n
	}
	if v, ok := os.LookupEnv("RESPONSES_POLL_MAX_CONCURRENCY"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("RESPONSES_POLL_MAX_CONCURRENCY: %w", err)
		}
		cfg.Poll.MaxConcurrency = n
	}

	if v, ok := os.LookupEnv("MAX_TURNS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("MAX_TURNS: %w", err)
		}
		cfg.Chat.MaxTurns = n
	}

	if v, ok := os.LookupEnv("THINK_TOOL_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("THINK_TOOL_ENABLED: %w", err)
		}
		cfg.Think.Enabled = b
	}
	cfg.Think.URL = os.Getenv("THINK_TOOL_URL")
	if v, ok := os.LookupEnv("THINK_TOOL_TIMEOUT_MS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("THINK_TOOL_TIMEOUT_MS: %w", err)
		}
		cfg.Think.TimeoutMS = n
	}
	if v, ok := os.LookupEnv("THINK_TOOL_RETRY_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("THINK_TOOL_RETRY_LIMIT: %w", err)
		}
		cfg.Think.RetryLimit = n
	}
	if cfg.Think.Enabled && cfg.Think.URL == "" {
		return cfg, fmt.Errorf("THINK_TOOL_ENABLED=true requires THINK_TOOL_URL")
	}

	if v, ok := os.LookupEnv("LANGSMITH_TRACING"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("LANGSMITH_TRACING: %w", err)
		}
		cfg.Trace.Enabled = b
	}
	cfg.Trace.Project = os.Getenv("LANGSMITH_PROJECT")
	cfg.Trace.APIKey = os.Getenv("LANGSMITH_API_KEY")
	cfg.Trace.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	return cfg, nil
}
