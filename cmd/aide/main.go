// Aide is a personal assistant chatbot.
//
// It exposes an HTTP API with synchronous, SSE, and WebSocket chat
// endpoints, and a CLI for one-shot questions. Configuration is loaded
// from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	aide serve              Start the API server
//	aide init [dir]         Initialize a working directory with defaults
//	aide ask <question>     Ask a single question (for testing)
//	aide version            Print version and build information
//	aide -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aide-chat/aide/internal/agent"
	"github.com/aide-chat/aide/internal/api"
	"github.com/aide-chat/aide/internal/buildinfo"
	"github.com/aide-chat/aide/internal/config"
	"github.com/aide-chat/aide/internal/fetch"
	"github.com/aide-chat/aide/internal/llm"
	"github.com/aide-chat/aide/internal/media"
	"github.com/aide-chat/aide/internal/memo"
	"github.com/aide-chat/aide/internal/persona"
	"github.com/aide-chat/aide/internal/sandbox"
	"github.com/aide-chat/aide/internal/search"
	"github.com/aide-chat/aide/internal/session"
	"github.com/aide-chat/aide/internal/tools"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run] so the full
// startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the aide command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which makes it impossible to call run() concurrently from tests, and
// the argument surface is small enough that manual parsing is clearer
// than bringing in a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: aide ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Aide - Personal Assistant Chatbot")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: aide [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./aide.yaml, ~/.config/aide/config.yaml, /etc/aide/config.yaml")
	return nil
}

// newLogger creates a structured text logger writing to w at the given
// level. All log output goes through slog; this helper standardizes the
// handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// components holds everything built from one configuration: the agent,
// its stores, and the tool registry.
type components struct {
	agent    *agent.Agent
	sessions *session.Store
	personas *persona.Store
	registry *tools.Registry
}

// buildComponents opens the stores, constructs the model clients, and
// registers every tool enabled by the configuration.
func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	if cfg.Logic.BaseURL == "" || cfg.Logic.Model == "" {
		return nil, errors.New("logic model not configured (set logic.base_url and logic.model)")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	sessions, err := session.NewStore(cfg.SessionsDir(), logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	personas, err := persona.NewStore(cfg.PersonasFile())
	if err != nil {
		return nil, fmt.Errorf("open persona store: %w", err)
	}
	memos, err := memo.NewStore(cfg.MemosFile())
	if err != nil {
		return nil, fmt.Errorf("open memo store: %w", err)
	}

	gateway := llm.NewClient(cfg.Logic.BaseURL, cfg.Logic.APIKey, cfg.Logic.Model, logger)

	// The vision and image models inherit the logic endpoint's
	// credentials when their own are empty.
	var vision *llm.VisionClient
	if cfg.Vision.Model != "" {
		baseURL, apiKey := inheritCreds(cfg.Vision, cfg.Logic)
		vision = llm.NewVisionClient(baseURL, apiKey, cfg.Vision.Model, logger)
		if vision != nil {
			logger.Info("vision model configured", "model", cfg.Vision.Model)
		}
	}
	var imageModel llm.Gateway
	if cfg.Image.Model != "" {
		baseURL, apiKey := inheritCreds(cfg.Image, cfg.Logic)
		imageModel = llm.NewClient(baseURL, apiKey, cfg.Image.Model, logger)
		logger.Info("image model configured", "model", cfg.Image.Model)
	}

	registry := tools.NewRegistry()
	tools.RegisterFileTools(registry)
	tools.RegisterDBTools(registry)
	memo.RegisterTools(registry, memos)
	fetch.RegisterTool(registry, fetch.New())

	manager := search.NewManager(cfg.Search.Provider)
	if cfg.Search.SearXNGURL != "" {
		manager.Register(search.NewSearXNG(cfg.Search.SearXNGURL))
	}
	if cfg.Search.BraveAPIKey != "" {
		manager.Register(search.NewBrave(cfg.Search.BraveAPIKey))
	}
	if manager.Configured() {
		search.RegisterSearchTool(registry, manager)
	} else {
		logger.Info("web search disabled (no provider configured)")
	}

	if wc := search.NewWeatherClient(cfg.Weather.APIKey); wc != nil {
		search.RegisterWeatherTool(registry, wc)
	} else {
		logger.Info("weather tool disabled (no API key)")
	}

	generator, err := media.NewGenerator(cfg.GeneratedDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create generated directory: %w", err)
	}
	media.RegisterTools(registry, generator, imageModel)
	if vision != nil {
		media.RegisterVisionTool(registry, vision)
	}

	if cfg.Sandbox.Enabled {
		timeout := time.Duration(cfg.Sandbox.TimeoutSec) * time.Second
		sandbox.RegisterTool(registry, sandbox.NewRunner(cfg.Sandbox.Python, timeout, logger))
		logger.Info("python sandbox enabled", "interpreter", cfg.Sandbox.Python, "timeout", timeout)
	}

	logger.Info("tools registered", "tools", registry.Names())

	ag := agent.New(agent.Options{
		Gateway:  gateway,
		Vision:   vision,
		Registry: registry,
		Sessions: sessions,
		Personas: personas,
		MaxSteps: cfg.Agent.MaxSteps,
		Window:   cfg.Agent.ContextWindow,
		Logger:   logger,
	})

	return &components{
		agent:    ag,
		sessions: sessions,
		personas: personas,
		registry: registry,
	}, nil
}

// inheritCreds fills an auxiliary model's endpoint from the logic
// model's when unset.
func inheritCreds(m, logic config.ModelConfig) (baseURL, apiKey string) {
	baseURL, apiKey = m.BaseURL, m.APIKey
	if baseURL == "" {
		baseURL = logic.BaseURL
	}
	if apiKey == "" {
		apiKey = logic.APIKey
	}
	return baseURL, apiKey
}

// runAsk handles the "aide ask <question>" subcommand. It boots the
// full toolset and processes a single question, printing the response
// to stdout. Useful for smoke tests without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	res, err := comps.agent.Process(ctx, agent.Request{Text: question})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, res.Response)
	return nil
}

// runServe handles the "aide serve" subcommand: load config, open the
// stores, register the tools, start the API server, and block until a
// shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Aide", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Logic.Model,
	)

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(api.Options{
		Address:      cfg.Listen.Address,
		Port:         cfg.Listen.Port,
		Agent:        comps.agent,
		Sessions:     comps.sessions,
		Personas:     comps.personas,
		Registry:     comps.registry,
		GeneratedDir: cfg.GeneratedDir,
		Logger:       logger,
	})

	// SIGINT/SIGTERM cancellation flows through the same ctx used by
	// all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Aide stopped")
	return nil
}
