// Package agent drives the bounded think/act loop: it assembles the
// prompt window, calls the model, executes requested tools through the
// permission gate, and feeds results back until the model produces a
// final answer or the step budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aide-chat/aide/internal/llm"
	"github.com/aide-chat/aide/internal/persona"
	"github.com/aide-chat/aide/internal/session"
	"github.com/aide-chat/aide/internal/tools"
)

// DefaultMaxSteps bounds model round trips per request.
const DefaultMaxSteps = 10

// ErrSessionNotFound is returned when a request names a session id
// that does not exist. Only requests without any id create sessions.
var ErrSessionNotFound = session.ErrNotFound

// Terminal texts persisted when a run ends without a model answer.
const (
	gatewayFailureText = "Sorry, I ran into an error while processing your request. Please try again."
	stepLimitText      = "I reached my step limit while working on this. Ask me to continue and I will pick up where I left off."
)

const defaultSystemPrompt = "You are Aide, a capable and friendly personal assistant."

// Agent is the request orchestrator. It is stateless across requests;
// all durable state lives in the stores.
type Agent struct {
	gateway  llm.Gateway
	vision   *llm.VisionClient
	registry *tools.Registry
	sessions *session.Store
	personas *persona.Store
	maxSteps int
	window   int
	logger   *slog.Logger
}

// Options configures an Agent. Vision may be nil; zero MaxSteps and
// Window use the defaults.
type Options struct {
	Gateway  llm.Gateway
	Vision   *llm.VisionClient
	Registry *tools.Registry
	Sessions *session.Store
	Personas *persona.Store
	MaxSteps int
	Window   int
	Logger   *slog.Logger
}

// New creates an agent.
func New(opts Options) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Agent{
		gateway:  opts.Gateway,
		vision:   opts.Vision,
		registry: opts.Registry,
		sessions: opts.Sessions,
		personas: opts.Personas,
		maxSteps: opts.MaxSteps,
		window:   opts.Window,
		logger:   opts.Logger,
	}
}

// Request is one inbound chat message.
type Request struct {
	// SessionID targets an existing session; empty creates a new one.
	SessionID string

	// Text is the user's message.
	Text string

	// Image is an optional image reference (URL or data URI) to run
	// through the vision model before the main loop.
	Image string

	// DBConfig is an opaque set of connection parameters injected into
	// the system prompt as instructional text. It is not validated.
	DBConfig map[string]any

	// FileAccess restricts the filesystem tools; nil means no gate.
	FileAccess *FileAccess

	// MaxSteps overrides the configured step ceiling when positive.
	MaxSteps int
}

// Result is the outcome of a synchronous run.
type Result struct {
	SessionID    string
	Response     string
	FinishReason string // "stop" or "length"
}

// runState carries the per-request working set through the loop.
type runState struct {
	sessionID string
	wire      []llm.Message
	maxSteps  int
	access    *FileAccess
}

// Process runs the full think/act loop synchronously and returns the
// final answer.
func (a *Agent) Process(ctx context.Context, req Request) (*Result, error) {
	st, err := a.prepare(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	for step := 0; step < st.maxSteps; step++ {
		completion, err := a.gateway.Chat(ctx, st.wire, a.registry.List())
		if err != nil {
			a.logger.Error("gateway call failed", "session_id", st.sessionID, "error", err)
			return a.finish(st.sessionID, gatewayFailureText, "stop")
		}

		if len(completion.ToolCalls) == 0 {
			return a.finish(st.sessionID, completion.Content, "stop")
		}

		if err := a.recordAssistantTurn(st, completion); err != nil {
			return nil, err
		}
		for _, call := range completion.ToolCalls {
			result := a.executeCall(ctx, call, st.access)
			if err := a.recordToolResult(st, call, result); err != nil {
				return nil, err
			}
		}
	}

	return a.finish(st.sessionID, stepLimitText, "length")
}

// prepare resolves the session, augments the user turn with vision
// analysis, persists it, and builds the initial context window.
// onThought, when non-nil, receives auxiliary narration (the vision
// pre-analysis) for streaming consumers.
func (a *Agent) prepare(ctx context.Context, req Request, onThought func(string)) (*runState, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sess, err := a.sessions.Create("")
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		sessionID = sess.ID
	} else if _, err := a.sessions.Get(sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, err
	}

	userText := req.Text
	if req.Image != "" && a.vision != nil {
		desc, err := a.vision.AnalyzeImage(ctx, req.Image, "")
		if err != nil {
			a.logger.Warn("vision analysis failed", "session_id", sessionID, "error", err)
		} else {
			if onThought != nil {
				onThought(desc)
			}
			userText = fmt.Sprintf("%s\n\n[Image analysis]: %s", userText, desc)
		}
	}

	sess, err := a.sessions.Append(sessionID, session.Message{Role: "user", Content: userText})
	if err != nil {
		return nil, fmt.Errorf("append user turn: %w", err)
	}

	// Older histories may lack tool names; backfill before the window
	// is built so providers that validate them accept the context.
	session.RepairToolNames(sess)

	window := buildWindow(sess.Messages, a.window)
	wire := make([]llm.Message, 0, len(window)+1)
	wire = append(wire, llm.Message{Role: "system", Content: a.systemPrompt(req.DBConfig)})
	wire = append(wire, toWire(window)...)

	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = a.maxSteps
	}

	return &runState{
		sessionID: sessionID,
		wire:      wire,
		maxSteps:  maxSteps,
		access:    req.FileAccess,
	}, nil
}

// systemPrompt assembles the per-request system message: the active
// persona's prompt, the current time, behavioral directives, and the
// optional database connection block.
func (a *Agent) systemPrompt(dbConfig map[string]any) string {
	var b strings.Builder

	prompt := defaultSystemPrompt
	if p, err := a.personas.Active(); err == nil && p.SystemPrompt != "" {
		prompt = p.SystemPrompt
	}
	b.WriteString(prompt)

	fmt.Fprintf(&b, "\n\nCurrent time: %s.", time.Now().Format("Monday, 2006-01-02 15:04"))
	b.WriteString("\nBefore invoking tools, state briefly what you plan to do. Prefer tools over guessing when the user asks about live data, files, or databases.")

	if len(dbConfig) > 0 {
		b.WriteString("\n\n[MySQL connection]\n")
		keys := make([]string, 0, len(dbConfig))
		for k := range dbConfig {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %v\n", k, dbConfig[k])
		}
		b.WriteString("\nThese are the base connection parameters. If the user asks about a different database on the same server, keep host, port, user, and password unchanged and swap only the database name. Do not browse local files looking for credentials; use the parameters above directly.")
	}

	return b.String()
}

// recordAssistantTurn persists the assistant message carrying tool
// calls and appends it to the working window. When the model sent no
// narration, the stored display text is a synthesized placeholder.
func (a *Agent) recordAssistantTurn(st *runState, completion *llm.Completion) error {
	display := completion.Content
	if display == "" {
		names := make([]string, 0, len(completion.ToolCalls))
		for _, tc := range completion.ToolCalls {
			names = append(names, tc.Function.Name)
		}
		display = fmt.Sprintf("[invoking tools: %s...]", strings.Join(names, ", "))
	}

	if _, err := a.sessions.Append(st.sessionID, session.Message{
		Role:      "assistant",
		Content:   display,
		ToolCalls: completion.ToolCalls,
	}); err != nil {
		return fmt.Errorf("append assistant turn: %w", err)
	}

	st.wire = append(st.wire, llm.Message{
		Role:      "assistant",
		Content:   completion.Content,
		ToolCalls: completion.ToolCalls,
	})
	return nil
}

// recordToolResult persists one tool-role message and appends it to
// the working window. The result is truncated before it is stored;
// the full value is never retained.
func (a *Agent) recordToolResult(st *runState, call llm.ToolCall, result string) error {
	truncated := truncateResult(result)

	if _, err := a.sessions.Append(st.sessionID, session.Message{
		Role:       "tool",
		Content:    truncated,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	}); err != nil {
		return fmt.Errorf("append tool result: %w", err)
	}

	st.wire = append(st.wire, llm.Message{
		Role:       "tool",
		Content:    truncated,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	})
	return nil
}

// executeCall runs one tool call end to end. Every failure mode comes
// back as an in-band error string so the loop never aborts: the model
// sees the error and can adapt.
func (a *Agent) executeCall(ctx context.Context, call llm.ToolCall, access *FileAccess) string {
	name := call.Function.Name

	args, err := tools.ParseArgs(call.Function.Arguments)
	if err != nil {
		return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
	}

	if err := checkFileAccess(name, args, access); err != nil {
		a.logger.Info("tool call denied", "tool", name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	tool := a.registry.Get(name)
	if tool == nil {
		return fmt.Sprintf("Error: Tool '%s' not found.", name)
	}

	a.logger.Debug("executing tool", "tool", name, "args", call.Function.Arguments)
	start := time.Now()
	result, err := tool.Handler(ctx, args)
	if err != nil {
		a.logger.Warn("tool execution failed", "tool", name, "elapsed", time.Since(start), "error", err)
		return fmt.Sprintf("Error executing tool: %v", err)
	}
	a.logger.Debug("tool finished", "tool", name, "elapsed", time.Since(start), "result_len", len(result))
	return result
}

// finish persists the terminal assistant message and builds the
// result.
func (a *Agent) finish(sessionID, text, finishReason string) (*Result, error) {
	if _, err := a.sessions.Append(sessionID, session.Message{
		Role:    "assistant",
		Content: text,
	}); err != nil {
		return nil, fmt.Errorf("append final answer: %w", err)
	}
	return &Result{
		SessionID:    sessionID,
		Response:     text,
		FinishReason: finishReason,
	}, nil
}
