// Package llm implements the gateway to OpenAI-compatible chat
// completion endpoints, in both blocking and streaming forms.
package llm

import "log/slog"

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message is a chat message in the wire format the model consumes.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages: the call being answered
	Name       string     `json:"name,omitempty"`         // tool messages: the tool that produced the result
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its serialized arguments.
// Arguments is a raw JSON string as emitted by the model; it may be
// incomplete or invalid if a stream was interrupted.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Completion is the unified result of one model round trip.
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// Delta is one incremental fragment of a streamed completion.
type Delta struct {
	Content   string
	ToolCalls []ToolCallDelta
}

// ToolCallDelta is a partial tool call fragment from a stream. Fields
// arrive piecemeal and interleaved across chunks; Index identifies
// which call a fragment belongs to.
type ToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}
